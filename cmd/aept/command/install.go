package command

import (
	"strings"

	"github.com/spf13/cobra"

	ectx "github.com/aept-pm/aept/pkg/context"

	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/pathsafety"
	"github.com/aept-pm/aept/pkg/solver"
	"github.com/aept-pm/aept/pkg/transaction"
)

var installFlags struct { //nolint:gochecknoglobals
	forceDepends   bool
	allowDowngrade bool
	noCache        bool
	downloadOnly   bool
}

var installCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "install NAME[=VERSION]|FILE...",
	Short:   "Install packages, pulling in their dependencies",
	GroupID: "transaction",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runInstall,
}

func runInstall(_ *cobra.Command, args []string) error {
	e, err := loadEnv(&ectx.Flags{
		ForceDepends:   installFlags.forceDepends,
		AllowDowngrade: installFlags.allowDowngrade,
		NoCache:        installFlags.noCache,
		DownloadOnly:   installFlags.downloadOnly,
	})
	if err != nil {
		return err
	}
	defer e.Close()

	in, err := buildInstallInput(e, args)
	if err != nil {
		return err
	}

	pins, err := e.store.Pins()
	if err != nil {
		return err
	}

	for name, version := range pins {
		if _, ok := in.Pins[name]; !ok {
			in.Pins[name] = version
		}
	}

	summary, err := transaction.Run(e.ec, e.store, in)
	if err != nil {
		return err
	}

	logger.Info(i18n.T("messages.plan_header"), "installed", summary.Installed, "removed", summary.Removed)

	return nil
}

// buildInstallInput separates each argument into a local file (routed to
// LocalFiles), a pinned NAME=VERSION request, or a plain package name.
func buildInstallInput(e *env, args []string) (transaction.Input, error) {
	in := transaction.Input{Sources: e.cfg.Sources, Pins: map[string]string{}}

	for _, arg := range args {
		if isLocalFile(arg) {
			name, err := packageNameFromFile(arg)
			if err != nil {
				return transaction.Input{}, err
			}

			in.LocalFiles = append(in.LocalFiles, arg)
			in.Jobs = append(in.Jobs, solver.Job{Kind: solver.JobInstallName, Name: name})
			in.ExplicitNames = append(in.ExplicitNames, name)

			continue
		}

		name, version, pinned := strings.Cut(arg, "=")

		if err := pathsafety.CheckName("command.install", name); err != nil {
			return transaction.Input{}, err
		}

		if pinned {
			in.Pins[name] = version
		}

		in.Jobs = append(in.Jobs, solver.Job{Kind: solver.JobInstallName, Name: name})
		in.ExplicitNames = append(in.ExplicitNames, name)
	}

	return in, nil
}

//nolint:gochecknoinits
func init() {
	installCmd.Flags().BoolVar(&installFlags.forceDepends, "force-depends", false,
		"relax unmet dependency problems by accepting the first candidate")
	installCmd.Flags().BoolVar(&installFlags.allowDowngrade, "allow-downgrades", false,
		"permit installing an older version than what is installed")
	installCmd.Flags().BoolVar(&installFlags.noCache, "no-cache", false,
		"download packages to a private temp file instead of the cache")
	installCmd.Flags().BoolVar(&installFlags.downloadOnly, "download-only", false,
		"fetch packages into the cache without installing them")

	rootCmd.AddCommand(installCmd)
}
