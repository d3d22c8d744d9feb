package command

import (
	"github.com/spf13/cobra"

	ectx "github.com/aept-pm/aept/pkg/context"

	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/solver"
	"github.com/aept-pm/aept/pkg/transaction"
)

var upgradeFlags struct { //nolint:gochecknoglobals
	noCache      bool
	downloadOnly bool
	reinstall    bool
}

var upgradeCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "upgrade [NAME...]",
	Short:   "Upgrade installed packages to their best available version",
	GroupID: "transaction",
	Args:    cobra.ArbitraryArgs,
	RunE:    runUpgrade,
}

func runUpgrade(_ *cobra.Command, args []string) error {
	e, err := loadEnv(&ectx.Flags{
		NoCache:      upgradeFlags.noCache,
		DownloadOnly: upgradeFlags.downloadOnly,
		Reinstall:    upgradeFlags.reinstall,
	})
	if err != nil {
		return err
	}
	defer e.Close()

	pins, err := e.store.Pins()
	if err != nil {
		return err
	}

	in := transaction.Input{Sources: e.cfg.Sources, Pins: pins}

	if len(args) == 0 {
		in.Jobs = []solver.Job{{Kind: solver.JobUpdateAll}}
	} else {
		for _, name := range args {
			in.Jobs = append(in.Jobs, solver.Job{Kind: solver.JobInstallName, Name: name})
			in.ExplicitNames = append(in.ExplicitNames, name)
		}
	}

	summary, err := transaction.Run(e.ec, e.store, in)
	if err != nil {
		return err
	}

	logger.Info(i18n.T("messages.plan_header"), "installed", summary.Installed, "removed", summary.Removed)

	return nil
}

//nolint:gochecknoinits
func init() {
	upgradeCmd.Flags().BoolVar(&upgradeFlags.noCache, "no-cache", false,
		"download packages to a private temp file instead of the cache")
	upgradeCmd.Flags().BoolVar(&upgradeFlags.downloadOnly, "download-only", false,
		"fetch packages into the cache without installing them")
	upgradeCmd.Flags().BoolVar(&upgradeFlags.reinstall, "reinstall", false,
		"re-run install for named packages the solver left untouched")

	rootCmd.AddCommand(upgradeCmd)
}
