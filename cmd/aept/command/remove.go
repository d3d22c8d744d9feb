package command

import (
	"github.com/spf13/cobra"

	ectx "github.com/aept-pm/aept/pkg/context"

	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/solver"
	"github.com/aept-pm/aept/pkg/transaction"
)

var removeFlags struct { //nolint:gochecknoglobals
	purge bool
}

var removeCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "remove NAME...",
	Short:   "Remove installed packages",
	GroupID: "transaction",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRemove,
}

func runRemove(_ *cobra.Command, args []string) error {
	e, err := loadEnv(&ectx.Flags{Purge: removeFlags.purge})
	if err != nil {
		return err
	}
	defer e.Close()

	in := transaction.Input{Sources: e.cfg.Sources}
	for _, name := range args {
		in.Jobs = append(in.Jobs, solver.Job{Kind: solver.JobErase, Name: name})
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
	removeCmd.Flags().BoolVar(&removeFlags.purge, "purge", false,
		"also remove unmodified configuration files")

	rootCmd.AddCommand(removeCmd)
}
