package command

import (
	"github.com/spf13/cobra"

	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/transaction"
)

var autoremoveCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "autoremove",
	Short:   "Remove auto-installed packages nothing depends on anymore",
	GroupID: "transaction",
	Args:    cobra.NoArgs,
	RunE:    runAutoremove,
}

func runAutoremove(_ *cobra.Command, _ []string) error {
	e, err := loadEnv(nil)
	if err != nil {
		return err
	}
	defer e.Close()

	removed, err := transaction.Autoremove(e.ec, e.store)
	if err != nil {
		return err
	}

	logger.Info(i18n.T("messages.plan_header"), "removed", removed)

	return nil
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(autoremoveCmd)
}
