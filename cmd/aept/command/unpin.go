package command

import (
	"github.com/spf13/cobra"

	"github.com/aept-pm/aept/pkg/lock"
)

var unpinCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "unpin NAME",
	Short:   "Remove a version pin",
	GroupID: "maintenance",
	Args:    cobra.ExactArgs(1),
	RunE:    runUnpin,
}

func runUnpin(_ *cobra.Command, args []string) error {
	e, err := loadEnv(nil)
	if err != nil {
		return err
	}
	defer e.Close()

	heldLock, err := lock.Acquire(e.ec.Paths.LockFile)
	if err != nil {
		return err
	}
	defer heldLock.Release() //nolint:errcheck

	return e.store.RemovePin(args[0])
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(unpinCmd)
}
