package command

import (
	"github.com/spf13/cobra"

	"github.com/aept-pm/aept/pkg/lock"
)

var pinCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "pin NAME VERSION",
	Short:   "Lock a package to a version during upgrade-all and explicit install",
	GroupID: "maintenance",
	Args:    cobra.ExactArgs(2),
	RunE:    runPin,
}

func runPin(_ *cobra.Command, args []string) error {
	arg := pinArg{Name: args[0], Version: args[1]}
	if err := validate.Struct(arg); err != nil {
		return err
	}

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

	return e.store.AddPin(arg.Name, arg.Version)
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(pinCmd)
}
