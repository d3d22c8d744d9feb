package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aept-pm/aept/pkg/lock"
)

var markCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "mark {manual|auto} NAME...",
	Short:   "Change whether packages are tracked as manually or automatically installed",
	GroupID: "maintenance",
	Args:    cobra.MinimumNArgs(2),
	RunE:    runMark,
}

func runMark(_ *cobra.Command, args []string) error {
	mode, names := args[0], args[1:]
	if mode != "manual" && mode != "auto" {
		return fmt.Errorf("mark: first argument must be %q or %q", "manual", "auto")
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

	for _, name := range names {
		if mode == "manual" {
			if err := e.store.UnmarkAuto(name); err != nil {
				return err
			}
		} else if err := e.store.MarkAuto(name); err != nil {
			return err
		}
	}

	return nil
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(markCmd)
}
