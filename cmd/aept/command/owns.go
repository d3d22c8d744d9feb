package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aept-pm/aept/pkg/query"
)

var ownsCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "owns PATH",
	Short:   "Find which installed package owns a file path",
	GroupID: "query",
	Args:    cobra.ExactArgs(1),
	RunE:    runOwns,
}

func runOwns(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(nil)
	if err != nil {
		return err
	}
	defer e.Close()

	name, ok, err := query.Owns(e.ec.Ctx, e.ec.Paths.InfoDir, args[0])
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%s is not owned by any installed package", args[0])
	}

	fmt.Fprintln(cmd.OutOrStdout(), name) //nolint:errcheck

	return nil
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(ownsCmd)
}
