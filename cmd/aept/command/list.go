package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aept-pm/aept/pkg/query"
)

var listCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "list [PATTERN]",
	Short:   "List installed packages, optionally filtered by a glob pattern",
	GroupID: "query",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	var pattern string
	if len(args) == 1 {
		pattern = args[0]
	}

	e, err := loadEnv(nil)
	if err != nil {
		return err
	}
	defer e.Close()

	pkgs, err := query.List(e.ec.Ctx, e.store, pattern)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, pkg := range pkgs {
		fmt.Fprintf(out, "%s\t%s\n", pkg.Name, pkg.Version) //nolint:errcheck
	}

	return nil
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(listCmd)
}
