package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aept-pm/aept/pkg/query"
)

var showCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "show NAME...",
	Short:   "Print a package's control stanza",
	GroupID: "query",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(nil)
	if err != nil {
		return err
	}
	defer e.Close()

	pkgs, err := query.Show(e.ec.Ctx, e.store, e.ec.Paths.ListsDir, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	for _, pkg := range pkgs {
		fmt.Fprintf(out, "Package: %s\nVersion: %s\nArchitecture: %s\n\n", //nolint:errcheck
			pkg.Name, pkg.Version, pkg.Architecture)
	}

	return nil
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(showCmd)
}
