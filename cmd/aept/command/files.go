package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aept-pm/aept/pkg/query"
)

var filesCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "files NAME",
	Short:   "List the files owned by an installed package",
	GroupID: "query",
	Args:    cobra.ExactArgs(1),
	RunE:    runFiles,
}

func runFiles(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(nil)
	if err != nil {
		return err
	}
	defer e.Close()

	paths, err := query.Files(e.ec.Ctx, e.ec.Paths.InfoDir, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range paths {
		fmt.Fprintln(out, p) //nolint:errcheck
	}

	return nil
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(filesCmd)
}
