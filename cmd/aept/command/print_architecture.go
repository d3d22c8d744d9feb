package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aept-pm/aept/pkg/query"
)

var printArchitectureCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "print-architecture",
	Short:   "Print the configured architecture preference's primary entry",
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE:    runPrintArchitecture,
}

func runPrintArchitecture(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(nil)
	if err != nil {
		return err
	}
	defer e.Close()

	arch, err := query.PrintArchitecture(e.ec.Architecture)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), arch) //nolint:errcheck

	return nil
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(printArchitectureCmd)
}
