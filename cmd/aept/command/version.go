package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev" //nolint:gochecknoglobals

var versionCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "version",
	Short:   "Print the aept version",
	GroupID: "maintenance",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), "aept "+Version) //nolint:errcheck
		return nil
	},
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(versionCmd)
}
