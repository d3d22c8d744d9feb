// Package command implements aept's CLI surface: one cobra subcommand per
// verb, a shared rootCmd, and a PersistentPreRun that resolves color
// preference.
package command

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
)

var noColor bool //nolint:gochecknoglobals

var rootCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use: "aept",
	Example: `  # refresh repository indices
  aept update

  # install a package, pulling in its dependencies
  aept install htop

  # remove a package no longer needed by anything else
  aept remove htop && aept autoremove

  # upgrade everything not pinned to a fixed version
  aept upgrade`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		shouldDisableColor := noColor || os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb"
		logger.SetColorDisabled(shouldDisableColor)
	},
}

// Execute runs the root command. Called once from main after the sandbox
// re-exec check has had its chance to intercept the process.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

//nolint:gochecknoinits // cobra root command wiring
func init() {
	if err := i18n.Init(""); err != nil {
		logger.Warn("failed to initialize translations", "error", err)
	}

	rootCmd.Short = i18n.T("root.short")
	rootCmd.Long = i18n.T("root.long")

	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		logger.SetColorDisabled(true)
	}

	rootCmd.AddGroup(&cobra.Group{ID: "transaction", Title: "Transaction Commands"})
	rootCmd.AddGroup(&cobra.Group{ID: "query", Title: "Query Commands"})
	rootCmd.AddGroup(&cobra.Group{ID: "maintenance", Title: "Maintenance Commands"})

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	registerGlobalFlags(rootCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = false
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}
