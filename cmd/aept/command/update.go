package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aept-pm/aept/pkg/fetch"
)

var updateCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "update",
	Short:   "Refresh repository indices",
	GroupID: "transaction",
	Args:    cobra.NoArgs,
	RunE:    runUpdate,
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(nil)
	if err != nil {
		return err
	}
	defer e.Close()

	opts := fetch.Options{ListsDir: e.ec.Paths.ListsDir}

	if keydir, ok := e.cfg.Options["usign_keydir"]; ok && keydir != "" {
		keyring, err := os.Open(keydir) //nolint:gosec
		if err == nil {
			defer keyring.Close() //nolint:errcheck

			opts.VerifySignatures = true
			opts.Keyring = keyring
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "aept: warning: cannot open usign_keydir: %v\n", err) //nolint:errcheck
		}
	}

	results := fetch.UpdateAll(e.ec.Ctx, e.cfg.Sources, opts)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "aept: warning: %s: %v\n", r.Source, r.Err) //nolint:errcheck
		}
	}

	if fetch.Failed(results) {
		return fmt.Errorf("one or more sources failed to update")
	}

	return nil
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(updateCmd)
}
