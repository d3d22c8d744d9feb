package command

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/lock"
	"github.com/aept-pm/aept/pkg/logger"
)

var cleanCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "clean",
	Short:   "Remove cached package files no longer referenced by the installed set",
	GroupID: "maintenance",
	Args:    cobra.NoArgs,
	RunE:    runClean,
}

// runClean implements the cache_dir sweep spec's distillation left
// implicit (see SPEC_FULL.md §6.1): any file under cache_dir whose
// basename doesn't match a currently installed package's recorded
// Filename field is a candidate for removal. A package without a
// recorded Filename (e.g. one only ever installed from a bare local
// file) is left alone since its cache name can't be reconstructed.
func runClean(_ *cobra.Command, _ []string) error {
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

	records, err := e.store.Load()
	if err != nil {
		return err
	}

	referenced := make(map[string]bool, len(records))

	for _, r := range records {
		if filename, ok := r.Package.Fields.Get("Filename"); ok && filename != "" {
			referenced[filepath.Base(filename)] = true
		}
	}

	entries, err := os.ReadDir(e.ec.Paths.CacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	var removed int

	for _, entry := range entries {
		if entry.IsDir() || referenced[entry.Name()] {
			continue
		}

		path := filepath.Join(e.ec.Paths.CacheDir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn(i18n.T("logger.transaction.warn.unlink_failed"), "path", path, "error", err)
			continue
		}

		removed++
	}

	logger.Info(i18n.T("messages.clean_done"), "removed", removed)

	return nil
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(cleanCmd)
}
