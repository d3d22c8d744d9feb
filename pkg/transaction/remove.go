package transaction

import (
	"os"
	"path/filepath"

	ectx "github.com/aept-pm/aept/pkg/context"

	"github.com/aept-pm/aept/pkg/checksum"
	"github.com/aept-pm/aept/pkg/fileset"
	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/mscript"
	"github.com/aept-pm/aept/pkg/status"
)

// pureRemove implements spec §4.7's pure-remove sub-state-machine:
// prerm remove; walk .list, skipping paths in the protected file-set or
// unmodified conffiles; unlink the rest; postrm remove; delete every
// info_dir/<name>.* file; drop the status stanza; clear auto and pin.
// purge additionally unlinks unmodified conffiles — plain remove leaves
// configuration on disk for a future reinstall, matching the
// "unmodified conffiles survive remove, only purge takes them" reading of
// spec §4.7's remove bullet.
func pureRemove(ec *ectx.EngineContext, store *status.Store, name string, protected *fileset.Set) error {
	infoDir := ec.Paths.InfoDir
	root := ec.ResolvePath("/")

	if p := scriptPath(infoDir, name, "prerm"); scriptExists(p) {
		if err := runScript(ec, name, p, mscript.OpRemove, mscript.Prerm, "", ""); err != nil {
			return err
		}
	}

	entries, err := readList(listPath(infoDir, name))
	if err != nil {
		return err
	}

	conffiles, err := readConffiles(conffilesPath(infoDir, name))
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if protected.Contains(entry.path) {
			continue
		}

		abs := filepath.Join(root, entry.path)

		if recorded, isConffile := conffiles[entry.path]; isConffile && !ec.Flags.Purge {
			if cur, err := checksum.MD5File(abs); err == nil && cur == recorded {
				continue
			}
		}

		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			logger.Warn(i18n.T("logger.transaction.warn.unlink_failed"), "path", entry.path, "error", err)
		}
	}

	if p := scriptPath(infoDir, name, "postrm"); scriptExists(p) {
		if err := runScript(ec, name, p, mscript.OpRemove, mscript.Postrm, "", ""); err != nil {
			logger.Warn(i18n.T("logger.transaction.warn.postrm_failed"), "package", name, "error", err)
		}
	}

	if err := removeInfoFiles(infoDir, name); err != nil {
		return err
	}

	if err := store.Remove(name); err != nil {
		return err
	}

	if err := store.UnmarkAuto(name); err != nil {
		return err
	}

	return store.RemovePin(name)
}
