package transaction

import (
	"bytes"
	"os"
	"path/filepath"

	ectx "github.com/aept-pm/aept/pkg/context"

	"github.com/aept-pm/aept/pkg/aerrors"
	"github.com/aept-pm/aept/pkg/archive"
	"github.com/aept-pm/aept/pkg/checksum"
	"github.com/aept-pm/aept/pkg/conffile"
	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/fileset"
	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/mscript"
	"github.com/aept-pm/aept/pkg/status"
)

// candidateSuffix marks a freshly-extracted conffile candidate before the
// conffile engine has decided its fate. It never reaches the user — unlike
// conffile.AsideSuffix (".aept-new"), which is the public shadow-copy name
// written when a modified conffile is kept.
const candidateSuffix = ".aept-upgrade-candidate"

// upgradeResult mirrors installResult for the upgrade/downgrade
// sub-state-machine.
type upgradeResult struct {
	DemotedToUnpacked bool
}

// pureUpgrade implements spec §4.7's upgrade/downgrade sub-state-machine:
// old-prerm, new-preinst, snapshot the old .list, extract new data over the
// root (conffile candidates are diverted to a private suffix instead of
// overwriting live files), resolve each conffile through pkg/conffile,
// re-stream the new .list, unlink old_list − new_list − protected_set
// (preserving modified conffiles unless purge), old-postrm, replace
// info_dir files, new-postinst, and rewrite the status stanza. New paths
// are registered into protected so a later step in the same transaction
// cannot erase a file this upgrade now owns.
func pureUpgrade(
	ec *ectx.EngineContext, store *status.Store,
	oldPkg, newPkg control.Package, pkgFile string, protected *fileset.Set,
) (upgradeResult, error) {
	infoDir := ec.Paths.InfoDir
	root := ec.ResolvePath("/")

	if p := scriptPath(infoDir, oldPkg.Name, "prerm"); scriptExists(p) {
		if err := runScript(ec, oldPkg.Name, p, mscript.OpUpgrade, mscript.Prerm, newPkg.Version, ""); err != nil {
			return upgradeResult{}, err
		}
	}

	tmpDir, err := os.MkdirTemp(ec.TempDir(), sanitizeTmpPrefix(newPkg.Name)+"-upgrade-*")
	if err != nil {
		return upgradeResult{}, aerrors.Wrap(err, aerrors.Filesystem, "failed to create staging directory").
			WithOperation("transaction.pureUpgrade")
	}
	defer os.RemoveAll(tmpDir) //nolint:errcheck

	pkgArchive := archive.Package{Path: pkgFile}
	if err := pkgArchive.VerifyMagic(); err != nil {
		return upgradeResult{}, err
	}

	if err := extractControlFiles(&pkgArchive, tmpDir); err != nil {
		return upgradeResult{}, err
	}

	if p := filepath.Join(tmpDir, "preinst"); scriptExists(p) {
		if err := runScript(ec, newPkg.Name, p, mscript.OpUpgrade, mscript.Preinst, "", oldPkg.Version); err != nil {
			return upgradeResult{}, err
		}
	}

	oldEntries, err := readList(listPath(infoDir, oldPkg.Name))
	if err != nil {
		return upgradeResult{}, err
	}

	oldConffiles, err := readConffiles(conffilesPath(infoDir, oldPkg.Name))
	if err != nil {
		return upgradeResult{}, err
	}

	newConffileNames, err := loadPackageConffiles(&pkgArchive)
	if err != nil {
		return upgradeResult{}, err
	}

	newConffileSet := fileset.FromSlice(newConffileNames)

	if _, err := pkgArchive.ExtractAll(root, newConffileSet, candidateSuffix, archive.Flags{
		Owner: !ec.Flags.IgnoreUID, Perm: true, Time: true,
	}); err != nil {
		return upgradeResult{}, err
	}

	newConffileRecord, err := resolveConffiles(ec, newPkg.Name, root, newConffileNames, oldConffiles)
	if err != nil {
		return upgradeResult{}, err
	}

	var listBuf bytes.Buffer
	if err := pkgArchive.ListPathsToStream(&listBuf); err != nil {
		return upgradeResult{}, err
	}

	if err := writeListFile(listPath(infoDir, newPkg.Name), listBuf.Bytes()); err != nil {
		return upgradeResult{}, err
	}

	newEntries, err := readList(listPath(infoDir, newPkg.Name))
	if err != nil {
		return upgradeResult{}, err
	}

	newPaths := listPaths(newEntries)

	unlinkObsoletePaths(root, listPaths(oldEntries).Difference(newPaths), oldConffiles, protected, ec.Flags.Purge)

	if len(newConffileRecord) > 0 {
		if err := writeConffiles(conffilesPath(infoDir, newPkg.Name), newConffileRecord); err != nil {
			return upgradeResult{}, err
		}
	}

	if p := scriptPath(infoDir, oldPkg.Name, "postrm"); scriptExists(p) {
		if err := runScript(ec, oldPkg.Name, p, mscript.OpUpgrade, mscript.Postrm, newPkg.Version, ""); err != nil {
			logger.Warn(i18n.T("logger.transaction.warn.postrm_failed"), "package", oldPkg.Name, "error", err)
		}
	}

	if err := replaceInfoFiles(tmpDir, infoDir, newPkg.Name); err != nil {
		return upgradeResult{}, err
	}

	result := upgradeResult{}

	postinstPath := scriptPath(infoDir, newPkg.Name, "postinst")
	if scriptExists(postinstPath) {
		if err := runScript(ec, newPkg.Name, postinstPath, mscript.OpUpgrade, mscript.Postinst, "", oldPkg.Version); err != nil {
			logger.Warn(i18n.T("logger.transaction.warn.postinst_failed"), "package", newPkg.Name, "error", err)

			result.DemotedToUnpacked = true
		}
	}

	state := status.StateInstalled
	if result.DemotedToUnpacked {
		state = status.StateUnpacked
	}

	if err := store.Add(controlPath(infoDir, newPkg.Name), newPkg.Name, state); err != nil {
		return result, err
	}

	protected.Union(newPaths)

	return result, nil
}

// resolveConffiles drives pkg/conffile.Resolve for every conffile the new
// package declares, applying the decision to the candidate file that
// ExtractAll staged alongside the live path, and returns the record to
// write into the new <name>.conffiles.
func resolveConffiles(
	ec *ectx.EngineContext, name, root string, newConffileNames []string, oldConffiles map[string]string,
) (map[string]string, error) {
	record := make(map[string]string, len(newConffileNames))
	prompter := conffile.InteractivePrompter{}

	for _, path := range newConffileNames {
		livePath := filepath.Join(root, path)
		candidatePath := livePath + candidateSuffix

		curMD5 := ""
		if conffile.FileExists(livePath) {
			sum, err := checksum.MD5File(livePath)
			if err != nil {
				return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to hash conffile").
					WithOperation("transaction.resolveConffiles").WithContext("path", path)
			}

			curMD5 = sum
		}

		newMD5 := ""
		if conffile.FileExists(candidatePath) {
			sum, err := checksum.MD5File(candidatePath)
			if err != nil {
				return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to hash conffile candidate").
					WithOperation("transaction.resolveConffiles").WithContext("path", path)
			}

			newMD5 = sum
		}

		entry := conffile.Entry{Path: path, OldMD5: oldConffiles[path], CurMD5: curMD5, NewMD5: newMD5}

		resolution, err := conffile.Resolve(entry, conffile.Flags{
			ForceConfNew:   ec.Flags.ForceConfNew,
			ForceConfOld:   ec.Flags.ForceConfOld,
			NonInteractive: ec.Flags.NonInteractive,
		}, prompter)
		if err != nil {
			return nil, err
		}

		if err := applyConffileResolution(livePath, candidatePath, resolution); err != nil {
			return nil, err
		}

		record[path] = resolution.RecordMD5
	}

	return record, nil
}

func applyConffileResolution(livePath, candidatePath string, resolution conffile.Resolution) error {
	if !conffile.FileExists(candidatePath) {
		return nil
	}

	switch {
	case resolution.Decision == conffile.InstallNew:
		if err := os.Rename(candidatePath, livePath); err != nil {
			return aerrors.Wrap(err, aerrors.Filesystem, "failed to install conffile candidate").
				WithOperation("transaction.applyConffileResolution")
		}
	case resolution.WriteNewAside:
		if err := os.Rename(candidatePath, livePath+conffile.AsideSuffix); err != nil {
			return aerrors.Wrap(err, aerrors.Filesystem, "failed to write conffile aside copy").
				WithOperation("transaction.applyConffileResolution")
		}
	default:
		if err := os.Remove(candidatePath); err != nil && !os.IsNotExist(err) {
			return aerrors.Wrap(err, aerrors.Filesystem, "failed to discard conffile candidate").
				WithOperation("transaction.applyConffileResolution")
		}
	}

	return nil
}

// unlinkObsoletePaths removes every path owned by the old version but not
// the new one, unless it is protected by a sibling package or is a
// conffile the user modified (that guard is lifted when purging).
func unlinkObsoletePaths(
	root string, obsolete []string, oldConffiles map[string]string, protected *fileset.Set, purge bool,
) {
	for _, path := range obsolete {
		if protected.Contains(path) {
			continue
		}

		abs := filepath.Join(root, path)

		if !purge && isModifiedConffile(abs, path, oldConffiles) {
			logger.Warn(i18n.T("logger.transaction.warn.conffile_preserved"), "path", path)
			continue
		}

		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			logger.Warn(i18n.T("logger.transaction.warn.unlink_failed"), "path", path, "error", err)
		}
	}
}

func isModifiedConffile(abs, relPath string, oldConffiles map[string]string) bool {
	recorded, ok := oldConffiles[relPath]
	if !ok {
		return false
	}

	cur, err := checksum.MD5File(abs)
	if err != nil {
		return false
	}

	return cur != recorded
}

// replaceInfoFiles overwrites infoDir's control and maintainer scripts
// with the ones staged under tmpDir, and removes any script the old
// package carried that the new one no longer ships.
func replaceInfoFiles(tmpDir, infoDir, name string) error {
	if err := installInfoFiles(tmpDir, infoDir, name); err != nil {
		return err
	}

	for _, phase := range []string{"preinst", "postinst", "prerm", "postrm"} {
		if scriptExists(filepath.Join(tmpDir, phase)) {
			continue
		}

		path := scriptPath(infoDir, name, phase)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return aerrors.Wrap(err, aerrors.Filesystem, "failed to remove stale maintainer script").
				WithOperation("transaction.replaceInfoFiles").WithContext("path", path)
		}
	}

	return nil
}
