package transaction

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	ectx "github.com/aept-pm/aept/pkg/context"

	"github.com/aept-pm/aept/pkg/aerrors"
	"github.com/aept-pm/aept/pkg/archive"
	"github.com/aept-pm/aept/pkg/checksum"
	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/fileset"
	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/mscript"
	"github.com/aept-pm/aept/pkg/status"
)

// installResult reports how the pure-install sub-state-machine finished,
// so the caller's summary reporting can tell a clean install from one
// whose postinst failed.
type installResult struct {
	DemotedToUnpacked bool
}

// pureInstall implements spec §4.7's pure-install sub-state-machine: mkdtemp
// under tmp_dir; extract control; run preinst install; extract data to the
// root; write .list; record conffile md5s; install control stanza and
// scripts into info_dir; run postinst configure (a failure there demotes
// the record to unpacked but is not fatal); atomically update the status
// DB. Every path that fails before postinst returns with the tmp directory
// removed and no status update performed.
func pureInstall(
	ec *ectx.EngineContext, store *status.Store, pkg control.Package, pkgFile string, protected *fileset.Set,
) (installResult, error) {
	tmpDir, err := os.MkdirTemp(ec.TempDir(), sanitizeTmpPrefix(pkg.Name)+"-install-*")
	if err != nil {
		return installResult{}, aerrors.Wrap(err, aerrors.Filesystem, "failed to create staging directory").
			WithOperation("transaction.pureInstall")
	}
	defer os.RemoveAll(tmpDir) //nolint:errcheck

	pkgArchive := archive.Package{Path: pkgFile}
	if err := pkgArchive.VerifyMagic(); err != nil {
		return installResult{}, err
	}

	if err := extractControlFiles(&pkgArchive, tmpDir); err != nil {
		return installResult{}, err
	}

	if scriptExists(filepath.Join(tmpDir, "preinst")) {
		if err := runScript(ec, pkg.Name, filepath.Join(tmpDir, "preinst"),
			mscript.OpInstall, mscript.Preinst, pkg.Version, ""); err != nil {
			return installResult{}, err
		}
	}

	root := ec.ResolvePath("/")

	conffileNames, err := loadPackageConffiles(&pkgArchive)
	if err != nil {
		return installResult{}, err
	}

	if _, err := pkgArchive.ExtractAll(root, nil, "", archive.Flags{
		Owner: !ec.Flags.IgnoreUID, Perm: true, Time: true,
	}); err != nil {
		return installResult{}, err
	}

	var listBuf bytes.Buffer
	if err := pkgArchive.ListPathsToStream(&listBuf); err != nil {
		return installResult{}, err
	}

	if err := writeListFile(listPath(ec.Paths.InfoDir, pkg.Name), listBuf.Bytes()); err != nil {
		return installResult{}, err
	}

	entries, err := readList(listPath(ec.Paths.InfoDir, pkg.Name))
	if err != nil {
		return installResult{}, err
	}

	protected.Union(listPaths(entries))

	if len(conffileNames) > 0 {
		record := hashConffiles(root, pkg.Name, conffileNames)
		if err := writeConffiles(conffilesPath(ec.Paths.InfoDir, pkg.Name), record); err != nil {
			return installResult{}, err
		}
	}

	if err := installInfoFiles(tmpDir, ec.Paths.InfoDir, pkg.Name); err != nil {
		return installResult{}, err
	}

	result := installResult{}

	postinstPath := scriptPath(ec.Paths.InfoDir, pkg.Name, "postinst")
	if scriptExists(postinstPath) {
		if err := runScript(ec, pkg.Name, postinstPath, mscript.OpInstall, mscript.Postinst, pkg.Version, ""); err != nil {
			logger.Warn(i18n.T("logger.transaction.warn.postinst_failed"), "package", pkg.Name, "error", err)

			result.DemotedToUnpacked = true
		}
	}

	state := status.StateInstalled
	if result.DemotedToUnpacked {
		state = status.StateUnpacked
	}

	if err := store.Add(controlPath(ec.Paths.InfoDir, pkg.Name), pkg.Name, state); err != nil {
		return result, err
	}

	return result, nil
}

// runScript resolves a maintainer-script invocation's argv via its phase
// and calling convention, runs it, and wraps any failure as a Script
// error. Each caller applies the per-phase outcome itself (the same table
// mscript.ClassifyFailure encodes): Preinst/Prerm abort the calling step,
// Postinst/Postrm do not.
func runScript(
	ec *ectx.EngineContext, packageName, scriptPath string,
	op mscript.Operation, phase mscript.Phase, newVersion, oldVersion string,
) error {
	args := mscript.Args(op, phase, newVersion, oldVersion)

	_, err := mscript.Invoke(ec.Ctx, mscript.Request{
		PackageName: packageName,
		Phase:       phase,
		ScriptPath:  scriptPath,
		Args:        args,
		OfflineRoot: ec.OfflineRoot,
	})
	if err != nil {
		return aerrors.Wrap(err, aerrors.Script, fmt.Sprintf("%s script failed", phase)).
			WithOperation("transaction.runScript").WithContext("package", packageName)
	}

	return nil
}

// hashConffiles computes the on-disk MD5 of every declared conffile path,
// skipping (and warning about) any that failed to extract.
func hashConffiles(root, name string, paths []string) map[string]string {
	record := make(map[string]string, len(paths))

	for _, p := range paths {
		abs := filepath.Join(root, p)

		sum, err := checksum.MD5File(abs)
		if err != nil {
			logger.Warn(i18n.T("logger.transaction.warn.conffile_missing"), "package", name, "path", p, "error", err)
			continue
		}

		record[p] = sum
	}

	return record
}

// sanitizeTmpPrefix strips path separators from a package name before
// using it as a MkdirTemp prefix component.
func sanitizeTmpPrefix(name string) string {
	return filepath.Base(name)
}
