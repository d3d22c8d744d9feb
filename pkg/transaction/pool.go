package transaction

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/aept-pm/aept/pkg/aerrors"
	"github.com/aept-pm/aept/pkg/archive"
	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/solver"
	"github.com/aept-pm/aept/pkg/status"
)

// buildPool implements spec §4.7 step 2: load the status DB into the
// solver, load every repository index under lists_dir, and register local
// package files named on the command line as a commandline repo.
func buildPool(store *status.Store, listsDir string, archPreference []string, localFiles []string) (*solver.Pool, error) {
	pool := solver.NewPool()
	pool.ArchPreference = archPreference

	records, err := store.Load()
	if err != nil {
		return nil, err
	}

	pool.Installed = make([]control.Package, 0, len(records))
	for _, r := range records {
		pool.Installed = append(pool.Installed, r.Package)
	}

	entries, err := os.ReadDir(listsDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to read lists directory").
			WithOperation("transaction.buildPool")
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		pkgs, err := loadIndex(filepath.Join(listsDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		pool.AddRepo(entry.Name(), pkgs)
	}

	commandline, err := loadLocalFiles(localFiles)
	if err != nil {
		return nil, err
	}

	pool.Commandline = commandline

	return pool, nil
}

func loadIndex(path string) ([]control.Package, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to open index").
			WithOperation("transaction.loadIndex").WithContext("path", path)
	}
	defer f.Close() //nolint:errcheck

	stanzas, err := control.ParseStanzas(f)
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to parse index").
			WithOperation("transaction.loadIndex").WithContext("path", path)
	}

	pkgs := make([]control.Package, 0, len(stanzas))
	for _, s := range stanzas {
		pkgs = append(pkgs, control.PackageFromStanza(s))
	}

	return pkgs, nil
}

// loadLocalFiles extracts each local package's control stanza so the
// solver can see its name/version/depends, and records the file's own
// path as Package.Filename for the execute phase to open directly
// (spec §4.7's "local-file install").
func loadLocalFiles(paths []string) ([]control.Package, error) {
	pkgs := make([]control.Package, 0, len(paths))

	for _, p := range paths {
		pkg, err := loadLocalFile(p)
		if err != nil {
			return nil, err
		}

		pkgs = append(pkgs, pkg)
	}

	return pkgs, nil
}

func loadLocalFile(path string) (control.Package, error) {
	pkgArchive := archive.Open(path)
	if err := pkgArchive.VerifyMagic(); err != nil {
		return control.Package{}, err
	}

	var buf bytes.Buffer
	if err := pkgArchive.ExtractFileToStream("control", &buf); err != nil {
		return control.Package{}, err
	}

	stanzas, err := control.ParseStanzas(&buf)
	if err != nil || len(stanzas) == 0 {
		return control.Package{}, aerrors.New(aerrors.Extraction, "local package has no control stanza").
			WithOperation("transaction.loadLocalFile").WithContext("path", path)
	}

	pkg := control.PackageFromStanza(stanzas[0])
	pkg.Filename = path

	return pkg, nil
}
