// Package transaction implements the core engine spec §4.7 describes:
// lock → load → resolve → present → mark-intents → download → execute →
// auto-mark → reinstall → unlock, driving the three per-step
// sub-state-machines (pure install, upgrade/downgrade, pure remove) over
// pkg/archive, pkg/status, pkg/conffile, pkg/mscript, and pkg/solver. This
// package has no direct teacher analogue — pkg/builders/deb/dpkg.go builds
// one package, this transactionally mutates an installed set — so its
// structure follows the teacher's *idiom* (small per-phase functions,
// aerrors classification, logger key/value calls) rather than any single
// teacher file's body.
package transaction

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aept-pm/aept/pkg/aerrors"
	"github.com/aept-pm/aept/pkg/fileset"
)

// controlPath, listPath, conffilesPath, and scriptPath name the files spec
// §3's info-directory table describes: info_dir/<name>.<ext>.
func controlPath(infoDir, name string) string   { return filepath.Join(infoDir, name+".control") }
func listPath(infoDir, name string) string      { return filepath.Join(infoDir, name+".list") }
func conffilesPath(infoDir, name string) string { return filepath.Join(infoDir, name+".conffiles") }

func scriptPath(infoDir, name, phase string) string {
	return filepath.Join(infoDir, name+"."+phase)
}

// listEntry is one parsed line of a <name>.list file.
type listEntry struct {
	path       string
	mode       string
	linkTarget string
}

func parseListLine(line string) (listEntry, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 { //nolint:mnd
		return listEntry{}, false
	}

	e := listEntry{path: fields[0], mode: fields[1]}
	if len(fields) > 2 { //nolint:mnd
		e.linkTarget = fields[2]
	}

	return e, true
}

// readList parses a <name>.list file, tolerating a missing file (returns
// an empty slice, matching the query layer's ENOENT-tolerant read style).
func readList(path string) ([]listEntry, error) {
	f, err := os.Open(filepath.Clean(path))
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to open list file").
			WithOperation("transaction.readList")
	}
	defer f.Close() //nolint:errcheck

	var entries []listEntry

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if e, ok := parseListLine(scanner.Text()); ok {
			entries = append(entries, e)
		}
	}

	return entries, scanner.Err()
}

func listPaths(entries []listEntry) *fileset.Set {
	set := fileset.New()
	for _, e := range entries {
		set.Add(e.path)
	}

	return set
}

// readConffiles parses a <name>.conffiles file ("md5  rel/path" per line,
// relative to root the same way a .list entry is) into a path -> md5 map.
func readConffiles(path string) (map[string]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}

	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to open conffiles").
			WithOperation("transaction.readConffiles")
	}
	defer f.Close() //nolint:errcheck

	out := make(map[string]string)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 { //nolint:mnd
			continue
		}

		out[fields[1]] = fields[0]
	}

	return out, scanner.Err()
}

func writeConffiles(path string, entries map[string]string) error {
	names := make([]string, 0, len(entries))
	for p := range entries {
		names = append(names, p)
	}

	sort.Strings(names)

	var buf strings.Builder

	for _, p := range names {
		fmt.Fprintf(&buf, "%s  %s\n", entries[p], p)
	}

	return writeAtomic(path, []byte(buf.String()))
}

func writeListFile(path string, data []byte) error {
	return writeAtomic(path, data)
}

// removeInfoFiles deletes every info_dir/<name>.* file, per spec §4.7's
// pure-remove sub-state-machine.
func removeInfoFiles(infoDir, name string) error {
	matches, err := filepath.Glob(filepath.Join(infoDir, name+".*"))
	if err != nil {
		return aerrors.Wrap(err, aerrors.Filesystem, "failed to glob info dir").
			WithOperation("transaction.removeInfoFiles")
	}

	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return aerrors.Wrap(err, aerrors.Filesystem, "failed to remove info file").
				WithOperation("transaction.removeInfoFiles").WithContext("path", m)
		}
	}

	return nil
}

// scriptExists reports whether infoDir/name.phase is present, so the
// engine can skip invoking optional maintainer scripts.
func scriptExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return aerrors.Wrap(err, aerrors.Filesystem, "failed to create directory").
			WithOperation("transaction.writeAtomic")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return aerrors.Wrap(err, aerrors.Filesystem, "failed to create temp file").
			WithOperation("transaction.writeAtomic")
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return aerrors.Wrap(err, aerrors.Filesystem, "failed to write temp file").
			WithOperation("transaction.writeAtomic")
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return aerrors.Wrap(err, aerrors.Filesystem, "failed to sync temp file").
			WithOperation("transaction.writeAtomic")
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return aerrors.Wrap(err, aerrors.Filesystem, "failed to close temp file").
			WithOperation("transaction.writeAtomic")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)

		return aerrors.Wrap(err, aerrors.Filesystem, "failed to rename temp file into place").
			WithOperation("transaction.writeAtomic")
	}

	return nil
}
