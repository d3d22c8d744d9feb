// Package query implements the read-only, lock-free inspection surface
// spec §2 names as the query layer: show, list, files, owns, and
// print-architecture. None of these take the advisory lock pkg/lock
// guards the transaction engine with — a concurrent mutator is tolerated
// by treating any read error as "not found" rather than surfacing it,
// per spec §5's "Query operations ... tolerate a concurrent mutator by
// treating read errors as not found."
package query

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/status"
)

// Show returns the full control stanza for each named package, preferring
// the installed stanza over an indexed one. A name matching neither is
// silently omitted from the result, not reported as an error.
func Show(_ context.Context, store *status.Store, listsDir string, names []string) ([]control.Package, error) {
	if len(names) == 0 {
		return nil, nil
	}

	records, err := store.Load()
	if err != nil {
		records = nil // an unreadable status DB reads as "nothing installed"
	}

	installed := make(map[string]control.Package, len(records))
	for _, r := range records {
		installed[r.Package.Name] = r.Package
	}

	indexed, err := loadAllIndexed(listsDir)
	if err != nil {
		return nil, err
	}

	result := make([]control.Package, 0, len(names))

	for _, name := range names {
		if pkg, ok := installed[name]; ok {
			result = append(result, pkg)
			continue
		}

		if pkg, ok := indexed[name]; ok {
			result = append(result, pkg)
		}
	}

	return result, nil
}

// List returns every installed package whose name matches pattern (a
// path.Match glob). An empty pattern matches everything.
func List(_ context.Context, store *status.Store, pattern string) ([]control.Package, error) {
	records, err := store.Load()
	if err != nil {
		return nil, nil //nolint:nilerr // an unreadable status DB reads as "nothing installed"
	}

	var matched []control.Package

	for _, r := range records {
		if pattern == "" {
			matched = append(matched, r.Package)
			continue
		}

		ok, err := path.Match(pattern, r.Package.Name)
		if err != nil {
			return nil, err
		}

		if ok {
			matched = append(matched, r.Package)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	return matched, nil
}

// Files returns the paths recorded in name's .list file, or nil if the
// package is unknown or the file is unreadable.
func Files(_ context.Context, infoDir, name string) ([]string, error) {
	listPath := filepath.Join(infoDir, name+".list")

	f, err := os.Open(filepath.Clean(listPath))
	if err != nil {
		return nil, nil //nolint:nilerr // ENOENT/partial read reads as "not found", per spec §5
	}
	defer f.Close() //nolint:errcheck

	var paths []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) >= 1 && fields[0] != "" { //nolint:mnd
			paths = append(paths, fields[0])
		}
	}

	return paths, nil
}

// Owns scans every info_dir/*.list file for the one that contains path,
// returning that package's name. A read failure on any single list file
// is skipped rather than surfaced, consistent with the rest of this
// package's not-found tolerance.
func Owns(_ context.Context, infoDir, target string) (string, bool, error) {
	matches, err := filepath.Glob(filepath.Join(infoDir, "*.list"))
	if err != nil {
		return "", false, nil //nolint:nilerr
	}

	for _, m := range matches {
		f, err := os.Open(filepath.Clean(m))
		if err != nil {
			continue
		}

		found := false

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			fields := strings.Split(scanner.Text(), "\t")
			if len(fields) >= 1 && fields[0] == target { //nolint:mnd
				found = true
				break
			}
		}

		f.Close() //nolint:errcheck,gosec

		if found {
			name := strings.TrimSuffix(filepath.Base(m), ".list")
			return name, true, nil
		}
	}

	return "", false, nil
}

// PrintArchitecture returns the primary entry of the configured
// architecture preference list.
func PrintArchitecture(archPreference []string) (string, error) {
	if len(archPreference) == 0 {
		return "", errors.New("no architecture configured")
	}

	return archPreference[0], nil
}

func loadAllIndexed(listsDir string) (map[string]control.Package, error) {
	entries, err := os.ReadDir(listsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]control.Package{}, nil
		}

		return nil, nil //nolint:nilerr // unreadable lists_dir reads as "nothing indexed"
	}

	indexed := make(map[string]control.Package)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		pkgs, err := loadIndex(filepath.Join(listsDir, entry.Name()))
		if err != nil {
			continue
		}

		for _, pkg := range pkgs {
			if _, exists := indexed[pkg.Name]; !exists {
				indexed[pkg.Name] = pkg
			}
		}
	}

	return indexed, nil
}

func loadIndex(path string) ([]control.Package, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	stanzas, err := control.ParseStanzas(f)
	if err != nil {
		return nil, err
	}

	pkgs := make([]control.Package, 0, len(stanzas))
	for _, s := range stanzas {
		pkgs = append(pkgs, control.PackageFromStanza(s))
	}

	return pkgs, nil
}
