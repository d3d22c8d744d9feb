package transaction

import (
	"strings"

	ectx "github.com/aept-pm/aept/pkg/context"

	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/fileset"
	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/lock"
	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/status"
)

// Autoremove implements the autoremove job end to end: lock, compute
// candidates, feed each sequentially through pure-remove. An empty
// auto-set is a no-op, per spec §4.7's edge cases.
func Autoremove(ec *ectx.EngineContext, store *status.Store) ([]string, error) {
	heldLock, err := lock.Acquire(ec.Paths.LockFile)
	if err != nil {
		return nil, err
	}
	defer heldLock.Release() //nolint:errcheck

	candidates, err := autoremoveCandidates(store)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		logger.Info(i18n.T("messages.nothing_to_do"))
		return nil, nil
	}

	protected := fileset.New()
	removed := make([]string, 0, len(candidates))

	for _, name := range candidates {
		if ec.Interrupted() {
			logger.Info(i18n.T("logger.transaction.info.interrupted"))
			break
		}

		if err := pureRemove(ec, store, name, protected); err != nil {
			return removed, err
		}

		removed = append(removed, name)
	}

	return removed, nil
}

// autoremoveCandidates returns every auto-installed package name that is no
// longer reachable from a manually-installed package by walking Depends
// (Pre-Depends counts as depends-equivalent, per spec §4.7's autoremove
// description). Reachability, not an exact solver run, decides this list:
// a virtual dependency's every provider is treated as reachable, which
// errs toward keeping a package rather than removing one a satisfied
// alternative still needs.
func autoremoveCandidates(store *status.Store) ([]string, error) {
	records, err := store.Load()
	if err != nil {
		return nil, err
	}

	auto, err := store.LoadAutoSet()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]control.Package, len(records))
	providers := make(map[string][]string)

	for _, r := range records {
		byName[r.Package.Name] = r.Package

		for _, provided := range r.Package.ProvidesNames() {
			providers[provided] = append(providers[provided], r.Package.Name)
		}
	}

	visited := make(map[string]bool, len(records))

	var queue []string

	for _, r := range records {
		if !auto.Contains(r.Package.Name) {
			queue = append(queue, r.Package.Name)
		}
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if visited[name] {
			continue
		}

		visited[name] = true

		pkg, ok := byName[name]
		if !ok {
			continue
		}

		for _, dep := range dependsEquivalent(pkg) {
			base := depBaseName(dep)

			queue = append(queue, base)
			queue = append(queue, providers[base]...)
		}
	}

	var candidates []string

	for _, name := range auto.Sorted() {
		if !visited[name] {
			candidates = append(candidates, name)
		}
	}

	return candidates, nil
}

func dependsEquivalent(pkg control.Package) []string {
	deps := make([]string, 0, len(pkg.Depends)+len(pkg.PreDepends))
	deps = append(deps, pkg.Depends...)
	deps = append(deps, pkg.PreDepends...)

	return deps
}

// depBaseName extracts the first alternative's bare package name from a
// dependency expression such as "foo | bar (>= 1.0)".
func depBaseName(dep string) string {
	name := strings.TrimSpace(dep)
	if idx := strings.IndexByte(name, '|'); idx != -1 {
		name = name[:idx]
	}

	name = strings.TrimSpace(name)
	if idx := strings.IndexByte(name, ' '); idx != -1 {
		name = name[:idx]
	}

	if idx := strings.IndexByte(name, '('); idx != -1 {
		name = strings.TrimSpace(name[:idx])
	}

	return name
}
