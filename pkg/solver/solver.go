// Package solver implements the adapter contract spec §4.5 specifies: a
// Pool of installed/repo/commandline solvables, a Job queue
// (install-by-name, install-exact, erase, update-all, lock), and a
// resulting ordered Transaction of INSTALL/ERASE Steps, paired when they
// obsolete one another. The underlying SAT-style resolution algorithm is
// explicitly out of scope for this spec ("specified only by the contract
// the engine requires of it") — the resolver below is a BFS/closure walk
// over Depends sufficient to drive and test the engine, not a claim of SAT
// completeness. Terminology (job queue, installed/repo/commandline pools,
// "bimodal" root-vs-transitive solving) is informed by reading — not
// copying — the golang-dep `gps` solver files retrieved in
// other_examples/ for this spec.
package solver

import (
	"sort"
	"strings"

	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/debversion"
)

// JobKind identifies one of the five job-queue entries spec §4.5 allows.
type JobKind int

const (
	JobInstallName JobKind = iota
	JobInstallExact
	JobErase
	JobUpdateAll
	JobLock
)

// Job is one entry in the queue handed to Solve.
type Job struct {
	Kind JobKind
	Name string
	// Exact is the specific package to install for JobInstallExact (local
	// files, pinned-version installs).
	Exact *control.Package
}

// StepKind distinguishes an INSTALL from an ERASE step.
type StepKind int

const (
	StepInstall StepKind = iota
	StepErase
)

// Step is one entry in the ordered Transaction the solver returns.
type Step struct {
	Kind    StepKind
	Package control.Package
	// Explicit is true when this step was named directly in the job queue
	// (not pulled in purely as a dependency) — the engine uses this for
	// auto-mark and for "mark intents" (spec §4.7 step 5/8).
	Explicit bool
	// Obsoletes names the package this INSTALL step replaces (same name,
	// different EVR) when the two are paired into one upgrade/downgrade
	// sub-state-machine run. Empty for a pure install.
	Obsoletes *control.Package
	// PairedWithInstall is true on an ERASE step that is the obsoleted
	// half of a paired upgrade; the engine must skip processing it again
	// in the pure-remove sub-state-machine (spec §4.7's note on this).
	PairedWithInstall bool
	// Source names which pool the package came from: "installed",
	// "commandline", or a configured source name.
	Source string
}

// Transaction is the ordered step list a successful Solve returns.
type Transaction struct {
	Steps []Step
}

// Problem describes why Solve could not satisfy the job queue.
type Problem struct {
	Job     Job
	Message string
}

// Pool holds every solvable available to the resolver: the installed set,
// one repo per configured source, and an optional commandline repo for
// local files named directly on the command line.
type Pool struct {
	Installed   []control.Package
	Repos       map[string][]control.Package // source name -> packages
	Commandline []control.Package
	// ArchPreference orders architecture names most- to least-preferred;
	// it only breaks ties between candidates of equal version and excludes
	// no candidate.
	ArchPreference []string
}

// NewPool returns an empty Pool ready for repos to be added.
func NewPool() *Pool {
	return &Pool{Repos: make(map[string][]control.Package)}
}

// AddRepo registers (or replaces) a source's package list.
func (p *Pool) AddRepo(source string, packages []control.Package) {
	if p.Repos == nil {
		p.Repos = make(map[string][]control.Package)
	}

	p.Repos[source] = packages
}

// Options configures a single Solve call.
type Options struct {
	// Pins maps package name -> pinned version, registered before
	// solving and cleared by the caller on teardown (spec §4.5).
	Pins map[string]string
	// ForceDepends relaxes a first-solve failure by accepting the first
	// candidate for each problem and resolving once more; a second
	// failure is fatal even under force.
	ForceDepends bool
	// AllowDowngrade permits an install job to select an older EVR than
	// what is currently installed.
	AllowDowngrade bool
}

func (p *Pool) allCandidates(name string) []candidate {
	var out []candidate

	for _, pkg := range p.Commandline {
		if providesName(pkg, name) {
			out = append(out, candidate{pkg: pkg, source: "commandline"})
		}
	}

	for source, pkgs := range p.Repos {
		for _, pkg := range pkgs {
			if providesName(pkg, name) {
				out = append(out, candidate{pkg: pkg, source: source})
			}
		}
	}

	return out
}

func providesName(pkg control.Package, name string) bool {
	if pkg.Name == name {
		return true
	}

	for _, provided := range pkg.Provides {
		if provided == name {
			return true
		}
	}

	return false
}

type candidate struct {
	pkg    control.Package
	source string
}

// bestOf picks the highest-EVR candidate, preferring ArchPreference order
// on ties, then first-seen order.
func bestOf(candidates []candidate, archPreference []string) (candidate, bool) {
	if len(candidates) == 0 {
		return candidate{}, false
	}

	archRank := func(arch string) int {
		for i, a := range archPreference {
			if a == arch {
				return i
			}
		}

		return len(archPreference)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case debversion.Compare(c.pkg.Version, best.pkg.Version) > 0:
			best = c
		case debversion.Compare(c.pkg.Version, best.pkg.Version) == 0 &&
			archRank(c.pkg.Architecture) < archRank(best.pkg.Architecture):
			best = c
		}
	}

	return best, true
}

func (p *Pool) installedPackage(name string) (control.Package, bool) {
	for _, pkg := range p.Installed {
		if pkg.Name == name {
			return pkg, true
		}
	}

	return control.Package{}, false
}

func depName(dep string) string {
	name := strings.TrimSpace(dep)
	if idx := strings.IndexByte(name, ' '); idx != -1 {
		name = name[:idx]
	}

	if idx := strings.IndexByte(name, '('); idx != -1 {
		name = strings.TrimSpace(name[:idx])
	}

	return name
}

// resolver holds mutable per-Solve state.
type resolver struct {
	pool     *Pool
	opts     Options
	locked   map[string]bool
	queued   map[string]bool
	steps    []Step
	problems []Problem
	strict   bool
}

// Solve builds and returns a Transaction for jobs over pool, or a problem
// list when resolution fails. Pin handling and force-depends relaxation
// follow spec §4.5 exactly.
func Solve(pool *Pool, jobs []Job, opts Options) (Transaction, []Problem) {
	r := &resolver{pool: pool, opts: opts, locked: map[string]bool{}, queued: map[string]bool{}, strict: true}

	for _, job := range jobs {
		if job.Kind == JobLock {
			r.locked[job.Name] = true
		}
	}

	r.run(jobs)

	if len(r.problems) > 0 && opts.ForceDepends {
		r.steps = nil
		r.queued = map[string]bool{}
		r.strict = false
		relaxed := r.problems
		r.problems = nil
		r.run(jobs)

		if len(r.problems) > 0 {
			return Transaction{}, append(relaxed, r.problems...)
		}
	}

	if len(r.problems) > 0 {
		return Transaction{}, r.problems
	}

	return Transaction{Steps: r.steps}, nil
}

func (r *resolver) run(jobs []Job) {
	for _, job := range jobs {
		switch job.Kind {
		case JobInstallName:
			r.installByName(job, true)
		case JobInstallExact:
			r.installExact(job)
		case JobErase:
			r.erase(job)
		case JobUpdateAll:
			r.updateAll(job)
		case JobLock:
			// handled up-front; locked names are skipped by update-all.
			// Install and erase jobs do not consult the lock.
		}
	}
}

func (r *resolver) installByName(job Job, explicit bool) {
	name := job.Name

	if pinned, ok := r.opts.Pins[name]; ok {
		if pkg, found := r.exactPinned(name, pinned); found {
			r.queueInstall(pkg, "pin", explicit)
			return
		}
		// falls back to best-available with a warning (modeled as a
		// problem only when strict and nothing at all is available).
	}

	candidates := r.pool.allCandidates(name)

	best, ok := bestOf(candidates, r.pool.ArchPreference)
	if !ok {
		// An explicit job target that doesn't exist is always fatal: force-
		// depends relaxes unmet *dependencies*, not a nonexistent primary
		// request. A missing dependency is only reported on the strict
		// (first) pass, so a retry that finds the same gap again quietly
		// proceeds without it — spec §4.5's "accepts the first solution for
		// each problem".
		if explicit || r.strict {
			r.problems = append(r.problems, Problem{Job: job, Message: "no candidate provides " + name})
		}

		return
	}

	r.queueInstall(best.pkg, best.source, explicit)
}

func (r *resolver) exactPinned(name, version string) (candidate, bool) {
	for _, c := range r.pool.allCandidates(name) {
		if c.pkg.Version == version {
			return c, true
		}
	}

	return candidate{}, false
}

func (r *resolver) installExact(job Job) {
	if job.Exact == nil {
		r.problems = append(r.problems, Problem{Job: job, Message: "install-exact job missing package"})

		return
	}

	r.queueInstall(*job.Exact, "commandline", true)
}

func (r *resolver) queueInstall(pkg control.Package, source string, explicit bool) {
	if r.queued[pkg.Name] {
		return
	}

	r.queued[pkg.Name] = true

	installed, isInstalled := r.pool.installedPackage(pkg.Name)

	step := Step{Kind: StepInstall, Package: pkg, Explicit: explicit, Source: source}

	if isInstalled {
		cmp := debversion.Compare(pkg.Version, installed.Version)

		switch {
		case cmp == 0:
			// Already installed at this exact version: no-op, nothing to
			// queue (dpkg-style idempotence).
			r.queued[pkg.Name] = true

			return
		case cmp < 0 && !r.opts.AllowDowngrade:
			if explicit || r.strict {
				r.problems = append(r.problems, Problem{
					Job:     Job{Kind: JobInstallName, Name: pkg.Name},
					Message: "would downgrade " + pkg.Name + " without allow_downgrade",
				})
			}

			return
		default:
			obsoleted := installed
			step.Obsoletes = &obsoleted
		}
	}

	r.steps = append(r.steps, step)

	if step.Obsoletes != nil {
		r.steps = append(r.steps, Step{
			Kind:              StepErase,
			Package:           *step.Obsoletes,
			PairedWithInstall: true,
			Source:            "installed",
		})
	}

	for _, dep := range pkg.Depends {
		name := depName(dep)
		if name == "" || r.queued[name] {
			continue
		}

		if _, already := r.pool.installedPackage(name); already {
			continue
		}

		r.installByName(Job{Kind: JobInstallName, Name: name}, false)
	}
}

func (r *resolver) erase(job Job) {
	pkg, ok := r.pool.installedPackage(job.Name)
	if !ok {
		r.problems = append(r.problems, Problem{Job: job, Message: job.Name + " is not installed"})

		return
	}

	if r.queued[job.Name] {
		return
	}

	r.queued[job.Name] = true
	r.steps = append(r.steps, Step{Kind: StepErase, Package: pkg, Explicit: true, Source: "installed"})
}

func (r *resolver) updateAll(_ Job) {
	names := make([]string, 0, len(r.pool.Installed))
	for _, pkg := range r.pool.Installed {
		names = append(names, pkg.Name)
	}

	sort.Strings(names)

	for _, name := range names {
		if r.locked[name] {
			continue
		}

		if _, pinned := r.opts.Pins[name]; pinned {
			continue
		}

		if r.queued[name] {
			continue
		}

		candidates := r.pool.allCandidates(name)

		best, ok := bestOf(candidates, r.pool.ArchPreference)
		if !ok {
			continue
		}

		installed, _ := r.pool.installedPackage(name)
		if debversion.Compare(best.pkg.Version, installed.Version) <= 0 {
			continue
		}

		r.queueInstall(best.pkg, best.source, false)
	}
}
