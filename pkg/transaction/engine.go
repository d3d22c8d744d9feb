package transaction

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	ectx "github.com/aept-pm/aept/pkg/context"

	"github.com/aept-pm/aept/pkg/aerrors"
	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/fileset"
	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/lock"
	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/solver"
	"github.com/aept-pm/aept/pkg/status"
)

// Input bundles the job queue and flags spec §4.7's "Inputs" line names.
type Input struct {
	Jobs []solver.Job
	// LocalFiles are .ipk/.deb paths named directly on the command line.
	LocalFiles []string
	// Sources resolves a solver step's Source name to a download URL.
	Sources []control.Source
	Pins    map[string]string
	// ExplicitNames are the package names the user actually typed, for
	// step 5's mark-intents and step 9's reinstall pass.
	ExplicitNames []string
}

// Summary reports what a Run actually did.
type Summary struct {
	Transaction solver.Transaction
	Installed   []string
	Removed     []string
	Demoted     []string
}

// Run drives spec §4.7's ten-step transaction engine end to end: lock,
// load, resolve, present, mark-intents, download, execute, auto-mark,
// reinstall, unlock.
func Run(ec *ectx.EngineContext, store *status.Store, in Input) (Summary, error) {
	heldLock, err := lock.Acquire(ec.Paths.LockFile)
	if err != nil {
		return Summary{}, err
	}
	defer heldLock.Release() //nolint:errcheck

	pool, err := buildPool(store, ec.Paths.ListsDir, ec.Architecture, in.LocalFiles)
	if err != nil {
		return Summary{}, err
	}

	txn, problems := solver.Solve(pool, in.Jobs, solver.Options{
		Pins:           in.Pins,
		ForceDepends:   ec.Flags.ForceDepends,
		AllowDowngrade: ec.Flags.AllowDowngrade,
	})
	if len(problems) > 0 {
		return Summary{}, resolveError(problems)
	}

	proceed, err := present(ec, txn)
	if err != nil {
		return Summary{}, err
	}

	if !proceed {
		return Summary{Transaction: txn}, nil
	}

	markIntents(store, pool, in.ExplicitNames)

	sources := make(map[string]control.Source, len(in.Sources))
	for _, s := range in.Sources {
		sources[s.Name] = s
	}

	noCache := ec.Flags.NoCache && !ec.Flags.DownloadOnly

	var preFetched map[int]packageFile

	if !noCache {
		preFetched, err = preDownload(ec.Ctx, ec, sources, txn.Steps)
		if err != nil {
			return Summary{}, err
		}
	}

	if ec.Flags.DownloadOnly {
		return Summary{Transaction: txn}, nil
	}

	summary, err := execute(ec, store, txn, sources, preFetched, noCache)
	if err != nil {
		return summary, err
	}

	autoMark(store, txn)

	if ec.Flags.Reinstall {
		if err := reinstallPass(ec, store, pool, sources, txn, in.ExplicitNames, &summary); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func resolveError(problems []solver.Problem) error {
	msgs := make([]string, 0, len(problems))
	for _, p := range problems {
		msgs = append(msgs, fmt.Sprintf("%s: %s", p.Job.Name, p.Message))
	}

	return aerrors.New(aerrors.Resolve, i18n.T("errors.resolve_failed")+": "+strings.Join(msgs, "; ")).
		WithOperation("transaction.Run").WithContext("problems", msgs)
}

// present renders the plan and, unless noaction or the plan matches
// exactly what the user asked for, confirms before proceeding.
func present(ec *ectx.EngineContext, txn solver.Transaction) (bool, error) {
	var installs, removes []string

	expanded := false

	for _, step := range txn.Steps {
		switch step.Kind {
		case solver.StepInstall:
			installs = append(installs, fmt.Sprintf("%s (%s)", step.Package.Name, step.Package.Version))
		case solver.StepErase:
			if !step.PairedWithInstall {
				removes = append(removes, step.Package.Name)
			}
		}

		if !step.Explicit && !step.PairedWithInstall {
			expanded = true
		}
	}

	if len(installs) == 0 && len(removes) == 0 {
		logger.Info(i18n.T("messages.nothing_to_do"))
		return false, nil
	}

	logger.Info(i18n.T("messages.plan_header"), "install", installs, "remove", removes)

	if ec.Flags.NoAction {
		return false, nil
	}

	if !expanded || ec.Flags.AssumeYes || ec.Flags.NonInteractive {
		return true, nil
	}

	confirmed, err := pterm.DefaultInteractiveConfirm.Show()
	if err != nil {
		return false, aerrors.Wrap(err, aerrors.Safety, "confirmation prompt failed").
			WithOperation("transaction.present")
	}

	return confirmed, nil
}

// markIntents implements step 5: clear the auto mark for every explicitly
// named package and for every installed solvable that provides that name.
func markIntents(store *status.Store, pool *solver.Pool, explicitNames []string) {
	names := fileset.FromSlice(explicitNames)

	for _, pkg := range pool.Installed {
		if names.Contains(pkg.Name) {
			_ = store.UnmarkAuto(pkg.Name)
			continue
		}

		for _, provided := range pkg.ProvidesNames() {
			if names.Contains(provided) {
				_ = store.UnmarkAuto(pkg.Name)
				break
			}
		}
	}
}

// execute implements step 7 and its three sub-state-machines, threading a
// protected file-set across steps so a later ERASE cannot delete a path a
// prior INSTALL in the same transaction now owns.
func execute(
	ec *ectx.EngineContext, store *status.Store, txn solver.Transaction,
	sources map[string]control.Source, preFetched map[int]packageFile, noCache bool,
) (Summary, error) {
	summary := Summary{Transaction: txn}
	protected := fileset.New()

	for i, step := range txn.Steps {
		if ec.Interrupted() {
			logger.Info(i18n.T("logger.transaction.info.interrupted"))

			return summary, aerrors.New(aerrors.Concurrency, "interrupted").WithOperation("transaction.execute")
		}

		switch step.Kind {
		case solver.StepInstall:
			if err := executeInstallStep(ec, store, step, i, sources, preFetched, noCache, protected, &summary); err != nil {
				return summary, err
			}
		case solver.StepErase:
			if step.PairedWithInstall {
				continue
			}

			if err := pureRemove(ec, store, step.Package.Name, protected); err != nil {
				return summary, err
			}

			summary.Removed = append(summary.Removed, step.Package.Name)
		}
	}

	return summary, nil
}

func executeInstallStep(
	ec *ectx.EngineContext, store *status.Store, step solver.Step, index int,
	sources map[string]control.Source, preFetched map[int]packageFile, noCache bool,
	protected *fileset.Set, summary *Summary,
) error {
	pf, err := resolveStepFile(ec, step, index, sources, preFetched, noCache)
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	if step.Obsoletes != nil {
		result, err := pureUpgrade(ec, store, *step.Obsoletes, step.Package, pf.Path, protected)
		if err != nil {
			return err
		}

		if result.DemotedToUnpacked {
			summary.Demoted = append(summary.Demoted, step.Package.Name)
		}
	} else {
		result, err := pureInstall(ec, store, step.Package, pf.Path, protected)
		if err != nil {
			return err
		}

		if result.DemotedToUnpacked {
			summary.Demoted = append(summary.Demoted, step.Package.Name)
		}
	}

	summary.Installed = append(summary.Installed, step.Package.Name)

	return nil
}

func resolveStepFile(
	ec *ectx.EngineContext, step solver.Step, index int,
	sources map[string]control.Source, preFetched map[int]packageFile, noCache bool,
) (packageFile, error) {
	if step.Source == "commandline" {
		return packageFile{Path: step.Package.Filename}, nil
	}

	if !noCache {
		pf, ok := preFetched[index]
		if !ok {
			return packageFile{}, aerrors.New(aerrors.DownloadVerify, "package was not pre-downloaded").
				WithOperation("transaction.resolveStepFile").WithContext("package", step.Package.Name)
		}

		return pf, nil
	}

	src, ok := sources[step.Source]
	if !ok {
		return packageFile{}, aerrors.New(aerrors.DownloadVerify, "unknown source for package").
			WithOperation("transaction.resolveStepFile").WithContext("source", step.Source)
	}

	return noCacheDownload(ec.Ctx, ec, src, step.Package)
}

// autoMark implements step 8: every INSTALL step the solver did not mark
// explicit is recorded as auto-installed.
func autoMark(store *status.Store, txn solver.Transaction) {
	for _, step := range txn.Steps {
		if step.Kind == solver.StepInstall && !step.Explicit {
			_ = store.MarkAuto(step.Package.Name)
		}
	}
}

// reinstallPass implements step 9: every explicitly named package the
// solver's transaction did not already touch is re-installed from its
// currently installed version.
func reinstallPass(
	ec *ectx.EngineContext, store *status.Store, pool *solver.Pool,
	sources map[string]control.Source, txn solver.Transaction, explicitNames []string, summary *Summary,
) error {
	touched := fileset.New()
	for _, step := range txn.Steps {
		touched.Add(step.Package.Name)
	}

	for _, name := range explicitNames {
		if touched.Contains(name) {
			continue
		}

		version, ok, err := store.InstalledVersion(name)
		if err != nil {
			return err
		}

		if !ok {
			continue
		}

		pkg, source, found := findExactInPool(pool, name, version)
		if !found {
			logger.Warn(i18n.T("logger.transaction.warn.reinstall_unavailable"), "package", name)
			continue
		}

		var (
			pf   packageFile
			err2 error
		)

		if source == "commandline" {
			pf = packageFile{Path: pkg.Filename}
		} else {
			src, ok := sources[source]
			if !ok {
				logger.Warn(i18n.T("logger.transaction.warn.reinstall_unavailable"), "package", name)
				continue
			}

			pf, err2 = cachedPackageFile(ec, src, pkg)
			if err2 != nil {
				return err2
			}
		}

		protected := fileset.New()

		result, err := pureInstall(ec, store, pkg, pf.Path, protected)
		if err != nil {
			return err
		}

		if result.DemotedToUnpacked {
			summary.Demoted = append(summary.Demoted, name)
		}

		summary.Installed = append(summary.Installed, name)
	}

	return nil
}

func cachedPackageFile(ec *ectx.EngineContext, src control.Source, pkg control.Package) (packageFile, error) {
	path, err := cachedDownload(ec.Ctx, ec, src, pkg)
	if err != nil {
		return packageFile{}, err
	}

	return packageFile{Path: path}, nil
}

// findExactInPool returns the candidate matching name/version across the
// commandline and repo pools, along with the source it came from.
func findExactInPool(pool *solver.Pool, name, version string) (control.Package, string, bool) {
	for _, pkg := range pool.Commandline {
		if pkg.Name == name && pkg.Version == version {
			return pkg, "commandline", true
		}
	}

	for source, pkgs := range pool.Repos {
		for _, pkg := range pkgs {
			if pkg.Name == name && pkg.Version == version {
				return pkg, source, true
			}
		}
	}

	return control.Package{}, "", false
}
