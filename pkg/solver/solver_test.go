package solver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/solver"
)

func TestInstallByNameFreshInstall(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pool.AddRepo("main", []control.Package{{Name: "demo", Version: "1.0-1"}})

	txn, problems := solver.Solve(pool, []solver.Job{{Kind: solver.JobInstallName, Name: "demo"}}, solver.Options{})
	require.Empty(t, problems)
	require.Len(t, txn.Steps, 1)
	require.Equal(t, solver.StepInstall, txn.Steps[0].Kind)
	require.Nil(t, txn.Steps[0].Obsoletes)
	require.True(t, txn.Steps[0].Explicit)
}

func TestInstallByProvides(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pool.AddRepo("main", []control.Package{{Name: "python3.9", Version: "3.9-1", Provides: []string{"python"}}})

	txn, problems := solver.Solve(pool, []solver.Job{{Kind: solver.JobInstallName, Name: "python"}}, solver.Options{})
	require.Empty(t, problems)
	require.Len(t, txn.Steps, 1)
	require.Equal(t, "python3.9", txn.Steps[0].Package.Name)
}

func TestUpgradePairsWithErase(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pool.Installed = []control.Package{{Name: "demo", Version: "1.0-1"}}
	pool.AddRepo("main", []control.Package{{Name: "demo", Version: "2.0-1"}})

	txn, problems := solver.Solve(pool, []solver.Job{{Kind: solver.JobInstallName, Name: "demo"}}, solver.Options{})
	require.Empty(t, problems)
	require.Len(t, txn.Steps, 2)
	require.Equal(t, solver.StepInstall, txn.Steps[0].Kind)
	require.NotNil(t, txn.Steps[0].Obsoletes)
	require.Equal(t, "1.0-1", txn.Steps[0].Obsoletes.Version)
	require.Equal(t, solver.StepErase, txn.Steps[1].Kind)
	require.True(t, txn.Steps[1].PairedWithInstall)
}

func TestSameVersionIsNoOp(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pool.Installed = []control.Package{{Name: "demo", Version: "1.0-1"}}
	pool.AddRepo("main", []control.Package{{Name: "demo", Version: "1.0-1"}})

	txn, problems := solver.Solve(pool, []solver.Job{{Kind: solver.JobInstallName, Name: "demo"}}, solver.Options{})
	require.Empty(t, problems)
	require.Empty(t, txn.Steps)
}

func TestDowngradeRejectedWithoutAllowDowngrade(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pool.Installed = []control.Package{{Name: "demo", Version: "2.0-1"}}
	pool.AddRepo("main", []control.Package{{Name: "demo", Version: "1.0-1"}})

	_, problems := solver.Solve(pool, []solver.Job{{Kind: solver.JobInstallName, Name: "demo"}}, solver.Options{})
	require.NotEmpty(t, problems)
}

func TestDowngradeAllowed(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pool.Installed = []control.Package{{Name: "demo", Version: "2.0-1"}}
	pool.AddRepo("main", []control.Package{{Name: "demo", Version: "1.0-1"}})

	txn, problems := solver.Solve(pool, []solver.Job{{Kind: solver.JobInstallName, Name: "demo"}}, solver.Options{AllowDowngrade: true})
	require.Empty(t, problems)
	require.Len(t, txn.Steps, 2)
}

func TestEraseInstalled(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pool.Installed = []control.Package{{Name: "demo", Version: "1.0-1"}}

	txn, problems := solver.Solve(pool, []solver.Job{{Kind: solver.JobErase, Name: "demo"}}, solver.Options{})
	require.Empty(t, problems)
	require.Len(t, txn.Steps, 1)
	require.Equal(t, solver.StepErase, txn.Steps[0].Kind)
}

func TestEraseNotInstalledIsProblem(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()

	_, problems := solver.Solve(pool, []solver.Job{{Kind: solver.JobErase, Name: "demo"}}, solver.Options{})
	require.NotEmpty(t, problems)
}

func TestUpdateAll(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pool.Installed = []control.Package{
		{Name: "a", Version: "1.0-1"},
		{Name: "b", Version: "1.0-1"},
	}
	pool.AddRepo("main", []control.Package{
		{Name: "a", Version: "2.0-1"},
		{Name: "b", Version: "1.0-1"},
	})

	txn, problems := solver.Solve(pool, []solver.Job{{Kind: solver.JobUpdateAll}}, solver.Options{})
	require.Empty(t, problems)
	require.Len(t, txn.Steps, 2) // a's install + paired erase; b unchanged

	names := map[string]bool{}
	for _, step := range txn.Steps {
		names[step.Package.Name] = true
	}
	require.True(t, names["a"])
}

func TestUpdateAllRespectsLock(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pool.Installed = []control.Package{{Name: "a", Version: "1.0-1"}}
	pool.AddRepo("main", []control.Package{{Name: "a", Version: "2.0-1"}})

	txn, problems := solver.Solve(pool, []solver.Job{
		{Kind: solver.JobLock, Name: "a"},
		{Kind: solver.JobUpdateAll},
	}, solver.Options{})
	require.Empty(t, problems)
	require.Empty(t, txn.Steps)
}

func TestPinTranslatesToExactVersion(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pool.AddRepo("main", []control.Package{
		{Name: "demo", Version: "1.0-1"},
		{Name: "demo", Version: "2.0-1"},
	})

	txn, problems := solver.Solve(pool,
		[]solver.Job{{Kind: solver.JobInstallName, Name: "demo"}},
		solver.Options{Pins: map[string]string{"demo": "1.0-1"}})
	require.Empty(t, problems)
	require.Len(t, txn.Steps, 1)
	require.Equal(t, "1.0-1", txn.Steps[0].Package.Version)
}

func TestInstallExactFromCommandline(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pkg := control.Package{Name: "local", Version: "9.9-1"}
	pool.Commandline = []control.Package{pkg}

	txn, problems := solver.Solve(pool, []solver.Job{{Kind: solver.JobInstallExact, Exact: &pkg}}, solver.Options{})
	require.Empty(t, problems)
	require.Len(t, txn.Steps, 1)
	require.Equal(t, "commandline", txn.Steps[0].Source)
}

func TestDependencyClosure(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pool.AddRepo("main", []control.Package{
		{Name: "demo", Version: "1.0-1", Depends: []string{"libfoo (>= 2.0)"}},
		{Name: "libfoo", Version: "2.1-1"},
	})

	txn, problems := solver.Solve(pool, []solver.Job{{Kind: solver.JobInstallName, Name: "demo"}}, solver.Options{})
	require.Empty(t, problems)
	require.Len(t, txn.Steps, 2)

	var sawDep bool

	for _, step := range txn.Steps {
		if step.Package.Name == "libfoo" {
			sawDep = true
			require.False(t, step.Explicit)
		}
	}

	require.True(t, sawDep)
}

func TestMissingCandidateIsProblem(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()

	_, problems := solver.Solve(pool, []solver.Job{{Kind: solver.JobInstallName, Name: "missing"}}, solver.Options{})
	require.NotEmpty(t, problems)
}

func TestForceDependsRetriesOnce(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()
	pool.AddRepo("main", []control.Package{
		{Name: "demo", Version: "1.0-1", Depends: []string{"missing-dep"}},
	})

	txn, problems := solver.Solve(pool,
		[]solver.Job{{Kind: solver.JobInstallName, Name: "demo"}},
		solver.Options{ForceDepends: true})
	require.Empty(t, problems)
	require.Len(t, txn.Steps, 1)
	require.Equal(t, "demo", txn.Steps[0].Package.Name)
}

func TestForceDependsStillFatalOnSecondFailure(t *testing.T) {
	t.Parallel()

	pool := solver.NewPool()

	_, problems := solver.Solve(pool,
		[]solver.Job{{Kind: solver.JobInstallName, Name: "missing"}},
		solver.Options{ForceDepends: true})
	require.NotEmpty(t, problems)
}
