package lock_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aept-pm/aept/pkg/aerrors"
	"github.com/aept-pm/aept/pkg/lock"
)

func TestAcquireAndRelease(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lock")

	l, err := lock.Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestAcquireHeldIsConcurrencyError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lock")

	first, err := lock.Acquire(path)
	require.NoError(t, err)
	defer first.Release() //nolint:errcheck

	_, err = lock.Acquire(path)
	require.Error(t, err)

	kind, ok := aerrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, aerrors.Concurrency, kind)
}

func TestReleaseThenReacquire(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lock")

	first, err := lock.Acquire(path)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := lock.Acquire(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}
