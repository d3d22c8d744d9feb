package fileset_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aept-pm/aept/pkg/fileset"
)

func TestAddContainsLen(t *testing.T) {
	t.Parallel()

	s := fileset.New()
	s.Add("b")
	s.Add("a")
	s.Add("a")

	require.Equal(t, 2, s.Len())
	require.True(t, s.Contains("a"))
	require.False(t, s.Contains("z"))
}

func TestSortedOrdersLazily(t *testing.T) {
	t.Parallel()

	s := fileset.FromSlice([]string{"c", "a", "b"})
	require.Equal(t, []string{"a", "b", "c"}, s.Sorted())
}

func TestRemove(t *testing.T) {
	t.Parallel()

	s := fileset.FromSlice([]string{"a", "b", "c"})
	s.Remove("b")

	require.False(t, s.Contains("b"))
	require.Equal(t, 2, s.Len())
	require.Equal(t, []string{"a", "c"}, s.Sorted())
}

func TestUnion(t *testing.T) {
	t.Parallel()

	a := fileset.FromSlice([]string{"a", "b"})
	b := fileset.FromSlice([]string{"b", "c"})

	a.Union(b)

	require.Equal(t, []string{"a", "b", "c"}, a.Sorted())
}

func TestDifference(t *testing.T) {
	t.Parallel()

	a := fileset.FromSlice([]string{"a", "b", "c"})
	b := fileset.FromSlice([]string{"b"})

	require.Equal(t, []string{"a", "c"}, a.Difference(b))
}
