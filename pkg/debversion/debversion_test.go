package debversion_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aept-pm/aept/pkg/debversion"
)

func TestParse(t *testing.T) {
	t.Parallel()

	v := debversion.Parse("2:1.2.3-4")
	require.Equal(t, 2, v.Epoch)
	require.Equal(t, "1.2.3", v.Upstream)
	require.Equal(t, "4", v.Revision)

	v = debversion.Parse("1.2.3")
	require.Equal(t, 0, v.Epoch)
	require.Equal(t, "1.2.3", v.Upstream)
	require.Equal(t, "0", v.Revision)
}

func TestCompare(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.1", -1},
		{"1.1", "1.0", 1},
		{"1:1.0", "2.0", 1},
		{"1.0-1", "1.0-2", -1},
		{"1.0~rc1", "1.0", -1},
		{"1.0", "1.0~rc1", 1},
		{"1.0a", "1.0b", -1},
		{"1.9", "1.10", -1},
		{"1.010", "1.10", 0},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, debversion.Compare(tc.a, tc.b), "%s vs %s", tc.a, tc.b)
	}
}

func TestEqualAndLessThan(t *testing.T) {
	t.Parallel()

	require.True(t, debversion.Equal("1.0-1", "1.0-1"))
	require.True(t, debversion.LessThan("1.0", "1.1"))
	require.False(t, debversion.LessThan("1.1", "1.0"))
}
