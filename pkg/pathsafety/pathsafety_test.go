package pathsafety_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aept-pm/aept/pkg/pathsafety"
)

func TestValidName(t *testing.T) {
	t.Parallel()

	require.True(t, pathsafety.ValidName("libfoo2"))
	require.True(t, pathsafety.ValidName("a+b.c-1"))
	require.False(t, pathsafety.ValidName(""))
	require.False(t, pathsafety.ValidName(".hidden"))
	require.False(t, pathsafety.ValidName("-leading-dash"))
	require.False(t, pathsafety.ValidName("has space"))
}

func TestCheckName(t *testing.T) {
	t.Parallel()

	require.NoError(t, pathsafety.CheckName("op", "libfoo2"))
	require.Error(t, pathsafety.CheckName("op", "../escape"))
}

func TestSafeEntryPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		safe bool
	}{
		{"./usr/bin/foo", true},
		{"usr/bin/foo", true},
		{"/etc/passwd", false},
		{"../../etc/passwd", false},
		{"usr/../../etc/passwd", false},
		{"", false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.safe, pathsafety.SafeEntryPath(tc.path), tc.path)
	}
}

func TestSafeSymlinkTarget(t *testing.T) {
	t.Parallel()

	require.True(t, pathsafety.SafeSymlinkTarget("usr/bin/foo", "../lib/foo"))
	require.False(t, pathsafety.SafeSymlinkTarget("usr/bin/foo", "/etc/passwd"))
	require.False(t, pathsafety.SafeSymlinkTarget("usr/bin/foo", "../../../etc/passwd"))
}

func TestCheckEntry(t *testing.T) {
	t.Parallel()

	require.NoError(t, pathsafety.CheckEntry("op", "./usr/bin/foo", ""))
	require.Error(t, pathsafety.CheckEntry("op", "../etc/passwd", ""))
	require.Error(t, pathsafety.CheckEntry("op", "usr/bin/foo", "/etc/passwd"))
}
