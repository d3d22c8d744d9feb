package context

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewResolvesPaths(t *testing.T) {
	t.Parallel()

	paths := Paths{StatusFile: "/var/lib/aept/status"}
	ec := New(paths, []string{"amd64"}, "", Flags{ForceDepends: true})
	defer ec.Close()

	require.Equal(t, paths.StatusFile, ec.Paths.StatusFile)
	require.Equal(t, []string{"amd64"}, ec.Architecture)
	require.True(t, ec.Flags.ForceDepends)
	require.False(t, ec.Interrupted())
}

func TestResolvePathUnderOfflineRoot(t *testing.T) {
	t.Parallel()

	ec := New(Paths{}, nil, "/offline", Flags{})
	defer ec.Close()

	require.Equal(t, "/offline/var/lib/aept/status", ec.ResolvePath("/var/lib/aept/status"))
}

func TestResolvePathNoOfflineRoot(t *testing.T) {
	t.Parallel()

	ec := New(Paths{}, nil, "", Flags{})
	defer ec.Close()

	require.Equal(t, "/var/lib/aept/status", ec.ResolvePath("/var/lib/aept/status"))
}
