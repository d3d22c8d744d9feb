package command

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "version", versionCmd.Use)
	require.Equal(t, "maintenance", versionCmd.GroupID)
	require.NotEmpty(t, versionCmd.Short)
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	versionCmd.SetOut(&out)
	require.NoError(t, versionCmd.RunE(versionCmd, nil))
	require.Contains(t, out.String(), "aept "+Version)
}
