package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpgradeCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "transaction", upgradeCmd.GroupID)
	require.NotNil(t, upgradeCmd.RunE)

	for _, name := range []string{"no-cache", "download-only", "reinstall"} {
		require.NotNil(t, upgradeCmd.Flags().Lookup(name), "missing flag %q", name)
	}
}
