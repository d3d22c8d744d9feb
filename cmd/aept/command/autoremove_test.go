package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAutoremoveCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "transaction", autoremoveCmd.GroupID)
	require.Equal(t, "autoremove", autoremoveCmd.Use)
	require.NotNil(t, autoremoveCmd.RunE)
}
