package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPinCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "maintenance", pinCmd.GroupID)
	require.NotNil(t, pinCmd.RunE)
}

func TestUnpinCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "maintenance", unpinCmd.GroupID)
	require.NotNil(t, unpinCmd.RunE)
}
