package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShowCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "query", showCmd.GroupID)
	require.NotNil(t, showCmd.RunE)
}
