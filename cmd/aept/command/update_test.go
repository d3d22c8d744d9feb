package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "transaction", updateCmd.GroupID)
	require.Equal(t, "update", updateCmd.Use)
	require.NotNil(t, updateCmd.RunE)
}
