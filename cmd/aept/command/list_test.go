package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "query", listCmd.GroupID)
	require.NotNil(t, listCmd.RunE)
}
