package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilesCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "query", filesCmd.GroupID)
	require.NotNil(t, filesCmd.RunE)
}

func TestOwnsCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "query", ownsCmd.GroupID)
	require.NotNil(t, ownsCmd.RunE)
}

func TestPrintArchitectureCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "query", printArchitectureCmd.GroupID)
	require.Equal(t, "print-architecture", printArchitectureCmd.Use)
	require.NotNil(t, printArchitectureCmd.RunE)
}
