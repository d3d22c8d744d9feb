package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "maintenance", markCmd.GroupID)
	require.NotNil(t, markCmd.RunE)
}

func TestRunMarkRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	err := runMark(nil, []string{"sideways", "foo"})
	require.Error(t, err)
}

func TestPinArgValidation(t *testing.T) {
	t.Parallel()

	require.NoError(t, validate.Struct(pinArg{Name: "foo", Version: "1.0"}))
	require.Error(t, validate.Struct(pinArg{Name: "", Version: "1.0"}))
	require.Error(t, validate.Struct(pinArg{Name: "foo", Version: ""}))
}
