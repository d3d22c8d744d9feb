package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgsToLoggerArgs(t *testing.T) {
	t.Parallel()

	args := argsToLoggerArgs("package", "bash", "version", "5.2")
	require := assert.New(t)

	require.Len(args, 2)
	require.Equal("package", args[0].Key)
	require.Equal("bash", args[0].Value)
	require.Equal("version", args[1].Key)
	require.Equal("5.2", args[1].Value)
}

func TestArgsToLoggerArgsOddCount(t *testing.T) {
	t.Parallel()

	args := argsToLoggerArgs("package", "bash", "dangling")
	assert.Len(t, args, 1)
}

func TestArgsToLoggerArgsEmpty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, argsToLoggerArgs())
}

func TestSetColorDisabled(t *testing.T) {
	defer SetColorDisabled(false)

	SetColorDisabled(true)
	assert.True(t, IsColorDisabled())

	SetColorDisabled(false)
	assert.False(t, colorDisabled)
}

func TestGlobalCompatLogger(t *testing.T) {
	t.Parallel()

	l := Global()
	assert.NotNil(t, l)

	l.Debug("test debug", "key", "value")
	l.Info("test info", "key", "value")
	l.Warn("test warn", "key", "value")
	l.Error("test error", "key", "value")
}
