package conffile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aept-pm/aept/pkg/conffile"
)

type stubPrompter struct {
	choice conffile.PromptOption
}

func (s stubPrompter) Ask(conffile.Entry) (conffile.PromptOption, error) {
	return s.choice, nil
}

func TestResolveCurAbsentInstallsNew(t *testing.T) {
	t.Parallel()

	res, err := conffile.Resolve(conffile.Entry{NewMD5: "new"}, conffile.Flags{}, nil)
	require.NoError(t, err)
	require.Equal(t, conffile.InstallNew, res.Decision)
	require.Equal(t, "new", res.RecordMD5)
}

func TestResolveNewAbsentKeepsOld(t *testing.T) {
	t.Parallel()

	res, err := conffile.Resolve(conffile.Entry{CurMD5: "cur"}, conffile.Flags{}, nil)
	require.NoError(t, err)
	require.Equal(t, conffile.KeepOld, res.Decision)
	require.Equal(t, "cur", res.RecordMD5)
}

func TestResolveUnmodifiedIsNoOp(t *testing.T) {
	t.Parallel()

	res, err := conffile.Resolve(conffile.Entry{CurMD5: "m", NewMD5: "m"}, conffile.Flags{}, nil)
	require.NoError(t, err)
	require.Equal(t, conffile.KeepOld, res.Decision)
	require.Equal(t, "m", res.RecordMD5)
}

func TestResolveUnmodifiedSinceOldInstallsNewSilently(t *testing.T) {
	t.Parallel()

	res, err := conffile.Resolve(
		conffile.Entry{OldMD5: "a", CurMD5: "a", NewMD5: "b"}, conffile.Flags{}, nil,
	)
	require.NoError(t, err)
	require.Equal(t, conffile.InstallNew, res.Decision)
	require.Equal(t, "b", res.RecordMD5)
}

func TestResolveNewMatchesOldKeepsOld(t *testing.T) {
	t.Parallel()

	res, err := conffile.Resolve(
		conffile.Entry{OldMD5: "b", CurMD5: "a", NewMD5: "b"}, conffile.Flags{}, nil,
	)
	require.NoError(t, err)
	require.Equal(t, conffile.KeepOld, res.Decision)
	require.Equal(t, "a", res.RecordMD5)
}

func TestResolveConflictForceConfNew(t *testing.T) {
	t.Parallel()

	res, err := conffile.Resolve(
		conffile.Entry{OldMD5: "a", CurMD5: "b", NewMD5: "c"},
		conffile.Flags{ForceConfNew: true}, nil,
	)
	require.NoError(t, err)
	require.Equal(t, conffile.InstallNew, res.Decision)
	require.Equal(t, "c", res.RecordMD5)
}

func TestResolveConflictForceConfOld(t *testing.T) {
	t.Parallel()

	res, err := conffile.Resolve(
		conffile.Entry{OldMD5: "a", CurMD5: "b", NewMD5: "c"},
		conffile.Flags{ForceConfOld: true}, nil,
	)
	require.NoError(t, err)
	require.Equal(t, conffile.KeepOld, res.Decision)
	require.Equal(t, "b", res.RecordMD5)
}

func TestResolveConflictNonInteractiveWritesAside(t *testing.T) {
	t.Parallel()

	res, err := conffile.Resolve(
		conffile.Entry{OldMD5: "a", CurMD5: "b", NewMD5: "c"},
		conffile.Flags{NonInteractive: true}, nil,
	)
	require.NoError(t, err)
	require.Equal(t, conffile.KeepOld, res.Decision)
	require.Equal(t, "b", res.RecordMD5)
	require.True(t, res.WriteNewAside)
}

func TestResolveConflictPromptsWhenInteractive(t *testing.T) {
	t.Parallel()

	res, err := conffile.Resolve(
		conffile.Entry{OldMD5: "a", CurMD5: "b", NewMD5: "c"},
		conffile.Flags{}, stubPrompter{choice: conffile.PromptInstallNew},
	)
	require.NoError(t, err)
	require.Equal(t, conffile.InstallNew, res.Decision)
	require.Equal(t, "c", res.RecordMD5)
	require.True(t, res.Prompted)
}
