package checksum_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aept-pm/aept/pkg/checksum"
)

func TestMD5File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	digest, err := checksum.MD5File(path)
	require.NoError(t, err)
	require.Equal(t, "5d41402abc4b2a76b9719d911017c592", digest)
}

func TestSHA256FileAndVerify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	digest, err := checksum.SHA256File(path)
	require.NoError(t, err)
	require.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", digest)

	ok, err := checksum.VerifySHA256(path, digest)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = checksum.VerifySHA256(path, "deadbeef")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMD5Reader(t *testing.T) {
	t.Parallel()

	digest, err := checksum.MD5Reader(strings.NewReader("hello"))
	require.NoError(t, err)
	require.Equal(t, "5d41402abc4b2a76b9719d911017c592", digest)
}
