package command

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/stretchr/testify/require"

	"github.com/aept-pm/aept/pkg/aptconfig"
)

func buildLocalPackage(t *testing.T, name, version string) string {
	t.Helper()

	dir := t.TempDir()
	pkgPath := filepath.Join(dir, name+".ipk")

	f, err := os.Create(pkgPath) //nolint:gosec
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := ar.NewWriter(f)
	require.NoError(t, w.WriteGlobalHeader())

	var tarBuf bytes.Buffer

	tw := tar.NewWriter(&tarBuf)
	body := "Package: " + name + "\nVersion: " + version + "\n"
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "control", Mode: 0o644, Size: int64(len(body)), ModTime: time.Unix(0, 0), Typeflag: tar.TypeReg,
	}))
	_, err = tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	require.NoError(t, w.WriteHeader(&ar.Header{
		Name: "control.tar", Size: int64(tarBuf.Len()), ModTime: time.Unix(0, 0), Mode: 0o644,
	}))
	_, err = w.Write(tarBuf.Bytes())
	require.NoError(t, err)

	return pkgPath
}

func TestPackageNameFromFile(t *testing.T) {
	t.Parallel()

	path := buildLocalPackage(t, "demo", "1.0")

	name, err := packageNameFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "demo", name)
}

func TestIsLocalFile(t *testing.T) {
	t.Parallel()

	path := buildLocalPackage(t, "demo", "1.0")

	require.True(t, isLocalFile(path))
	require.False(t, isLocalFile("demo"))
	require.False(t, isLocalFile(filepath.Dir(path)))
}

func TestBuildInstallInputSeparatesLocalFilesPinsAndNames(t *testing.T) {
	t.Parallel()

	localPath := buildLocalPackage(t, "demo", "1.0")

	in, err := buildInstallInput(&env{cfg: &aptconfig.Config{}}, []string{localPath, "htop", "vim=8.2"})
	require.NoError(t, err)

	require.Equal(t, []string{localPath}, in.LocalFiles)
	require.ElementsMatch(t, []string{"demo", "htop", "vim"}, in.ExplicitNames)
	require.Equal(t, "8.2", in.Pins["vim"])
	require.Len(t, in.Jobs, 3)
}

func TestInstallCommandDefinition(t *testing.T) {
	t.Parallel()

	require.Equal(t, "transaction", installCmd.GroupID)
	require.NotNil(t, installCmd.RunE)
}
