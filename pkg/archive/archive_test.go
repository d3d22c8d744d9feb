package archive_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/stretchr/testify/require"

	"github.com/aept-pm/aept/pkg/archive"
	"github.com/aept-pm/aept/pkg/fileset"
)

// buildTarGz packages the given entries into a gzip-compressed tar stream.
func buildTarGz(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var tarBuf bytes.Buffer

	tw := tar.NewWriter(&tarBuf)

	for name, content := range entries {
		hdr := &tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			ModTime:  time.Unix(0, 0),
			Typeflag: tar.TypeReg,
		}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())

	var gzBuf bytes.Buffer

	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	return gzBuf.Bytes()
}

// buildPackage writes a minimal .deb-style AR container with a
// control.tar.gz and data.tar.gz member to a temp file and returns its path.
func buildPackage(t *testing.T, control, data map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "test.deb")

	f, err := os.Create(pkgPath) //nolint:gosec
	require.NoError(t, err)

	defer f.Close() //nolint:errcheck

	w := ar.NewWriter(f)
	require.NoError(t, w.WriteGlobalHeader())

	controlBytes := buildTarGz(t, control)
	require.NoError(t, w.WriteHeader(&ar.Header{
		Name:    "control.tar.gz",
		Size:    int64(len(controlBytes)),
		ModTime: time.Unix(0, 0),
		Mode:    0o644,
	}))
	_, err = w.Write(controlBytes)
	require.NoError(t, err)

	dataBytes := buildTarGz(t, data)
	require.NoError(t, w.WriteHeader(&ar.Header{
		Name:    "data.tar.gz",
		Size:    int64(len(dataBytes)),
		ModTime: time.Unix(0, 0),
		Mode:    0o644,
	}))
	_, err = w.Write(dataBytes)
	require.NoError(t, err)

	return pkgPath
}

func TestExtractAll(t *testing.T) {
	t.Parallel()

	pkgPath := buildPackage(t,
		map[string]string{"control": "Package: demo\n"},
		map[string]string{
			"usr/bin/demo":      "#!/bin/sh\necho hi\n",
			"etc/demo.conf":     "key=value\n",
		},
	)

	dest := t.TempDir()

	pkg := archive.Open(pkgPath)
	n, err := pkg.ExtractAll(dest, nil, "", archive.Flags{Perm: true})
	require.NoError(t, err)
	require.Positive(t, n)

	content, err := os.ReadFile(filepath.Join(dest, "usr/bin/demo")) //nolint:gosec
	require.NoError(t, err)
	require.Equal(t, "#!/bin/sh\necho hi\n", string(content))
}

func TestExtractAllWithConffileShadow(t *testing.T) {
	t.Parallel()

	pkgPath := buildPackage(t,
		map[string]string{"control": "Package: demo\n"},
		map[string]string{"etc/demo.conf": "key=value\n"},
	)

	dest := t.TempDir()
	conffiles := fileset.FromSlice([]string{"etc/demo.conf"})

	pkg := archive.Open(pkgPath)
	_, err := pkg.ExtractAll(dest, conffiles, ".aept-new", archive.Flags{Perm: true})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dest, "etc/demo.conf.aept-new"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dest, "etc/demo.conf"))
	require.True(t, os.IsNotExist(err))
}

func TestExtractFileToStream(t *testing.T) {
	t.Parallel()

	pkgPath := buildPackage(t,
		map[string]string{"control": "Package: demo\nVersion: 1.0\n"},
		map[string]string{"usr/bin/demo": "binary"},
	)

	pkg := archive.Open(pkgPath)

	var buf bytes.Buffer

	require.NoError(t, pkg.ExtractFileToStream("control", &buf))
	require.Contains(t, buf.String(), "Package: demo")
}

func TestListPathsToStream(t *testing.T) {
	t.Parallel()

	pkgPath := buildPackage(t,
		map[string]string{"control": "Package: demo\n"},
		map[string]string{"usr/bin/demo": "binary", "etc/demo.conf": "key=value"},
	)

	pkg := archive.Open(pkgPath)

	var buf bytes.Buffer

	require.NoError(t, pkg.ListPathsToStream(&buf))

	out := buf.String()
	require.Contains(t, out, "usr/bin/demo\t")
	require.Contains(t, out, "etc/demo.conf\t")
	require.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}

func TestVerifyMagic(t *testing.T) {
	t.Parallel()

	pkgPath := buildPackage(t, map[string]string{"control": "Package: demo\n"}, map[string]string{})

	pkg := archive.Open(pkgPath)
	require.NoError(t, pkg.VerifyMagic())
}

func TestVerifyMagicRejectsNonAR(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notar.deb")
	require.NoError(t, os.WriteFile(path, []byte("not an ar file at all"), 0o600))

	pkg := archive.Open(path)
	require.Error(t, pkg.VerifyMagic())
}
