package fetch_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/require"

	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/fetch"
)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func TestUpdateAllPlainIndex(t *testing.T) {
	t.Parallel()

	indexData := []byte("Package: demo\nVersion: 1.0-1\n\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "Packages") {
			w.Write(indexData)

			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	listsDir := t.TempDir()

	sources := []control.Source{{Name: "main", URL: server.URL, Gzip: false}}

	results := fetch.UpdateAll(context.Background(), sources, fetch.Options{ListsDir: listsDir})
	require.False(t, fetch.Failed(results))
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	installed, err := os.ReadFile(filepath.Join(listsDir, "main"))
	require.NoError(t, err)
	require.Equal(t, indexData, installed)
}

func TestUpdateAllGzipIndex(t *testing.T) {
	t.Parallel()

	indexData := []byte("Package: demo\nVersion: 1.0-1\n\n")
	compressed := gzipBytes(t, indexData)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "Packages.gz") {
			w.Write(compressed)

			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	listsDir := t.TempDir()

	sources := []control.Source{{Name: "main", URL: server.URL, Gzip: true}}

	results := fetch.UpdateAll(context.Background(), sources, fetch.Options{ListsDir: listsDir})
	require.False(t, fetch.Failed(results))

	installed, err := os.ReadFile(filepath.Join(listsDir, "main"))
	require.NoError(t, err)
	require.Equal(t, indexData, installed)
}

func TestUpdateAllSourceFailureDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	goodServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Package: good\nVersion: 1.0-1\n\n"))
	}))
	defer goodServer.Close()

	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer badServer.Close()

	listsDir := t.TempDir()

	sources := []control.Source{
		{Name: "bad", URL: badServer.URL},
		{Name: "good", URL: goodServer.URL},
	}

	results := fetch.UpdateAll(context.Background(), sources, fetch.Options{ListsDir: listsDir, MaxRetries: 1})
	require.True(t, fetch.Failed(results))
	require.Error(t, results[0].Err)
	require.NoError(t, results[1].Err)

	_, err := os.Stat(filepath.Join(listsDir, "good"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(listsDir, "bad"))
	require.True(t, os.IsNotExist(err))
}

func TestUpdateAllRejectsUnsafeName(t *testing.T) {
	t.Parallel()

	listsDir := t.TempDir()

	sources := []control.Source{{Name: "../escape", URL: "http://example.invalid"}}

	results := fetch.UpdateAll(context.Background(), sources, fetch.Options{ListsDir: listsDir})
	require.True(t, fetch.Failed(results))
}

func newTestKeyPair(t *testing.T) (*openpgp.Entity, string) {
	t.Helper()

	entity, err := openpgp.NewEntity("aept test", "", "test@example.com", nil)
	require.NoError(t, err)

	var buf bytes.Buffer

	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())

	return entity, buf.String()
}

func detachSign(t *testing.T, entity *openpgp.Entity, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, openpgp.DetachSign(&buf, entity, bytes.NewReader(data), nil))

	return buf.Bytes()
}

func TestUpdateAllVerifiesSignature(t *testing.T) {
	t.Parallel()

	entity, armoredPublicKey := newTestKeyPair(t)
	indexData := []byte("Package: demo\nVersion: 1.0-1\n\n")
	signature := detachSign(t, entity, indexData)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "Packages.sig"):
			w.Write(signature)
		case strings.HasSuffix(r.URL.Path, "Packages"):
			w.Write(indexData)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	listsDir := t.TempDir()

	sources := []control.Source{{Name: "main", URL: server.URL}}

	results := fetch.UpdateAll(context.Background(), sources, fetch.Options{
		ListsDir:         listsDir,
		VerifySignatures: true,
		Keyring:          strings.NewReader(armoredPublicKey),
	})
	require.False(t, fetch.Failed(results))
	require.NoError(t, results[0].Err)
}

func TestUpdateAllRejectsBadSignature(t *testing.T) {
	t.Parallel()

	_, armoredPublicKey := newTestKeyPair(t)
	otherEntity, _ := newTestKeyPair(t)

	indexData := []byte("Package: demo\nVersion: 1.0-1\n\n")
	wrongSignature := detachSign(t, otherEntity, indexData)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "Packages.sig"):
			w.Write(wrongSignature)
		case strings.HasSuffix(r.URL.Path, "Packages"):
			w.Write(indexData)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	listsDir := t.TempDir()

	sources := []control.Source{{Name: "main", URL: server.URL}}

	results := fetch.UpdateAll(context.Background(), sources, fetch.Options{
		ListsDir:         listsDir,
		VerifySignatures: true,
		Keyring:          strings.NewReader(armoredPublicKey),
	})
	require.True(t, fetch.Failed(results))
}
