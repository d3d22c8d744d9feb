// Package checksum provides file digest helpers: MD5 for conffile identity
// (spec §4.3) and SHA256 for index/payload verification (spec §4.6).
package checksum

import (
	"crypto/md5" //nolint:gosec // dpkg conffile identity is defined as MD5, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"path/filepath"
)

// MD5File returns the lowercase hex MD5 digest of the file at path.
func MD5File(path string) (string, error) {
	return hashFile(path, md5.New()) //nolint:gosec
}

// SHA256File returns the lowercase hex SHA256 digest of the file at path.
func SHA256File(path string) (string, error) {
	return hashFile(path, sha256.New())
}

func hashFile(path string, h hash.Hash) (string, error) {
	cleanPath := filepath.Clean(path)

	f, err := os.Open(cleanPath)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifySHA256 reports whether the file at path matches the expected hex digest.
func VerifySHA256(path, expectedHex string) (bool, error) {
	actual, err := SHA256File(path)
	if err != nil {
		return false, err
	}

	return actual == expectedHex, nil
}

// MD5Reader returns the lowercase hex MD5 digest of r's content.
func MD5Reader(r io.Reader) (string, error) {
	h := md5.New() //nolint:gosec

	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
