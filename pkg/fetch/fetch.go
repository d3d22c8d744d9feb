// Package fetch implements the index download pipeline spec §4.6
// describes: for each configured source, download `Packages` or
// `Packages.gz`, decompress, optionally verify an OpenPGP detached
// signature against a host-resolved keyring, and atomically install the
// result at `lists_dir/<name>`. The HTTP half is grounded on the teacher's
// pkg/download/download.go (grab.NewClient/grab.NewRequest, resume-aware
// retry with exponential backoff); the verification half generalizes
// etnz-apt-repo-builder/main.go's sign() — which clearsigns a Release file
// with ProtonMail/go-crypto/openpgp — from "sign what I built" to "verify
// what I fetched".
package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/cavaliergopher/grab/v3"
	"github.com/pkg/errors"

	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
)

// Options configures an UpdateAll run.
type Options struct {
	ListsDir string
	// VerifySignatures enables Packages.sig verification against Keyring.
	VerifySignatures bool
	// Keyring is the armored OpenPGP public keyring, always resolved on
	// the host — never rewritten under an offline root (spec §4.6).
	Keyring io.Reader
	MaxRetries int
}

// Result reports one source's outcome.
type Result struct {
	Source string
	Err    error
}

// Failed reports whether any source in results failed, per spec §4.6:
// "overall update returns non-zero if any source failed, zero otherwise."
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}

	return false
}

// UpdateAll fetches every source's index and installs it at
// ListsDir/<name>, continuing past a single source's failure so the rest
// still update.
func UpdateAll(ctx context.Context, sources []control.Source, opts Options) []Result {
	var keyring openpgp.EntityList

	if opts.VerifySignatures && opts.Keyring != nil {
		var err error

		keyring, err = openpgp.ReadArmoredKeyRing(opts.Keyring)
		if err != nil {
			results := make([]Result, len(sources))
			for i, src := range sources {
				results[i] = Result{Source: src.Name, Err: errors.Wrap(err, "read keyring")}
			}

			return results
		}
	}

	results := make([]Result, 0, len(sources))

	for _, src := range sources {
		results = append(results, updateOne(ctx, src, opts, keyring))
	}

	return results
}

func updateOne(ctx context.Context, src control.Source, opts Options, keyring openpgp.EntityList) Result {
	if err := src.ValidateName(); err != nil {
		return Result{Source: src.Name, Err: err}
	}

	indexURL := joinURL(src.URL, indexFilename(src.Gzip))

	tmpFile, err := os.CreateTemp(opts.ListsDir, src.Name+".fetch-*")
	if err != nil {
		return Result{Source: src.Name, Err: errors.Wrap(err, "create temp file")}
	}

	tmpPath := tmpFile.Name()
	tmpFile.Close()

	defer os.Remove(tmpPath)

	if err := downloadWithRetry(ctx, tmpPath, indexURL, opts.MaxRetries); err != nil {
		return Result{Source: src.Name, Err: errors.Wrapf(err, "download index for %s", src.Name)}
	}

	raw, err := os.ReadFile(tmpPath)
	if err != nil {
		return Result{Source: src.Name, Err: errors.Wrap(err, "read downloaded index")}
	}

	if src.Gzip {
		raw, err = decompressGzip(raw)
		if err != nil {
			return Result{Source: src.Name, Err: errors.Wrap(err, "decompress index")}
		}
	}

	if opts.VerifySignatures {
		if err := verifySignature(ctx, keyring, raw, joinURL(src.URL, "Packages.sig"), opts.MaxRetries); err != nil {
			return Result{Source: src.Name, Err: errors.Wrapf(err, "verify signature for %s", src.Name)}
		}
	}

	dest := filepath.Join(opts.ListsDir, src.Name)
	if err := writeAtomic(dest, raw); err != nil {
		return Result{Source: src.Name, Err: errors.Wrap(err, "install index")}
	}

	logger.Info(i18n.T("logger.fetch.info.updated"), "source", src.Name, "bytes", len(raw))

	return Result{Source: src.Name}
}

func indexFilename(gzip bool) string {
	if gzip {
		return "Packages.gz"
	}

	return "Packages"
}

func joinURL(base, name string) string {
	if strings.HasSuffix(base, "/") {
		return base + name
	}

	return base + "/" + name
}

func decompressGzip(raw []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// DownloadFile fetches uri to destination with retry/backoff, for callers
// outside the index pipeline (the transaction engine's package-cache
// download phase, spec §4.7 step 6).
func DownloadFile(ctx context.Context, destination, uri string, maxRetries int) error {
	return downloadWithRetry(ctx, destination, uri, maxRetries)
}

// downloadWithRetry mirrors the teacher's WithResume: one attempt plus up
// to maxRetries retries with exponential backoff. Every download error is
// retried; only cancellation of ctx stops the loop early.
func downloadWithRetry(ctx context.Context, destination, uri string, maxRetries int) error {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	if _, err := url.Parse(uri); err != nil {
		return errors.Wrap(err, "invalid url")
	}

	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("retrying download", "attempt", attempt+1, "max_retries", maxRetries+1, "url", uri)

			backoff := time.Duration(1<<(attempt-1)) * time.Second

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := downloadOnce(ctx, destination, uri)
		if err == nil {
			return nil
		}

		lastErr = err
	}

	return errors.Wrapf(lastErr, "download failed after %d attempts", maxRetries+1)
}

func downloadOnce(ctx context.Context, destination, uri string) error {
	client := grab.NewClient()
	client.UserAgent = "aept/1.0"

	req, err := grab.NewRequest(destination, uri)
	if err != nil {
		return errors.Wrap(err, "build download request")
	}

	req = req.WithContext(ctx)

	resp := client.Do(req)
	if resp.HTTPResponse == nil {
		return errors.Wrap(resp.Err(), "no response")
	}

	if err := resp.Err(); err != nil {
		return err
	}

	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)

		return err
	}

	return nil
}
