package transaction

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	ectx "github.com/aept-pm/aept/pkg/context"

	"github.com/aept-pm/aept/pkg/aerrors"
	"github.com/aept-pm/aept/pkg/checksum"
	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/fetch"
	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/solver"
)

const defaultMaxRetries = 3

// packageFile resolves to a local path for an INSTALL step's package, plus
// a cleanup to run once the step has executed (non-nil only in no_cache
// mode, where the file is deleted right after use per spec §4.7 step 6).
type packageFile struct {
	Path    string
	cleanup func()
}

func (p packageFile) Cleanup() {
	if p.cleanup != nil {
		p.cleanup()
	}
}

// preDownload implements the ordinary (non no_cache) half of spec §4.7 step
// 6: every INSTALL step's package is fetched to cache_dir ahead of
// execution, named by the basename of its declared Filename, reusing a
// cache hit whose checksum still matches and re-fetching one that doesn't.
// Steps sourced from the commandline pool need no network fetch.
func preDownload(
	ctx context.Context, ec *ectx.EngineContext, sources map[string]control.Source, steps []solver.Step,
) (map[int]packageFile, error) {
	files := make(map[int]packageFile, len(steps))

	for i, step := range steps {
		if step.Kind != solver.StepInstall {
			continue
		}

		if step.Source == "commandline" {
			files[i] = packageFile{Path: step.Package.Filename}
			continue
		}

		src, ok := sources[step.Source]
		if !ok {
			return nil, aerrors.New(aerrors.DownloadVerify, "unknown source for package").
				WithOperation("transaction.preDownload").WithContext("source", step.Source)
		}

		path, err := cachedDownload(ctx, ec, src, step.Package)
		if err != nil {
			return nil, err
		}

		files[i] = packageFile{Path: path}
	}

	return files, nil
}

// cachedDownload fetches pkg from src into cache_dir, reusing a valid
// cache hit and replacing one that fails its checksum. A missing checksum
// only warns; the package itself is still declared a hard download
// failure only on actual transport/verification errors.
func cachedDownload(ctx context.Context, ec *ectx.EngineContext, src control.Source, pkg control.Package) (string, error) {
	location, _ := pkg.Fields.Get("Filename")

	dest := filepath.Join(ec.Paths.CacheDir, filepath.Base(location))

	if pkg.SHA256 != "" {
		if ok, err := checksum.VerifySHA256(dest, pkg.SHA256); err == nil {
			if ok {
				return dest, nil
			}

			logger.Warn(i18n.T("logger.transaction.warn.cache_mismatch"), "package", pkg.Name, "path", dest)

			if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
				return "", aerrors.Wrap(err, aerrors.Filesystem, "failed to evict stale cache entry").
					WithOperation("transaction.cachedDownload")
			}
		}
	} else if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if err := os.MkdirAll(ec.Paths.CacheDir, 0o755); err != nil { //nolint:gosec
		return "", aerrors.Wrap(err, aerrors.Filesystem, "failed to create cache directory").
			WithOperation("transaction.cachedDownload")
	}

	downloadURL := joinURL(src.URL, location)

	if err := fetch.DownloadFile(ctx, dest, downloadURL, defaultMaxRetries); err != nil {
		return "", aerrors.Wrap(err, aerrors.DownloadVerify, "failed to download package").
			WithOperation("transaction.cachedDownload").WithContext("package", pkg.Name)
	}

	if pkg.SHA256 == "" {
		logger.Warn(i18n.T("logger.transaction.warn.no_checksum"), "package", pkg.Name)
	} else if ok, err := checksum.VerifySHA256(dest, pkg.SHA256); err != nil || !ok {
		_ = os.Remove(dest)

		return "", aerrors.New(aerrors.DownloadVerify, "downloaded package failed checksum verification").
			WithOperation("transaction.cachedDownload").WithContext("package", pkg.Name)
	}

	return dest, nil
}

// noCacheDownload fetches pkg from src to a private temp file, for
// no_cache mode: downloaded inline per step and removed right after.
func noCacheDownload(ctx context.Context, ec *ectx.EngineContext, src control.Source, pkg control.Package) (packageFile, error) {
	location, _ := pkg.Fields.Get("Filename")

	tmp, err := os.CreateTemp(ec.TempDir(), "nocache-"+sanitizeTmpPrefix(pkg.Name)+"-*"+filepath.Ext(location))
	if err != nil {
		return packageFile{}, aerrors.Wrap(err, aerrors.Filesystem, "failed to create temp download file").
			WithOperation("transaction.noCacheDownload")
	}

	dest := tmp.Name()
	tmp.Close() //nolint:errcheck

	if err := fetch.DownloadFile(ctx, dest, joinURL(src.URL, location), defaultMaxRetries); err != nil {
		os.Remove(dest) //nolint:errcheck

		return packageFile{}, aerrors.Wrap(err, aerrors.DownloadVerify, "failed to download package").
			WithOperation("transaction.noCacheDownload").WithContext("package", pkg.Name)
	}

	if pkg.SHA256 == "" {
		logger.Warn(i18n.T("logger.transaction.warn.no_checksum"), "package", pkg.Name)
	} else if ok, err := checksum.VerifySHA256(dest, pkg.SHA256); err != nil || !ok {
		os.Remove(dest) //nolint:errcheck

		return packageFile{}, aerrors.New(aerrors.DownloadVerify, "downloaded package failed checksum verification").
			WithOperation("transaction.noCacheDownload").WithContext("package", pkg.Name)
	}

	return packageFile{Path: dest, cleanup: func() { _ = os.Remove(dest) }}, nil
}

func joinURL(base, name string) string {
	if strings.HasSuffix(base, "/") {
		return base + name
	}

	return base + "/" + name
}
