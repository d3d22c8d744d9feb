// Package archive implements the two-level AR→tar streaming extractor spec
// §4.1 describes: an outer `ar` container (blakesmith/ar — the exact
// library the teacher already depends on and uses in
// pkg/builders/common/extract.go's extractDEB for the identical "open a
// .deb, scan AR members for data.tar*" operation) wrapping a tar stream
// that is itself optionally compressed with gzip (stdlib), xz, bzip2, lz4,
// or zstd (github.com/mholt/archiver/v4, imported as package "archives" —
// the same module the teacher vendors for CreateTarGz/CreateTarZst/Extract
// in pkg/archive/tar.go).
package archive

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/mholt/archives"

	"github.com/aept-pm/aept/pkg/aerrors"
	"github.com/aept-pm/aept/pkg/fileset"
	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/pathsafety"
)

// arMagic is the literal byte sequence every AR archive begins with. Open
// identifies the outer format by this magic, independent of the on-disk
// file extension (.deb, .ipk, whatever) — spec §9's resolved Open Question 4.
const arMagic = "!<arch>\n"

// Member name candidates, tried in the documented order (spec §4.1).
var (
	dataCandidates = []string{
		"data.tar.gz", "data.tar.xz", "data.tar.bz2", "data.tar.lz4", "data.tar.zst", "data.tar",
	}
	controlCandidates = []string{
		"control.tar.gz", "control.tar.xz", "control.tar.bz2", "control.tar.lz4", "control.tar.zst", "control.tar",
	}
)

const maxExtractRetries = 3

// Package is an opened handle on a .deb-style AR container. It carries no
// open file descriptor between calls; every operation reopens the
// underlying file, which keeps the extractor safe to call repeatedly
// without leaking handles across a long-running transaction.
type Package struct {
	Path string
}

// Open returns a handle for the package file at path. It does not
// validate the file yet; VerifyMagic does that eagerly if the caller wants
// to fail fast.
func Open(path string) *Package {
	return &Package{Path: path}
}

// VerifyMagic confirms the file begins with the AR magic bytes.
func (p *Package) VerifyMagic() error {
	f, err := os.Open(filepath.Clean(p.Path))
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	buf := make([]byte, len(arMagic))
	if _, err := io.ReadFull(f, buf); err != nil {
		return aerrors.Wrap(err, aerrors.Extraction, "not an AR archive").WithOperation("archive.VerifyMagic")
	}

	if string(buf) != arMagic {
		return aerrors.New(aerrors.Extraction, "missing AR magic bytes").WithOperation("archive.VerifyMagic")
	}

	return nil
}

// dataMember returns the name of the selected data member, trying the
// documented compression order.
func (p *Package) dataMember() (string, error) {
	return p.selectMember(dataCandidates)
}

// controlMember returns the name of the selected control member.
func (p *Package) controlMember() (string, error) {
	return p.selectMember(controlCandidates)
}

func (p *Package) selectMember(candidates []string) (string, error) {
	f, err := os.Open(filepath.Clean(p.Path))
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck

	present := make(map[string]bool)

	reader := ar.NewReader(f)

	for {
		hdr, err := reader.Next()
		if err == io.EOF { //nolint:errorlint
			break
		}

		if err != nil {
			return "", aerrors.Wrap(err, aerrors.Extraction, "failed to read AR header").
				WithOperation("archive.selectMember")
		}

		present[strings.TrimRight(hdr.Name, "/ ")] = true

		if _, err := io.Copy(io.Discard, reader); err != nil {
			return "", err
		}
	}

	for _, c := range candidates {
		if present[c] {
			return c, nil
		}
	}

	return "", aerrors.New(aerrors.Extraction, "no supported member found in archive").
		WithOperation("archive.selectMember").WithContext("path", p.Path)
}

// openMember reopens the file and streams the AR member named `member`
// into a fresh tar.Reader, applying decompression by suffix. The returned
// closer must be called once the caller is done reading.
func (p *Package) openMember(member string) (*tar.Reader, io.Closer, error) {
	f, err := os.Open(filepath.Clean(p.Path))
	if err != nil {
		return nil, nil, err
	}

	reader := ar.NewReader(f)

	for {
		hdr, err := reader.Next()
		if err == io.EOF { //nolint:errorlint
			_ = f.Close()
			return nil, nil, aerrors.New(aerrors.Extraction, "member not found: "+member).
				WithOperation("archive.openMember")
		}

		if err != nil {
			_ = f.Close()
			return nil, nil, aerrors.Wrap(err, aerrors.Extraction, "failed to read AR header").
				WithOperation("archive.openMember")
		}

		if strings.TrimRight(hdr.Name, "/ ") != member {
			if _, err := io.Copy(io.Discard, reader); err != nil {
				_ = f.Close()
				return nil, nil, err
			}

			continue
		}

		decompressed, closer, err := decompress(member, reader)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}

		return tar.NewReader(decompressed), multiCloser{f, closer}, nil
	}
}

type multiCloser struct {
	file   io.Closer
	stream io.Closer
}

func (m multiCloser) Close() error {
	var firstErr error

	if m.stream != nil {
		firstErr = m.stream.Close()
	}

	if err := m.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// decompress wraps r with the decompressor matching member's suffix. gzip
// is handled directly via the standard library (mandatory per spec §4.1);
// xz, bzip2, lz4, and zstd are resolved through mholt/archiver/v4's format
// identification, the same archives.Identify entry point the teacher uses
// in pkg/archive/tar.go's Extract to pick an archives.Extractor. An
// uncompressed ".tar" member is passed through unchanged.
func decompress(member string, r io.Reader) (io.Reader, io.Closer, error) {
	if strings.HasSuffix(member, ".tar") {
		return r, nil, nil
	}

	if strings.HasSuffix(member, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, aerrors.Wrap(err, aerrors.Extraction, "gzip open failed")
		}

		return gz, gz, nil
	}

	ctx := context.Background()

	format, identified, err := archives.Identify(ctx, member, r)
	if err != nil {
		return nil, nil, aerrors.Wrap(err, aerrors.Extraction, "format identification failed").
			WithOperation("archive.decompress")
	}

	decompressor, ok := format.(archives.Decompressor)
	if !ok {
		return identified, nil, aerrors.New(aerrors.Extraction, "unsupported compression for member "+member).
			WithOperation("archive.decompress")
	}

	rc, err := decompressor.OpenReader(identified)
	if err != nil {
		return nil, nil, aerrors.Wrap(err, aerrors.Extraction, "decompression open failed").
			WithOperation("archive.decompress")
	}

	return rc, rc, nil
}

// Flags controls per-entry behavior for ExtractAll/ExtractSelected, mirroring
// spec §4.1's OWNER|PERM|TIME|UNLINK|NO_OVERWRITE bits.
type Flags struct {
	Owner       bool
	Perm        bool
	Time        bool
	Unlink      bool
	NoOverwrite bool
}

// ExtractAll streams the data archive's tar entries into destPrefix. When
// conffiles is non-nil, any entry whose path is in the set is written with
// cfSuffix appended to its destination (the *.aept-new shadow-copy
// mechanism used during upgrade). Returns the number of bytes written.
func (p *Package) ExtractAll(
	destPrefix string, conffiles *fileset.Set, cfSuffix string, flags Flags,
) (int64, error) {
	member, err := p.dataMember()
	if err != nil {
		return 0, err
	}

	tr, closer, err := p.openMemberRetry(member)
	if err != nil {
		return 0, err
	}
	defer closer.Close() //nolint:errcheck

	var written int64

	dirsSeen := map[string]bool{}

	for {
		hdr, err := tr.Next()
		if err == io.EOF { //nolint:errorlint
			break
		}

		if err != nil {
			return written, aerrors.Wrap(err, aerrors.Extraction, "tar read failed").
				WithOperation("archive.ExtractAll")
		}

		entryPath := pathsafety.CleanEntryPath(hdr.Name)
		if entryPath == "" || entryPath == "." {
			continue
		}

		linkTarget := ""
		if hdr.Typeflag == tar.TypeSymlink {
			linkTarget = hdr.Linkname
		}

		if err := pathsafety.CheckEntry("archive.ExtractAll", hdr.Name, linkTarget); err != nil {
			return written, err
		}

		destPath := filepath.Join(destPrefix, entryPath)
		if conffiles != nil && conffiles.Contains(entryPath) {
			destPath += cfSuffix
		}

		n, err := p.writeEntry(hdr, tr, destPath, destPrefix, flags, dirsSeen)
		if err != nil {
			return written, err
		}

		written += n
	}

	return written, nil
}

// ExtractSelected extracts only entries whose path is in selected,
// clearing NO_OVERWRITE per spec §4.1 (used to stage conffile candidates
// during upgrade).
func (p *Package) ExtractSelected(selected *fileset.Set, destPrefix string) error {
	member, err := p.dataMember()
	if err != nil {
		return err
	}

	tr, closer, err := p.openMemberRetry(member)
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck

	dirsSeen := map[string]bool{}
	flags := Flags{Owner: true, Perm: true, Time: true}

	for {
		hdr, err := tr.Next()
		if err == io.EOF { //nolint:errorlint
			break
		}

		if err != nil {
			return aerrors.Wrap(err, aerrors.Extraction, "tar read failed").
				WithOperation("archive.ExtractSelected")
		}

		entryPath := pathsafety.CleanEntryPath(hdr.Name)
		if !selected.Contains(entryPath) {
			continue
		}

		if err := pathsafety.CheckEntry("archive.ExtractSelected", hdr.Name, ""); err != nil {
			return err
		}

		destPath := filepath.Join(destPrefix, entryPath)

		if _, err := p.writeEntry(hdr, tr, destPath, destPrefix, flags, dirsSeen); err != nil {
			return err
		}
	}

	return nil
}

// ExtractFileToStream copies the named tar member from the control archive
// (e.g. "control", "conffiles", "preinst") into out.
func (p *Package) ExtractFileToStream(name string, out io.Writer) error {
	member, err := p.controlMember()
	if err != nil {
		return err
	}

	tr, closer, err := p.openMemberRetry(member)
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck

	for {
		hdr, err := tr.Next()
		if err == io.EOF { //nolint:errorlint
			return aerrors.New(aerrors.Extraction, "member not found in control archive: "+name).
				WithOperation("archive.ExtractFileToStream")
		}

		if err != nil {
			return aerrors.Wrap(err, aerrors.Extraction, "tar read failed").
				WithOperation("archive.ExtractFileToStream")
		}

		if pathsafety.CleanEntryPath(hdr.Name) != name {
			continue
		}

		_, err = io.Copy(out, tr)

		return err
	}
}

// ListPathsToStream emits "path\tmode[\tsymlink_target]\n" for every entry
// in the data archive — exactly the .list format, always newline
// terminated (spec §9's resolved Open Question 3).
func (p *Package) ListPathsToStream(out io.Writer) error {
	member, err := p.dataMember()
	if err != nil {
		return err
	}

	tr, closer, err := p.openMemberRetry(member)
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck

	bw := bufio.NewWriter(out)
	defer bw.Flush() //nolint:errcheck

	for {
		hdr, err := tr.Next()
		if err == io.EOF { //nolint:errorlint
			break
		}

		if err != nil {
			return aerrors.Wrap(err, aerrors.Extraction, "tar read failed").
				WithOperation("archive.ListPathsToStream")
		}

		entryPath := pathsafety.CleanEntryPath(hdr.Name)
		if entryPath == "" || entryPath == "." {
			continue
		}

		line := entryPath + "\t" + strconv.FormatInt(int64(hdr.Mode), 8)
		if hdr.Typeflag == tar.TypeSymlink {
			line += "\t" + hdr.Linkname
		}

		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}

	return nil
}

// openMemberRetry retries a transient AR/tar open up to maxExtractRetries
// times per spec §4.1's failure semantics.
func (p *Package) openMemberRetry(member string) (*tar.Reader, io.Closer, error) {
	var lastErr error

	for attempt := 1; attempt <= maxExtractRetries; attempt++ {
		tr, closer, err := p.openMember(member)
		if err == nil {
			return tr, closer, nil
		}

		lastErr = err

		logger.Debug(i18n.T("logger.archive.warn.retry"), "attempt", attempt, "member", member, "error", err)
	}

	return nil, nil, lastErr
}

func (p *Package) writeEntry(
	hdr *tar.Header, tr *tar.Reader, destPath, destPrefix string, flags Flags, dirsSeen map[string]bool,
) (int64, error) {
	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(destPath, 0o755); err != nil { //nolint:gosec
			return 0, err
		}

		dirsSeen[destPath] = true

		return 0, applyMeta(destPath, hdr, flags)
	case tar.TypeSymlink:
		if err := ensureParentDir(destPath, dirsSeen); err != nil {
			return 0, err
		}

		if flags.Unlink {
			_ = os.Remove(destPath)
		}

		if err := os.Symlink(hdr.Linkname, destPath); err != nil && !(flags.NoOverwrite && os.IsExist(err)) {
			return 0, err
		}

		return 0, nil
	case tar.TypeLink:
		return 0, p.writeHardlink(hdr, destPath, destPrefix, flags, dirsSeen)
	default:
		return p.writeRegular(hdr, tr, destPath, flags, dirsSeen)
	}
}

func (p *Package) writeHardlink(
	hdr *tar.Header, destPath, destPrefix string, flags Flags, dirsSeen map[string]bool,
) error {
	targetPath := filepath.Join(destPrefix, pathsafety.CleanEntryPath(hdr.Linkname))

	if _, err := os.Stat(targetPath); err != nil {
		logger.Warn(i18n.T("logger.archive.warn.hardlink_unresolved"), "path", destPath, "target", targetPath)
		return nil
	}

	if err := ensureParentDir(destPath, dirsSeen); err != nil {
		return err
	}

	if flags.Unlink {
		_ = os.Remove(destPath)
	}

	if err := os.Link(targetPath, destPath); err != nil && !(flags.NoOverwrite && os.IsExist(err)) {
		return err
	}

	return nil
}

func (p *Package) writeRegular(hdr *tar.Header, tr *tar.Reader, destPath string, flags Flags, dirsSeen map[string]bool) (int64, error) {
	if err := ensureParentDir(destPath, dirsSeen); err != nil {
		return 0, err
	}

	if flags.NoOverwrite {
		if _, err := os.Stat(destPath); err == nil {
			return 0, nil
		}
	}

	if flags.Unlink {
		_ = os.Remove(destPath)
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777) //nolint:gosec
	if err != nil {
		return 0, err
	}

	n, err := io.CopyBuffer(out, tr, make([]byte, 32*1024))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return n, err
	}

	return n, applyMeta(destPath, hdr, flags)
}

func ensureParentDir(destPath string, dirsSeen map[string]bool) error {
	dir := filepath.Dir(destPath)
	if dirsSeen[dir] {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return err
	}

	dirsSeen[dir] = true

	return nil
}

func applyMeta(destPath string, hdr *tar.Header, flags Flags) error {
	if flags.Perm {
		if err := os.Chmod(destPath, os.FileMode(hdr.Mode)&0o7777); err != nil {
			return err
		}
	}

	if flags.Owner {
		if err := os.Chown(destPath, hdr.Uid, hdr.Gid); err != nil {
			return err
		}
	}

	if flags.Time {
		if err := os.Chtimes(destPath, hdr.ModTime, hdr.ModTime); err != nil {
			return err
		}
	}

	return nil
}
