package transaction

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/aept-pm/aept/pkg/aerrors"
	"github.com/aept-pm/aept/pkg/archive"
	"github.com/aept-pm/aept/pkg/pathsafety"
)

// controlMembers are the members extractControlFiles tries to pull from a
// package's control archive, per spec §3: a mandatory "control" stanza and
// four optional maintainer scripts plus the conffiles list.
var controlMembers = []string{"control", "conffiles", "preinst", "postinst", "prerm", "postrm"}

// extractControlFiles writes every present control-archive member into
// destDir under its own name (the "extract control" step of the pure
// install and upgrade sub-state-machines). Absent optional members are
// skipped; a missing "control" stanza is a hard failure.
func extractControlFiles(pkgArchive *archive.Package, destDir string) error {
	for _, member := range controlMembers {
		var buf bytes.Buffer

		err := pkgArchive.ExtractFileToStream(member, &buf)
		if err != nil {
			if member != "control" && isMemberNotFound(err) {
				continue
			}

			return err
		}

		if err := os.WriteFile(filepath.Join(destDir, member), buf.Bytes(), 0o644); err != nil { //nolint:gosec
			return aerrors.Wrap(err, aerrors.Filesystem, "failed to stage control member").
				WithOperation("transaction.extractControlFiles").WithContext("member", member)
		}
	}

	return nil
}

func isMemberNotFound(err error) bool {
	var aerr *aerrors.Error
	if errors.As(err, &aerr) {
		return aerr.Kind == aerrors.Extraction && strings.HasPrefix(aerr.Message, "member not found")
	}

	return false
}

// loadPackageConffiles returns the paths declared by the package's
// "conffiles" control member, canonicalized to the same root-relative,
// leading-slash-stripped form pathsafety.CleanEntryPath produces for tar
// entry names (e.g. "/etc/a.conf" becomes "etc/a.conf"). Every downstream
// consumer — ExtractAll's diversion set, the .list file, and the
// .conffiles record — must key on this same form or a conffile lookup
// silently misses. Returns nil when the package declares none.
func loadPackageConffiles(pkgArchive *archive.Package) ([]string, error) {
	var buf bytes.Buffer

	err := pkgArchive.ExtractFileToStream("conffiles", &buf)
	if err != nil {
		if isMemberNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	var out []string

	for _, line := range strings.Split(buf.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, strings.TrimPrefix(pathsafety.CleanEntryPath(line), "/"))
		}
	}

	return out, nil
}

// installInfoFiles copies each staged control member from tmpDir into
// infoDir under its <name>.<ext> name, making maintainer scripts
// executable. Called after data extraction succeeds and before postinst
// runs (spec §4.7's pure-install ordering).
func installInfoFiles(tmpDir, infoDir, name string) error {
	if err := os.MkdirAll(infoDir, 0o755); err != nil { //nolint:gosec
		return aerrors.Wrap(err, aerrors.Filesystem, "failed to create info directory").
			WithOperation("transaction.installInfoFiles")
	}

	for _, member := range controlMembers {
		if member == "conffiles" {
			continue // written separately with recorded md5s, not the raw declaration
		}

		src := filepath.Join(tmpDir, member)

		data, err := os.ReadFile(src) //nolint:gosec
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return aerrors.Wrap(err, aerrors.Filesystem, "failed to read staged control member").
				WithOperation("transaction.installInfoFiles").WithContext("member", member)
		}

		dest := controlPath(infoDir, name)
		mode := os.FileMode(0o644)

		if member != "control" {
			dest = scriptPath(infoDir, name, member)
			mode = 0o755
		}

		if err := writeAtomic(dest, data); err != nil {
			return err
		}

		if mode == 0o755 {
			if err := os.Chmod(dest, mode); err != nil { //nolint:gosec
				return aerrors.Wrap(err, aerrors.Filesystem, "failed to mark script executable").
					WithOperation("transaction.installInfoFiles").WithContext("path", dest)
			}
		}
	}

	return nil
}
