// Package pathsafety validates package/source names and archive entry paths
// against path traversal and other unsafe constructions.
package pathsafety

import (
	"path"
	"regexp"
	"strings"

	"github.com/aept-pm/aept/pkg/aerrors"
)

// nameRE is the identity grammar spec §3 requires for package and source names.
var nameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9+.\-]*$`)

// ValidName reports whether name matches the package/source name grammar.
func ValidName(name string) bool {
	return nameRE.MatchString(name)
}

// CheckName validates name and returns a Safety error tagged with operation op.
func CheckName(op, name string) error {
	if !ValidName(name) {
		return aerrors.New(aerrors.Safety, "invalid name: "+name).WithOperation(op).
			WithContext("name", name)
	}

	return nil
}

// CleanEntryPath strips a single leading "./" from an archive entry path.
func CleanEntryPath(entry string) string {
	return strings.TrimPrefix(entry, "./")
}

// SafeEntryPath reports whether an archive entry path is safe to extract:
// after stripping one leading "./" it must not be absolute and must contain
// no ".." segment.
func SafeEntryPath(entry string) bool {
	cleaned := CleanEntryPath(entry)
	if cleaned == "" {
		return false
	}

	if path.IsAbs(cleaned) {
		return false
	}

	for _, seg := range strings.Split(cleaned, "/") {
		if seg == ".." {
			return false
		}
	}

	return true
}

// SafeSymlinkTarget reports whether a symlink's target is relative and,
// once joined to the directory containing entryPath, does not escape above
// the archive root (so "../lib/foo" from usr/bin/foo is accepted).
func SafeSymlinkTarget(entryPath, target string) bool {
	if path.IsAbs(target) {
		return false
	}

	dir := path.Dir(CleanEntryPath(entryPath))
	joined := path.Join(dir, target)

	return !strings.HasPrefix(joined, "..")
}

// CheckEntry validates an archive entry's path (and, if it is a symlink, its
// target) returning a Safety error tagged with operation op on failure.
func CheckEntry(op, entryPath, symlinkTarget string) error {
	if !SafeEntryPath(entryPath) {
		return aerrors.New(aerrors.Safety, "unsafe archive entry path: "+entryPath).
			WithOperation(op).WithContext("path", entryPath)
	}

	if symlinkTarget != "" && !SafeSymlinkTarget(entryPath, symlinkTarget) {
		return aerrors.New(aerrors.Safety, "unsafe symlink target: "+symlinkTarget).
			WithOperation(op).WithContext("path", entryPath).WithContext("target", symlinkTarget)
	}

	return nil
}
