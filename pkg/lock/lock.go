// Package lock implements the process-wide exclusive advisory lock spec §5
// requires around every state-mutating transaction: flock LOCK_EX|LOCK_NB
// on lock_file, released on exit. Built on golang.org/x/sys/unix, the same
// dependency pkg/sandbox already promoted to direct for its own syscall
// work — no pack library wraps flock more narrowly than that.
package lock

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/aept-pm/aept/pkg/aerrors"
)

// Lock holds an acquired advisory lock. Release must be called exactly
// once to close the underlying file descriptor.
type Lock struct {
	file *os.File
}

// Acquire opens (creating if needed) path and takes a non-blocking
// exclusive flock on it. A lock already held by another process surfaces
// as a Concurrency error, per spec §7: "Immediately fatal; the caller is
// told another instance is running."
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to create lock directory").
			WithOperation("lock.Acquire")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644) //nolint:gosec
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to open lock file").
			WithOperation("lock.Acquire").WithContext("path", path)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()

		return nil, aerrors.Wrap(err, aerrors.Concurrency, "another instance is running").
			WithOperation("lock.Acquire").WithContext("path", path)
	}

	return &Lock{file: f}, nil
}

// Release drops the flock and closes the file.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)

	return l.file.Close()
}
