//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/aept-pm/aept/pkg/logger"
)

// RunChild performs the unshare → setgroups deny → uid/gid map → chroot →
// execvp sequence. It must be called as the very first
// thing in main(), before cobra or any other goroutine starts, and it never
// returns on success: execve replaces the process image outright. On any
// pre-exec failure it exits with ExitSetupFailed; if execve itself fails it
// exits with ExitExecFailed. Callers that are not the re-exec'd child
// (IsChild() is false) get a no-op.
func RunChild() {
	if !IsChild() {
		return
	}

	// CLONE_NEWUSER only unshares the calling thread; keep this goroutine
	// pinned so the uid/gid map writes below land on the same thread that
	// will exec.
	runtime.LockOSThread()

	offlineRoot := os.Getenv(rootEnvVar)
	realUID := os.Getenv(realUIDEnvVar)
	realGID := os.Getenv(realGIDEnvVar)
	argv := os.Args[1:]

	if len(argv) == 0 {
		fmt.Fprintln(os.Stderr, "aept: sandbox: empty argv")
		os.Exit(ExitSetupFailed)
	}

	if err := unix.Unshare(unix.CLONE_NEWUSER); err != nil {
		fmt.Fprintln(os.Stderr, "aept: sandbox: unshare(CLONE_NEWUSER):", err)
		os.Exit(ExitSetupFailed)
	}

	if err := os.WriteFile("/proc/self/setgroups", []byte("deny"), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "aept: sandbox: write setgroups:", err)
		os.Exit(ExitSetupFailed)
	}

	if err := os.WriteFile("/proc/self/uid_map", []byte(fmt.Sprintf("0 %s 1", realUID)), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "aept: sandbox: write uid_map:", err)
		os.Exit(ExitSetupFailed)
	}

	if err := os.WriteFile("/proc/self/gid_map", []byte(fmt.Sprintf("0 %s 1", realGID)), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "aept: sandbox: write gid_map:", err)
		os.Exit(ExitSetupFailed)
	}

	if err := syscall.Chroot(offlineRoot); err != nil {
		fmt.Fprintln(os.Stderr, "aept: sandbox: chroot:", err)
		os.Exit(ExitSetupFailed)
	}

	if err := syscall.Chdir("/"); err != nil {
		fmt.Fprintln(os.Stderr, "aept: sandbox: chdir after chroot:", err)
		os.Exit(ExitSetupFailed)
	}

	binary := argv[0]
	if resolved, err := exec.LookPath(argv[0]); err == nil {
		binary = resolved
	}

	logger.Debug("sandbox: exec", "binary", binary, "argv", argv)

	if err := syscall.Exec(binary, argv, os.Environ()); err != nil {
		fmt.Fprintln(os.Stderr, "aept: sandbox: execvp:", err)
		os.Exit(ExitExecFailed)
	}
}
