//go:build !linux

package sandbox

import (
	"fmt"
	"os"
)

// RunChild is unsupported outside Linux: CLONE_NEWUSER is a Linux-only
// namespace primitive. Run has no platform check, so a non-root call with
// an offline root still re-execs with the child marker set, and the child
// exits here with ExitSetupFailed.
func RunChild() {
	if !IsChild() {
		return
	}

	fmt.Fprintln(os.Stderr, "aept: sandbox: offline-root sandbox requires linux")
	os.Exit(ExitSetupFailed)
}
