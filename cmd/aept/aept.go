// Package main provides the aept command-line package manager.
package main

import (
	"github.com/aept-pm/aept/cmd/aept/command"
	"github.com/aept-pm/aept/pkg/sandbox"
)

func main() {
	// Must run before cobra or any other goroutine starts: on the
	// re-exec'd child this never returns, replacing the process image
	// via execve once the offline-root sandbox is set up.
	sandbox.RunChild()

	command.Execute()
}
