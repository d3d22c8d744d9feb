// Package mscript invokes Debian-style maintainer scripts (preinst,
// postinst, prerm, postrm) with the exact calling convention spec §6
// documents, routing execution through pkg/sandbox when an offline root is
// configured. The subprocess-supervision shape — CommandContext, a
// line-buffered per-package decorated writer, logger.Debug/Error around
// the call, github.com/pkg/errors wrapping — is grounded on the teacher's
// pkg/shell/exec.go ExecWithContext.
package mscript

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/sandbox"
)

// Phase identifies which of the four maintainer scripts is being invoked.
type Phase string

const (
	Preinst  Phase = "preinst"
	Postinst Phase = "postinst"
	Prerm    Phase = "prerm"
	Postrm   Phase = "postrm"
)

// Operation identifies which transaction-engine sub-state-machine is
// driving the script invocation.
type Operation string

const (
	OpInstall Operation = "install"
	OpUpgrade Operation = "upgrade"
	OpRemove  Operation = "remove"
)

// Outcome classifies how the caller must react to a non-zero exit, per
// spec §6: "Non-zero preinst aborts the step; non-zero postinst demotes
// the package record to unpacked but is not fatal; non-zero prerm aborts
// removal/upgrade; non-zero postrm logs a warning and continues."
type Outcome int

const (
	OutcomeAbort Outcome = iota
	OutcomeDemoteUnpacked
	OutcomeWarnContinue
)

// ClassifyFailure returns how a non-zero exit from phase should be handled.
func ClassifyFailure(phase Phase) Outcome {
	switch phase {
	case Postinst:
		return OutcomeDemoteUnpacked
	case Postrm:
		return OutcomeWarnContinue
	case Preinst, Prerm:
		return OutcomeAbort
	default:
		return OutcomeAbort
	}
}

// Args builds the calling-convention argv (excluding "/bin/sh <path>") for
// phase under op, per spec §6's table. newVersion and oldVersion may be
// empty when not applicable to the phase.
func Args(op Operation, phase Phase, newVersion, oldVersion string) []string {
	switch op {
	case OpInstall:
		switch phase {
		case Preinst:
			return []string{"install"}
		case Postinst:
			return []string{"configure"}
		}
	case OpUpgrade:
		switch phase {
		case Preinst:
			return []string{"upgrade", oldVersion}
		case Postinst:
			return []string{"configure", oldVersion}
		case Prerm:
			return []string{"upgrade", newVersion}
		case Postrm:
			return []string{"upgrade", newVersion}
		}
	case OpRemove:
		switch phase {
		case Prerm:
			return []string{"remove"}
		case Postrm:
			return []string{"remove"}
		}
	}

	return nil
}

// Request describes a single maintainer-script invocation.
type Request struct {
	PackageName string
	Phase       Phase
	ScriptPath  string
	Args        []string
	OfflineRoot string
}

// Invoke runs `/bin/sh <path> <args...>` for req, through the offline-root
// sandbox when req.OfflineRoot is set. It returns the exit code (0 on
// success) and an error describing any non-zero exit or launch failure;
// callers apply the per-phase outcome that ClassifyFailure(req.Phase)
// describes.
func Invoke(ctx context.Context, req Request) (int, error) {
	argv := append([]string{"/bin/sh", req.ScriptPath}, req.Args...)
	writer := newDecoratedWriter(req.PackageName)

	logger.Debug("running maintainer script",
		"package", req.PackageName,
		"phase", string(req.Phase),
		"args", req.Args)

	start := time.Now()

	code, err := sandbox.Run(ctx, sandbox.Request{
		OfflineRoot: req.OfflineRoot,
		Argv:        argv,
		Stdout:      writer,
		Stderr:      writer,
	})

	duration := time.Since(start)

	if err != nil {
		logger.Error("maintainer script failed",
			"package", req.PackageName,
			"phase", string(req.Phase),
			"exit_code", code,
			"duration", duration,
			"error", err)

		return code, errors.Wrapf(err, "maintainer script %s failed for %s", req.Phase, req.PackageName)
	}

	logger.Debug("maintainer script completed",
		"package", req.PackageName,
		"phase", string(req.Phase),
		"duration", duration)

	return code, nil
}

// decoratedWriter prefixes each output line with the owning package's name,
// the same line-buffering shape as the teacher's PackageDecoratedWriter,
// trimmed to a single destination (the process logger) since maintainer
// scripts never need pterm's live MultiPrinter.
type decoratedWriter struct {
	packageName string
	buffer      []byte
}

func newDecoratedWriter(packageName string) *decoratedWriter {
	return &decoratedWriter{packageName: packageName, buffer: make([]byte, 0, 256)}
}

func (w *decoratedWriter) Write(p []byte) (int, error) {
	originalLen := len(p)
	w.buffer = append(w.buffer, p...)

	for {
		lineEnd := bytes.IndexByte(w.buffer, '\n')
		if lineEnd == -1 {
			break
		}

		line := strings.TrimRight(string(w.buffer[:lineEnd]), "\r")
		w.buffer = w.buffer[lineEnd+1:]

		if strings.TrimSpace(line) != "" {
			logger.Info(fmt.Sprintf("[%s] %s", w.packageName, line))
		}
	}

	return originalLen, nil
}
