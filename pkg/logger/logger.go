// Package logger wraps pterm's key/value logger with the prefixing and
// color-disable behavior the aept CLI and engine packages share.
package logger

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
)

// argsToLoggerArgs pairs up a flat key, value, key, value... list into
// pterm's structured logger arguments.
func argsToLoggerArgs(args ...any) []pterm.LoggerArgument {
	if len(args) == 0 {
		return nil
	}

	loggerArgs := make([]pterm.LoggerArgument, 0, len(args)/2) //nolint:mnd

	for i := 0; i < len(args)-1; i += 2 {
		loggerArgs = append(loggerArgs, pterm.LoggerArgument{
			Key:   fmt.Sprintf("%v", args[i]),
			Value: args[i+1],
		})
	}

	return loggerArgs
}

var (
	// ptermLogger is the underlying pterm logger, styled so the path/package
	// keys the transaction engine logs most often stand out in a terminal.
	ptermLogger = pterm.DefaultLogger.
			WithLevel(pterm.LogLevelTrace).
			WithCaller(false).
			WithTime(true).
			WithKeyStyles(map[string]pterm.Style{
			"package": *pterm.NewStyle(pterm.FgGreen),
			"path":    *pterm.NewStyle(pterm.FgLightBlue),
			"command": *pterm.NewStyle(pterm.FgLightBlue),
			"name":    *pterm.NewStyle(pterm.FgCyan),
		})

	colorDisabled = false
)

// IsColorDisabled reports whether color output is currently disabled,
// either programmatically via SetColorDisabled or by NO_COLOR/no terminal.
func IsColorDisabled() bool {
	if colorDisabled {
		return true
	}

	if os.Getenv("NO_COLOR") != "" {
		return true
	}

	return os.Getenv("COLORTERM") == "" && os.Getenv("TERM") == ""
}

// SetColorDisabled enables or disables pterm color output process-wide,
// used by the root command's --no-color flag and non-tty detection.
func SetColorDisabled(disabled bool) {
	colorDisabled = disabled

	if disabled {
		pterm.DisableColor()
	} else {
		pterm.EnableColor()
	}
}

func prefixed(msg string) string {
	return fmt.Sprintf("[aept] %s", msg)
}

// Debug logs a debug-level message with the package-wide aept prefix.
func Debug(msg string, args ...any) {
	ptermLogger.Debug(prefixed(msg), argsToLoggerArgs(args...))
}

// Info logs an info-level message with the package-wide aept prefix.
func Info(msg string, args ...any) {
	ptermLogger.Info(prefixed(msg), argsToLoggerArgs(args...))
}

// Warn logs a warn-level message with the package-wide aept prefix.
func Warn(msg string, args ...any) {
	ptermLogger.Warn(prefixed(msg), argsToLoggerArgs(args...))
}

// Error logs an error-level message with the package-wide aept prefix.
func Error(msg string, args ...any) {
	ptermLogger.Error(prefixed(msg), argsToLoggerArgs(args...))
}

// Fatal logs a fatal-level message with the package-wide aept prefix, then
// exits the process (pterm's Fatal calls os.Exit(1)).
func Fatal(msg string, args ...any) {
	ptermLogger.Fatal(prefixed(msg), argsToLoggerArgs(args...))
}

// CompatLogger is a thin per-EngineContext handle onto the package-level
// logger, so callers that hold an *EngineContext can log without importing
// this package directly.
type CompatLogger struct{}

// Global returns the shared logger handle.
func Global() *CompatLogger {
	return &CompatLogger{}
}

// Debug logs a debug-level message through the shared logger.
func (*CompatLogger) Debug(msg string, args ...any) { Debug(msg, args...) }

// Info logs an info-level message through the shared logger.
func (*CompatLogger) Info(msg string, args ...any) { Info(msg, args...) }

// Warn logs a warn-level message through the shared logger.
func (*CompatLogger) Warn(msg string, args ...any) { Warn(msg, args...) }

// Error logs an error-level message through the shared logger.
func (*CompatLogger) Error(msg string, args ...any) { Error(msg, args...) }
