// Package aerrors provides the structured error type used across aept,
// classifying every failure into one of the kinds spec §7 defines.
package aerrors

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure per spec §7.
type Kind string

const (
	// Safety covers unsafe package names or archive paths.
	Safety Kind = "safety"
	// Resolve covers solver problems with force-depends off.
	Resolve Kind = "resolve"
	// DownloadVerify covers network errors, checksum mismatches, signature failures.
	DownloadVerify Kind = "download-verify"
	// Extraction covers archive extraction failures.
	Extraction Kind = "extraction"
	// Script covers maintainer script failures.
	Script Kind = "script"
	// Filesystem covers filesystem errors other than ENOENT-on-unlink.
	Filesystem Kind = "filesystem"
	// Concurrency covers a held advisory lock.
	Concurrency Kind = "concurrency"
)

// Error is a structured error with a Kind, an Operation name, a free-form
// Context map, and an optional wrapped Cause.
type Error struct {
	Kind      Kind
	Message   string
	Cause     error
	Operation string
	Context   map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error comparison for errors.Is based on Kind.
func (e *Error) Is(target error) bool {
	var aerr *Error
	if errors.As(target, &aerr) {
		return e.Kind == aerr.Kind
	}

	return false
}

// WithContext attaches a key/value pair to the error's context map.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}

	e.Context[key] = value

	return e
}

// WithOperation sets the operation that produced the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op

	return e
}

// New creates a new Error of the given Kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Context: make(map[string]any)}
}

// Wrap wraps an existing error with Kind and message context.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: err, Context: make(map[string]any)}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Kind, true
	}

	return "", false
}
