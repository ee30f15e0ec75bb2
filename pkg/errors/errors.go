// Package errors provides structured error types for pradreader.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across readers, the ingestor, and the CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages that name the file and offending key
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The ingestion taxonomy:
//   - FORMAT_MISMATCH: filename or header does not match the declared format
//   - MISSING_METADATA: a required header key, section, or sibling file is absent
//   - GEOMETRY_DEGENERATE: a computed bin count is non-positive or a divisor is zero
//   - UNSUPPORTED_FORMAT: the format tag is not registered
//
// None of these are retried; all are surfaced to the caller.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMissingMetadata, "%s: key %q not found", path, key)
//	if errors.Is(err, errors.ErrCodeMissingMetadata) {
//	    // Handle missing metadata
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFileNotFound, origErr, "open %s", path)
package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Ingestion taxonomy
	ErrCodeFormatMismatch     Code = "FORMAT_MISMATCH"
	ErrCodeMissingMetadata    Code = "MISSING_METADATA"
	ErrCodeGeometryDegenerate Code = "GEOMETRY_DEGENERATE"
	ErrCodeUnsupportedFormat  Code = "UNSUPPORTED_FORMAT"

	// Input and resource errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeCache       Code = "CACHE_ERROR"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix,
// followed by the cause when one is attached.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// FileError wraps an os-level failure to open or stat path, mapping
// not-exist errors to ErrCodeFileNotFound and everything else to
// ErrCodeInvalidInput.
func FileError(err error, path string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return Wrap(ErrCodeFileNotFound, err, "%s", path)
	}
	return Wrap(ErrCodeInvalidInput, err, "%s", path)
}
