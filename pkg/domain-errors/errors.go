// Package dErrors provides coded domain errors shared by services and
// transport layers. Services attach a Code describing the class of failure;
// handlers translate codes to HTTP statuses without inspecting messages.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for programmatic handling.
type Code string

const (
	// CodeInvalidInput marks malformed input to a pure construction or
	// validation function (empty value, wrong length, bad characters).
	CodeInvalidInput Code = "invalid_input"
	// CodeValidation marks a semantic validation failure with a
	// human-readable reason (bad date, bad checksum).
	CodeValidation Code = "validation"
	// CodeBadRequest marks an unparseable or structurally invalid request.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a uniqueness or state conflict.
	CodeConflict Code = "conflict"
	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated caller lacking permission.
	CodeForbidden Code = "forbidden"
	// CodeInvariantViolation marks a broken aggregate invariant. Constructors
	// return this; services convert it to CodeValidation at the API boundary.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnavailable marks a transient infrastructure failure (store
	// unreachable, retry budget exhausted). Callers may retry.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks an unexpected failure.
	CodeInternal Code = "internal"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost domain error in the chain, or
// CodeInternal when err carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
