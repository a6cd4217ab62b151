// Package errors provides standardized domain errors with codes for Shelfmark.
//
// Usage:
//
//	// In services - return typed errors
//	if offline {
//	    return errors.Offline("sync requires a network connection")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrOffline) {
//	    // report, wait for the connectivity trigger
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeAlreadyExists   Code = "ALREADY_EXISTS"
	CodeValidation      Code = "VALIDATION"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
	CodeOffline         Code = "OFFLINE"
	CodeSyncInFlight    Code = "SYNC_IN_FLIGHT"
	CodeVersionMismatch Code = "VERSION_MISMATCH"
	CodeMergeRejected   Code = "MERGE_REJECTED"
	CodeResetBlocked    Code = "RESET_BLOCKED"
	CodeRemote          Code = "REMOTE"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeSyncInFlight:
		return http.StatusConflict
	case CodeValidation, CodeMergeRejected:
		return http.StatusBadRequest
	case CodeOffline, CodeRemote:
		return http.StatusServiceUnavailable
	case CodeVersionMismatch, CodeResetBlocked:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists   = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation      = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict        = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal        = &Error{Code: CodeInternal, Message: "internal error"}
	ErrOffline         = &Error{Code: CodeOffline, Message: "offline"}
	ErrSyncInFlight    = &Error{Code: CodeSyncInFlight, Message: "sync already in flight"}
	ErrVersionMismatch = &Error{Code: CodeVersionMismatch, Message: "local store schema version mismatch"}
	ErrMergeRejected   = &Error{Code: CodeMergeRejected, Message: "merged entity failed validation"}
	ErrResetBlocked    = &Error{Code: CodeResetBlocked, Message: "store reset blocked by another open session"}
	ErrRemote          = &Error{Code: CodeRemote, Message: "remote sync endpoint error"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error carrying per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Offline creates a connectivity error.
func Offline(msg string) *Error {
	return &Error{Code: CodeOffline, Message: msg}
}

// VersionMismatch creates a schema version mismatch error.
func VersionMismatch(msg string) *Error {
	return &Error{Code: CodeVersionMismatch, Message: msg}
}

// MergeRejected creates a merge validation failure error.
func MergeRejected(msg string) *Error {
	return &Error{Code: CodeMergeRejected, Message: msg}
}

// ResetBlocked creates a blocked-deletion warning error.
func ResetBlocked(msg string) *Error {
	return &Error{Code: CodeResetBlocked, Message: msg}
}

// Remote creates a remote endpoint error.
func Remote(msg string) *Error {
	return &Error{Code: CodeRemote, Message: msg}
}
