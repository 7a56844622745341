package services

import (
	"errors"
	"fmt"
	"strings"
)

// The error taxonomy callers can branch on. Every business-rule violation
// raised by the ledger or the reconciliation engine is one of these; raw
// storage errors never escape.
var (
	// ErrForbidden: verified principal lacking a capability or ownership.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound: referenced entity absent within the tenant's scope.
	ErrNotFound = errors.New("not found")
	// ErrConflict: uniqueness violation, already-voided, or an edit against
	// a terminal state. Retrying the same request cannot succeed.
	ErrConflict = errors.New("conflict")
)

// ValidationError names the offending field(s) so the caller can correct
// and resubmit, as opposed to a Conflict which is not retryable.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// ConflictError wraps ErrConflict with a caller-facing detail message.
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return e.Detail
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

func newConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Detail: fmt.Sprintf(format, args...)}
}

// ForbiddenError wraps ErrForbidden with a caller-facing detail message.
type ForbiddenError struct {
	Detail string
}

func (e *ForbiddenError) Error() string {
	return e.Detail
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

func newForbiddenError(format string, args ...interface{}) *ForbiddenError {
	return &ForbiddenError{Detail: fmt.Sprintf(format, args...)}
}
