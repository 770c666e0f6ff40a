package content

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes pipeline failure semantics across layers.
type ErrorCode string

const (
	// CodeValidation - malformed stage input or request. Never retryable.
	CodeValidation ErrorCode = "validation"
	// CodeNotFound - missing episode or stage record. Aborts before mutation.
	CodeNotFound ErrorCode = "not_found"
	// CodeProvider - completion provider failure (rate limit, 5xx, timeout).
	CodeProvider ErrorCode = "provider"
	// CodePersistence - store unavailable or write rejected.
	CodePersistence ErrorCode = "persistence"
	// CodeConflict - uniqueness or concurrent-update conflict.
	CodeConflict ErrorCode = "conflict"
	// CodeInternal - anything unclassified.
	CodeInternal ErrorCode = "internal"
)

// Error is the canonical pipeline error wrapper. Retryable marks failures an
// external retry policy could reasonably re-attempt; the orchestrator itself
// never auto-retries.
type Error struct {
	Code      ErrorCode
	Op        string
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a pipeline error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// WrapError annotates an existing error; nil in, nil out.
func WrapError(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	// Keep the innermost classification when re-wrapping across layers.
	var inner *Error
	if errors.As(err, &inner) {
		return &Error{Code: inner.Code, Op: strings.TrimSpace(op), Message: err.Error(), Retryable: inner.Retryable, Cause: err}
	}
	return NewError(code, op, err.Error(), err)
}

// RetryableError builds a retryable-flagged error (provider transients).
func RetryableError(code ErrorCode, op, message string, cause error) *Error {
	e := NewError(code, op, message, cause)
	e.Retryable = true
	return e
}

// IsCode checks whether err (or a wrapped err) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code == code
}

// CodeOf extracts the pipeline error code when available.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if !errors.As(err, &pe) {
		return ""
	}
	return pe.Code
}

// IsRetryable reports whether err is flagged safe for an external retry.
func IsRetryable(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Retryable
}
