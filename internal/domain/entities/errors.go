package entities

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode classifies domain errors for programmatic handling.
type ErrorCode string

const (
	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeValidation ErrorCode = "VALIDATION"
	CodeForbidden  ErrorCode = "FORBIDDEN"
	CodeInternal   ErrorCode = "INTERNAL"
	CodeCancelled  ErrorCode = "CANCELLED"
)

// ErrConstraintViolation is returned by stores when a storage-level constraint
// (unique index, trigger, in-transaction cycle check) rejects a write.
var ErrConstraintViolation = errors.New("constraint violation")

// Error is a structured error with a code, message and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
// Format: "[CODE] message" or "[CODE] message: cause".
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// NewNotFoundError reports a missing person, union or edge.
func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError reports a rejected write or bad input.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewForbiddenError reports a person outside the request scope.
func NewForbiddenError(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// WrapInternal wraps an unexpected storage failure.
func WrapInternal(message string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: message, Cause: cause}
}

// NewCancelledError wraps a context error raised mid-traversal.
func NewCancelledError(operation string, cause error) *Error {
	return &Error{Code: CodeCancelled, Message: operation + " cancelled", Cause: cause}
}

// IsCode reports whether err (or anything it wraps) is an *Error with code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Classify turns an arbitrary error from a store or traversal into a domain
// error. Context errors become Cancelled, domain errors pass through and
// everything else is Internal.
func Classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewCancelledError(operation, err)
	}
	return WrapInternal(operation+" failed", err)
}
