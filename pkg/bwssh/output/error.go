package output

import (
	"fmt"
)

// Error represents a structured error with code, message, and optional cause.
// It implements the standard error interface and supports error chaining.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// NewError creates a new structured error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorf creates a new structured error with a formatted message.
func NewErrorf(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithCause wraps an underlying error for error chaining.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the numeric exit code for CLI use.
func (e *Error) ExitCode() ExitCode {
	return e.Code.GetExitCode()
}

// Is checks if this error matches another error by code.
// This supports errors.Is() for code-based matching.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}
