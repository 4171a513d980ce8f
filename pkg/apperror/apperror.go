// Package apperror defines the error taxonomy shared by the validators, the
// entity model, the store and the command layer. Every error carries one of
// the sentinel kinds below so callers can branch with errors.Is.
package apperror

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("already exists")
	ErrUsage      = errors.New("usage")
)

// Error is a recoverable failure raised at the command boundary.
type Error struct {
	Kind    error  // one of the sentinel kinds
	Field   string // offending field, if any
	Message string // human-readable, printed as-is
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Invalid reports a value that failed a shape, length or charset check.
func Invalid(field, message string) *Error {
	return &Error{
		Kind:    ErrValidation,
		Field:   field,
		Message: message,
	}
}

// NotFound reports a missing entity looked up by field (an ID or a name).
func NotFound(resource, field string, key any) *Error {
	return &Error{
		Kind:    ErrNotFound,
		Field:   field,
		Message: fmt.Sprintf("%s with %s %s not found.", resource, field, formatKey(key)),
	}
}

// Duplicate reports a unique-constraint violation.
func Duplicate(resource, field string, key any) *Error {
	return &Error{
		Kind:    ErrDuplicate,
		Field:   field,
		Message: fmt.Sprintf("%s with %s %s already exists.", resource, field, formatKey(key)),
	}
}

func formatKey(key any) string {
	if s, ok := key.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(key)
}

// Usage reports a malformed command invocation.
func Usage(format string, args ...any) *Error {
	return &Error{
		Kind:    ErrUsage,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsUserError reports whether err is one of the recoverable kinds, as opposed
// to a storage or system failure.
func IsUserError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrUsage)
}
