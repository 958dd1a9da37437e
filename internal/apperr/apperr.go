// Package apperr defines the error categories the CLI treats specially.
//
//	UserError    invalid or missing user input (bad flag, bad value).
//	             The CLI prints only the message. Exit code 1.
//
//	ErrCancelled the user aborted an interactive form. Exit code 0.
//
// Everything else is a plain Go error wrapped with fmt.Errorf("context: %w").
package apperr

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the user explicitly aborts an interactive
// operation.
var ErrCancelled = errors.New("operation cancelled")

// UserError represents an error caused by invalid or missing user input.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Err }

// User creates a UserError with the given message.
func User(msg string) error { return &UserError{Message: msg} }

// Userf creates a formatted UserError. A %w verb keeps the cause reachable
// through errors.Is and errors.As.
func Userf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &UserError{Message: err.Error(), Err: errors.Unwrap(err)}
}

// IsUser reports whether err is (or wraps) a *UserError.
func IsUser(err error) bool {
	var u *UserError
	return errors.As(err, &u)
}
