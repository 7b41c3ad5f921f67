// Package errors carries the code-classified error type used across
// the inventory core. Describers and adapters wrap provider errors
// here; the aggregator and HTTP layer branch on the code.
package errors

import (
	"errors"
	"fmt"
)

// AppError is an error with a classification code. It participates in
// errors.Is/As chains through Unwrap.
type AppError struct {
	Code         Code
	Message      string
	WrappedError error
}

func (e *AppError) Error() string {
	if e.WrappedError != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.WrappedError)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.WrappedError
}

// New creates a classified error.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. An error that already carries a code keeps it;
// wrapping nil returns nil.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{Code: code, Message: message, WrappedError: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// GetCode extracts the code from anywhere in err's chain, CodeUnknown
// when none is present.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// IsConfiguration reports a missing/invalid profile or credentials.
func IsConfiguration(err error) bool { return Is(err, CodeConfiguration) }

// IsAuthentication reports a rejected credential or role assumption.
func IsAuthentication(err error) bool { return Is(err, CodeAuthentication) }

// IsNotFound reports a missing stored entity.
func IsNotFound(err error) bool { return Is(err, CodeNotFound) }

// IsConflict reports a uniqueness violation.
func IsConflict(err error) bool { return Is(err, CodeConflict) }

// IsFatal reports whether the error must abort the request rather than
// degrade into partial data.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeConfiguration, CodeAuthentication:
		return true
	default:
		return false
	}
}
