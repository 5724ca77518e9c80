package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a live resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness rule would be broken.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates malformed or semantically invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized indicates missing or unusable credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller lacks a capability.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
