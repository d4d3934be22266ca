// Package apperr defines the error kinds surfaced by the engagement engine.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means an unknown session, registration, or webinar id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput means the caller sent a malformed value.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden means the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrUnavailable means the underlying storage failed.
	ErrUnavailable = errors.New("storage unavailable")
)

// NotFound returns an error of kind ErrNotFound describing what was missing.
func NotFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

// Invalid returns an error of kind ErrInvalidInput.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// Forbidden returns an error of kind ErrForbidden.
func Forbidden(what string) error {
	return fmt.Errorf("%s: %w", what, ErrForbidden)
}

// Unavailable wraps a storage error as ErrUnavailable, keeping the cause in the chain.
// Errors that already carry a kind are returned with op context only.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrForbidden) || errors.Is(err, ErrUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// IsNotFound reports whether err is of kind ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalid reports whether err is of kind ErrInvalidInput.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsForbidden reports whether err is of kind ErrForbidden.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsUnavailable reports whether err is of kind ErrUnavailable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
