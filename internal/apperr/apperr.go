// Package apperr defines the error taxonomy shared by the service layers.
// Lower layers raise these; the HTTP layer maps them to status codes.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// ErrFetchFailed is the single user-facing error for every remote
	// fetch problem; the concrete cause is logged, never returned.
	ErrFetchFailed = errors.New("could not retrieve image from the given URL")
)

// ValidationError covers bad input: unsupported MIME type, oversized payload,
// corrupt image, malformed URL. Never retried, always surfaced with a reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError covers "already present" cases. The reason distinguishes a
// duplicate save-reference from an asset uploaded directly to the board.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func Conflictf(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
