package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown rental id or slug.
	ErrNotFound = errors.New("rental not found")
	// ErrInvalidTransition is returned when a decision violates the rental state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrExpired is returned by the resolver for rentals that exist but are no longer live.
	ErrExpired = errors.New("rental link unavailable")
	// ErrSlugTaken is returned by the store when a live record already holds the slug.
	ErrSlugTaken = errors.New("slug already in use")
	// ErrStaleState is returned by the store when a compare-and-swap on status matched no row.
	ErrStaleState = errors.New("rental status changed concurrently")
)

// ValidationError reports a malformed or missing submission field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
