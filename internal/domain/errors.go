package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound covers both missing and already-completed sessions,
	// so callers cannot tell which case occurred.
	ErrSessionNotFound = errors.New("invalid or expired session")
	// ErrSuspiciousTiming rejects submissions completed faster than the
	// per-question minimum.
	ErrSuspiciousTiming = errors.New("suspicious completion time")
	// ErrCorpusUnavailable indicates the snippet corpus is missing or empty.
	// Session creation is disabled until it is resolved.
	ErrCorpusUnavailable = errors.New("no snippets available")
)

// ValidationError reports a malformed or out-of-range input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a field-level validation failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is a field validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
