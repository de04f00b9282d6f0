// Package errors provides the assistant's sentinel errors and error types.
// Callers match them with errors.Is and errors.As.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrEmptyQuery is returned for empty or whitespace-only input.
	// A turn is never recorded for it.
	ErrEmptyQuery = errors.New("empty query")

	// ErrSessionNotFound indicates an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTurnInFlight is returned when a session already has a turn running.
	ErrTurnInFlight = errors.New("a turn is already in progress for this session")

	// ErrUnknownQuickLink indicates a quick link id outside the fixed set.
	ErrUnknownQuickLink = errors.New("unknown quick link")

	// ErrRateLimitExceeded indicates the caller exceeded its request budget.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrResponderDeclined is returned by an external responder that has no
	// answer for a query. It moves the chain on and is not a failure.
	ErrResponderDeclined = errors.New("responder declined")

	// ErrResponderUnavailable indicates a responder that is not configured.
	ErrResponderUnavailable = errors.New("responder unavailable")

	// ErrNotFound indicates a requested record was not found.
	ErrNotFound = errors.New("resource not found")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ResponderError records which external responder failed.
type ResponderError struct {
	Responder string
	Err       error
}

func (e *ResponderError) Error() string {
	return fmt.Sprintf("responder %s: %v", e.Responder, e.Err)
}

func (e *ResponderError) Unwrap() error {
	return e.Err
}

// NewResponderError wraps err with the responder name.
// Returns nil if err is nil.
func NewResponderError(responder string, err error) error {
	if err == nil {
		return nil
	}
	return &ResponderError{Responder: responder, Err: err}
}

// IsDeclined reports whether err is only a decline, not a failure.
func IsDeclined(err error) bool {
	return errors.Is(err, ErrResponderDeclined) || errors.Is(err, ErrResponderUnavailable)
}
