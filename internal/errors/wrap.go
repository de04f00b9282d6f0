package errors

import (
	"errors"
	"fmt"
)

// ErrorWrapper adds module and operation context to errors.
type ErrorWrapper struct {
	operation string
	module    string
}

// NewWrapper creates a new error wrapper with module and operation context.
func NewWrapper(module, operation string) *ErrorWrapper {
	return &ErrorWrapper{module: module, operation: operation}
}

// Wrap wraps err with the context and the text shown to the user.
// Returns nil if err is nil.
func (w *ErrorWrapper) Wrap(err error, userMessage string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation:   w.operation,
		Module:      w.module,
		Cause:       err,
		UserMessage: userMessage,
	}
}

// Wrapf is Wrap with a formatted user message.
func (w *ErrorWrapper) Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return w.Wrap(err, fmt.Sprintf(format, args...))
}

// WrappedError keeps the internal cause apart from the user-facing text.
type WrappedError struct {
	Operation   string // e.g. "submit", "quick_link"
	Module      string // e.g. "assistant", "sitedata"
	Cause       error
	UserMessage string
}

func (e *WrappedError) Error() string {
	return fmt.Sprintf("[%s:%s] %s: %v", e.Module, e.Operation, e.UserMessage, e.Cause)
}

func (e *WrappedError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the user-facing text of the first WrappedError in the
// chain, or fallback when there is none.
func UserMessage(err error, fallback string) string {
	var wrapped *WrappedError
	if errors.As(err, &wrapped) && wrapped.UserMessage != "" {
		return wrapped.UserMessage
	}
	return fallback
}
