package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrorsWrap(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrEmptyQuery, ErrSessionNotFound, ErrTurnInFlight, ErrUnknownQuickLink,
		ErrRateLimitExceeded, ErrResponderDeclined, ErrResponderUnavailable, ErrNotFound,
	}
	for _, s := range sentinels {
		wrapped := fmt.Errorf("outer: %w", s)
		assert.ErrorIs(t, wrapped, s)
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := NewValidationError("text", "must not be blank")
	assert.Equal(t, "validation failed on text: must not be blank", err.Error())

	var target *ValidationError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &target))
	assert.Equal(t, "text", target.Field)
}

func TestResponderError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewResponderError("llm", nil))

	cause := errors.New("connection reset")
	err := NewResponderError("llm", cause)
	assert.Equal(t, "responder llm: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	var re *ResponderError
	assert.True(t, errors.As(err, &re))
	assert.Equal(t, "llm", re.Responder)
}

func TestIsDeclined(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDeclined(ErrResponderDeclined))
	assert.True(t, IsDeclined(NewResponderError("site", ErrResponderUnavailable)))
	assert.False(t, IsDeclined(errors.New("boom")))
	assert.False(t, IsDeclined(nil))
}
