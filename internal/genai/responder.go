package genai

import (
	"context"
	"fmt"

	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/ratelimit"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/responder"
)

// anonymousKey budgets callers without a session id together.
const anonymousKey = "anonymous"

// Responder is the language-model step of the external chain.
type Responder struct {
	completer   Completer
	limiter     *ratelimit.KeyedLimiter
	maxTokens   int
	temperature float64
}

// NewResponder wraps completer. limiter may be nil for no budget.
func NewResponder(completer Completer, limiter *ratelimit.KeyedLimiter, maxTokens int, temperature float64) *Responder {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Responder{
		completer:   completer,
		limiter:     limiter,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Name implements responder.Responder.
func (r *Responder) Name() string { return responder.SourceLLM }

// Respond asks the model, declining when the session's budget is spent.
func (r *Responder) Respond(ctx context.Context, in responder.Input) (string, error) {
	if r == nil || r.completer == nil {
		return "", domerrors.ErrResponderUnavailable
	}

	key := in.SessionID
	if key == "" {
		key = anonymousKey
	}
	if r.limiter != nil && !r.limiter.Allow(key) {
		return "", fmt.Errorf("language model budget exhausted: %w", domerrors.ErrResponderDeclined)
	}

	return r.completer.Complete(ctx, r.Request(in))
}

// Request builds the chat request for in.
func (r *Responder) Request(in responder.Input) Request {
	return Request{
		System:      SystemPrompt(in.Style),
		Messages:    BuildMessages(in.History, in.Text),
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	}
}
