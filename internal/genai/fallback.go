package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/metrics"
)

// FallbackCompleter tries a chain of completers in order. Each one is
// retried with backoff on transient errors; quota exhaustion and exhausted
// retries move on to the next provider, permanent errors stop the chain.
type FallbackCompleter struct {
	chain       []Completer
	retryConfig RetryConfig
	metrics     *metrics.Metrics
}

// NewFallbackCompleter creates a completer over chain. m may be nil.
func NewFallbackCompleter(cfg RetryConfig, m *metrics.Metrics, chain ...Completer) *FallbackCompleter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &FallbackCompleter{chain: chain, retryConfig: cfg, metrics: m}
}

// Complete returns the first successful completion in the chain.
func (f *FallbackCompleter) Complete(ctx context.Context, req Request) (string, error) {
	if f == nil || len(f.chain) == 0 {
		return "", errors.New("no language model configured")
	}

	var lastErr error
	for i, c := range f.chain {
		provider := c.Provider()
		if i > 0 {
			prev := f.chain[i-1].Provider()
			slog.InfoContext(ctx, "falling back to next provider", "from", prev, "to", provider)
			f.metrics.RecordLLMFallback(prev.String(), provider.String())
		}

		start := time.Now()
		text, err := f.completeWithRetry(ctx, c, req)
		if err == nil {
			f.metrics.RecordLLM(provider.String(), "success", time.Since(start).Seconds())
			return text, nil
		}
		lastErr = err

		action := ClassifyError(err)
		f.metrics.RecordLLM(provider.String(), action.String(), time.Since(start).Seconds())
		slog.WarnContext(ctx, "language model provider failed",
			"provider", provider,
			"action", action,
			"error", err,
			"duration", time.Since(start))

		if action == ActionFail || ctx.Err() != nil {
			break
		}
	}

	if len(f.chain) > 1 {
		return "", fmt.Errorf("all providers failed: %w", lastErr)
	}
	return "", lastErr
}

func (f *FallbackCompleter) completeWithRetry(ctx context.Context, c Completer, req Request) (string, error) {
	var lastErr error

	for attempt := range f.retryConfig.MaxAttempts {
		if ctx.Err() != nil {
			if lastErr != nil {
				return "", fmt.Errorf("%w: %w", ctx.Err(), lastErr)
			}
			return "", ctx.Err()
		}

		text, err := c.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry {
			return "", err
		}
		if attempt == f.retryConfig.MaxAttempts-1 {
			break
		}

		backoff := max(CalculateBackoff(attempt+1, f.retryConfig.InitialDelay, f.retryConfig.MaxDelay), retryAfter(err))
		if !HasSufficientBudget(ctx, backoff) {
			return "", fmt.Errorf("timeout during retry: %w", lastErr)
		}

		slog.DebugContext(ctx, "retrying completion",
			"provider", c.Provider(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)

		if err := Sleep(ctx, backoff); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

// Provider returns the primary provider.
func (f *FallbackCompleter) Provider() Provider {
	if f == nil || len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].Provider()
}

// Providers lists the chain in order.
func (f *FallbackCompleter) Providers() []Provider {
	out := make([]Provider, 0, len(f.chain))
	for _, c := range f.chain {
		out = append(out, c.Provider())
	}
	return out
}

// Close closes every completer in the chain.
func (f *FallbackCompleter) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, c := range f.chain {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
