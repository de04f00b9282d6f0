package genai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorAction defines the action to take based on error type.
type ErrorAction int

const (
	// ActionRetry retries the same provider after a backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback moves on to the next provider.
	ActionFallback
	// ActionFail gives up on the request.
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// LLMError wraps a provider error with its HTTP status.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
	// RetryAfter is the server-requested delay, 0 when absent.
	RetryAfter time.Duration
}

func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return e.Err.Error()
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider and status code information.
func WrapError(err error, provider Provider, statusCode int) error {
	if err == nil {
		return nil
	}
	return &LLMError{Err: err, StatusCode: statusCode, Provider: provider}
}

// ClassifyError decides what to do after a failed call:
//   - quota exhaustion: fallback to the next provider
//   - 429, 5xx, timeouts, network: retry
//   - other 4xx, invalid key, cancellation: fail
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}
	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}

	errStr := strings.ToLower(err.Error())

	// Quota exhaustion usually arrives as a 429, so check it first.
	if containsAny(errStr, "quota", "daily limit", "monthly limit", "billing", "insufficient_quota") {
		return ActionFallback
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	switch {
	case containsAny(errStr, "rate limit", "too many requests", "resource_exhausted", "429"):
		return ActionRetry
	case containsAny(errStr, "unavailable", "503", "502", "500", "504",
		"internal server error", "bad gateway", "gateway timeout", "overloaded", "capacity"):
		return ActionRetry
	case containsAny(errStr, "408", "409", "timeout", "deadline", "connection"):
		return ActionRetry
	case containsAny(errStr, "401", "unauthorized", "unauthenticated", "invalid api key"):
		return ActionFail
	case containsAny(errStr, "400", "invalid", "bad request", "malformed"):
		return ActionFail
	case containsAny(errStr, "403", "forbidden", "permission denied"):
		return ActionFail
	case containsAny(errStr, "404", "not found"):
		return ActionFail
	case containsAny(errStr, "422", "unprocessable"):
		return ActionFail
	}

	// Unknown errors are retried once more rather than dropped.
	return ActionRetry
}

func classifyStatusCode(statusCode int) ErrorAction {
	switch {
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusConflict,
		statusCode >= 500 && statusCode < 600:
		return ActionRetry
	case statusCode >= 400 && statusCode < 500:
		return ActionFail
	default:
		return ActionRetry
	}
}

// ParseRetryAfter parses retry-after-ms, Retry-After (seconds or HTTP date)
// and Groq's x-ratelimit-reset-tokens. Returns 0 if none is usable.
func ParseRetryAfter(headers http.Header) time.Duration {
	if msStr := headers.Get("retry-after-ms"); msStr != "" {
		if ms, err := strconv.Atoi(msStr); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	if secStr := headers.Get("retry-after"); secStr != "" {
		if sec, err := strconv.Atoi(secStr); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
		if t, err := http.ParseTime(secStr); err == nil {
			return time.Until(t)
		}
	}
	if resetStr := headers.Get("x-ratelimit-reset-tokens"); resetStr != "" {
		if d, err := time.ParseDuration(resetStr); err == nil {
			return d
		}
	}
	return 0
}

// retryAfter returns the server-requested delay carried by err.
func retryAfter(err error) time.Duration {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr.RetryAfter
	}
	return 0
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
