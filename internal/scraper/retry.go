package scraper

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"strings"
	"time"
)

// permanentError marks a failure that retrying cannot fix (404, 403, 401).
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so RetryWithBackoff stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff retries fn with exponential backoff and jitter.
// A permanent error stops the loop and its cause is returned.
//
// maxRetries: retry attempts after the first try (0 = try once)
// initialDelay: delay before the first retry
//
// Backoff: delay = initialDelay * 2^attempt, -25%/+25% jitter.
//
//	attempt 0: immediate
//	attempt 1: ~2s (1.5s - 2.5s)
//	attempt 2: ~4s (3s - 5s)
//	attempt 3: ~8s (6s - 10s)
func RetryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var permErr *permanentError
		if errors.As(err, &permErr) {
			return permErr.Unwrap()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == maxRetries {
			break
		}

		if err := Sleep(ctx, backoffDelay(initialDelay, attempt)); err != nil {
			return err
		}
	}

	return lastErr
}

func backoffDelay(initial time.Duration, attempt int) time.Duration {
	delay := time.Duration(float64(initial) * math.Pow(2, float64(attempt)))
	half := int64(delay) / 2
	if half <= 0 {
		half = 1
	}
	jitter, err := rand.Int(rand.Reader, big.NewInt(half))
	if err != nil {
		jitter = big.NewInt(0)
	}
	return delay - delay/4 + time.Duration(jitter.Int64())
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsNetworkError reports whether err looks transient: timeouts, refused or
// reset connections, 5xx and 429 responses.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var permErr *permanentError
	if errors.As(err, &permErr) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused", "connection reset", "no such host",
		"server error", "rate limited", "eof", "timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
