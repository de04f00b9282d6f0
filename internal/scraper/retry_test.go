package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func TestRetryWithBackoff_Success(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := RetryWithBackoff(context.Background(), 5, time.Millisecond, func() error {
		attempts++
		if attempts == 3 {
			return nil
		}
		return &testError{"temporary error"}
	})
	if err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithBackoff_MaxRetriesExceeded(t *testing.T) {
	t.Parallel()
	attempts := 0
	want := &testError{"still failing"}

	err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("Expected %v, got %v", want, err)
	}
	// initial + 3 retries
	if attempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", attempts)
	}
}

func TestRetryWithBackoff_PermanentStops(t *testing.T) {
	t.Parallel()
	attempts := 0
	cause := errors.New("client error for /x: status 404")

	err := RetryWithBackoff(context.Background(), 5, time.Millisecond, func() error {
		attempts++
		return Permanent(cause)
	})
	if err != cause {
		t.Errorf("Expected unwrapped cause, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := RetryWithBackoff(ctx, 5, 10*time.Millisecond, func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return &testError{"error"}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestBackoffDelayBounds(t *testing.T) {
	t.Parallel()
	for attempt := range 4 {
		base := time.Duration(1<<attempt) * 100 * time.Millisecond
		for range 20 {
			d := backoffDelay(100*time.Millisecond, attempt)
			if d < base*3/4 || d > base*5/4 {
				t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, d, base*3/4, base*5/4)
			}
		}
	}
}

func TestPermanentNil(t *testing.T) {
	t.Parallel()
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

// netTimeError mocks a net.Error with Timeout() support
type netTimeError struct{ timeout bool }

func (e *netTimeError) Error() string   { return "net error" }
func (e *netTimeError) Timeout() bool   { return e.timeout }
func (e *netTimeError) Temporary() bool { return false }

func TestIsNetworkError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"permanent error", Permanent(errors.New("client error")), false},
		{"wrapped permanent error", fmt.Errorf("wrapped: %w", Permanent(errors.New("connection refused"))), false},
		{"timeout error", &netTimeError{timeout: true}, true},
		{"connection refused", errors.New("dial tcp 127.0.0.1:8080: connection refused"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"server error", errors.New("server error for /x: status 503"), true},
		{"rate limited", errors.New("rate limited for /x: status 429"), true},
		{"unknown generic error", errors.New("something went wrong"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNetworkError(tt.err); got != tt.expected {
				t.Errorf("IsNetworkError() = %v, want %v", got, tt.expected)
			}
		})
	}
}
