package genai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name        string
		attempt     int
		initial     time.Duration
		max         time.Duration
		maxExpected time.Duration
	}{
		{"first attempt (no delay)", 0, time.Second, 10 * time.Second, 0},
		{"second attempt", 1, time.Second, 10 * time.Second, time.Second},
		{"third attempt", 2, time.Second, 10 * time.Second, 2 * time.Second},
		{"capped at max", 10, time.Second, 5 * time.Second, 5 * time.Second},
		{"negative attempt", -1, time.Second, 10 * time.Second, 0},
		{"zero initial delay", 1, 0, 10 * time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 10 {
				got := CalculateBackoff(tt.attempt, tt.initial, tt.max)
				if got < 0 || got > tt.maxExpected {
					t.Errorf("CalculateBackoff(%d, %v, %v) = %v, want in [0, %v]",
						tt.attempt, tt.initial, tt.max, got, tt.maxExpected)
				}
			}
		})
	}
}

func TestSleep(t *testing.T) {
	t.Parallel()

	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep on cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestHasSufficientBudget(t *testing.T) {
	t.Parallel()

	if !HasSufficientBudget(context.Background(), time.Hour) {
		t.Error("no deadline should mean unlimited budget")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if HasSufficientBudget(ctx, time.Second) {
		t.Error("50ms left should not cover 1s")
	}
	if !HasSufficientBudget(ctx, time.Millisecond) {
		t.Error("50ms left should cover 1ms")
	}
}
