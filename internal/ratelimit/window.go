package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindowCounter approximates a rolling window with two fixed
// windows: the previous window's count is weighted by how much of it still
// overlaps the rolling window.
//
//	effective = current + previous * (remaining part of current window / window)
type SlidingWindowCounter struct {
	mu          sync.Mutex
	curr, prev  int
	windowStart time.Time
	window      time.Duration
	limit       int
	now         func() time.Time
}

// NewSlidingWindowCounter returns nil, meaning unlimited, when limit <= 0.
func NewSlidingWindowCounter(limit int, window time.Duration) *SlidingWindowCounter {
	return newWindowWithClock(limit, window, time.Now)
}

func newWindowWithClock(limit int, window time.Duration, now func() time.Time) *SlidingWindowCounter {
	if limit <= 0 {
		return nil
	}
	return &SlidingWindowCounter{windowStart: now(), window: window, limit: limit, now: now}
}

// rotate must be called with mu held.
func (w *SlidingWindowCounter) rotate() float64 {
	elapsed := w.now().Sub(w.windowStart)
	if elapsed >= w.window {
		passed := int(elapsed / w.window)
		if passed == 1 {
			w.prev = w.curr
		} else {
			w.prev = 0
		}
		w.curr = 0
		w.windowStart = w.windowStart.Add(time.Duration(passed) * w.window)
		elapsed -= time.Duration(passed) * w.window
	}
	overlap := float64(w.window-elapsed) / float64(w.window)
	return float64(w.curr) + float64(w.prev)*min(max(overlap, 0), 1)
}

// Check reports whether one more request fits.
func (w *SlidingWindowCounter) Check() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rotate() < float64(w.limit)
}

// Consume counts a request when it still fits.
func (w *SlidingWindowCounter) Consume() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rotate() < float64(w.limit) {
		w.curr++
	}
}

// Remaining returns the approximate remaining quota, -1 when unlimited.
func (w *SlidingWindowCounter) Remaining() int {
	if w == nil {
		return -1
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return max(0, int(float64(w.limit)-w.rotate()))
}
