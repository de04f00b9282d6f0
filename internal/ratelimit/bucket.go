// Package ratelimit provides token bucket and rolling-window limiters and
// a keyed limiter that holds one of each per caller.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter implements a token bucket rate limiter.
// It is safe for concurrent use.
//
// Tokens are added at refillRate per second up to maxTokens; each request
// consumes one token.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

// New creates a full bucket holding maxTokens and refilling refillRate
// tokens per second.
func New(maxTokens, refillRate float64) *Limiter {
	return newWithClock(maxTokens, refillRate, time.Now)
}

func newWithClock(maxTokens, refillRate float64, now func() time.Time) *Limiter {
	return &Limiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// refill must be called with mu held.
func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed > 0 {
		l.tokens = min(l.maxTokens, l.tokens+elapsed*l.refillRate)
	}
	l.lastRefill = now
}

// Allow consumes a token if one is available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Check reports whether a token is available without consuming it.
// Pair with Consume under an external lock for multi-layer checks.
func (l *Limiter) Check() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens >= 1
}

// Consume takes a token if one is available.
func (l *Limiter) Consume() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.refillRate * float64(time.Second))
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available returns the current number of available tokens.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens
}

// IsFull reports whether the bucket has refilled completely, which marks
// an idle caller.
func (l *Limiter) IsFull() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens >= l.maxTokens
}
