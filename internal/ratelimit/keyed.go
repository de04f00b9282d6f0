package ratelimit

import (
	"sync"
	"time"
)

// Limiter types reported to metrics.
const (
	TypeAPI  = "api"
	TypeUser = "user"
	TypeLLM  = "llm"
)

// Recorder receives limiter drops.
type Recorder interface {
	RecordRateLimiterDrop(limiterType string)
}

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name labels drops in metrics, one of the Type constants.
	Name string

	Burst      float64 // bucket capacity
	RefillRate float64 // tokens per second

	// DailyLimit adds a rolling 24h cap per key; 0 disables it.
	DailyLimit int

	// CleanupPeriod is how often idle keys are dropped. Zero disables the
	// cleanup loop.
	CleanupPeriod time.Duration

	Metrics Recorder

	// Now overrides the clock; tests only.
	Now func() time.Time
}

// KeyedLimiter holds a token bucket, and optionally a daily window, per key
// (client IP, LINE user, session). Idle keys are dropped periodically.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[string]*keyedEntry
	cfg     KeyedConfig

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// keyedEntry's mutex makes the two-layer check-then-consume atomic.
type keyedEntry struct {
	mu     sync.Mutex
	bucket *Limiter
	daily  *SlidingWindowCounter
}

// NewKeyedLimiter creates a limiter and starts its cleanup loop.
// Call Stop when done.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	kl := &KeyedLimiter{
		entries: make(map[string]*keyedEntry),
		cfg:     cfg,
		stop:    make(chan struct{}),
	}
	if cfg.CleanupPeriod > 0 {
		kl.wg.Go(kl.cleanupLoop)
	}
	return kl
}

// Allow consumes one request for key. Both the bucket and the daily window
// must have room; neither is charged otherwise. An empty key is always
// allowed.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	e := kl.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.daily.Check() || !e.bucket.Check() {
		if kl.cfg.Metrics != nil {
			kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
		}
		return false
	}
	e.daily.Consume()
	e.bucket.Consume()
	return true
}

func (kl *KeyedLimiter) entry(key string) *keyedEntry {
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		return e
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if e, ok = kl.entries[key]; ok {
		return e
	}
	e = &keyedEntry{
		bucket: newWithClock(kl.cfg.Burst, kl.cfg.RefillRate, kl.cfg.Now),
		daily:  newWindowWithClock(kl.cfg.DailyLimit, 24*time.Hour, kl.cfg.Now),
	}
	kl.entries[key] = e
	return e
}

// Available returns the tokens left for key; Burst for unseen keys.
func (kl *KeyedLimiter) Available(key string) float64 {
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.cfg.Burst
	}
	return e.bucket.Available()
}

// DailyRemaining returns the remaining daily quota for key, -1 when the
// daily cap is disabled.
func (kl *KeyedLimiter) DailyRemaining(key string) int {
	if kl.cfg.DailyLimit <= 0 {
		return -1
	}
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.cfg.DailyLimit
	}
	return e.daily.Remaining()
}

// Len returns the number of tracked keys.
func (kl *KeyedLimiter) Len() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

// Cleanup drops keys whose bucket has refilled and whose daily window is
// not in use, and returns how many were removed.
func (kl *KeyedLimiter) Cleanup() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	removed := 0
	for key, e := range kl.entries {
		if e.bucket.IsFull() && (e.daily == nil || e.daily.Remaining() == kl.cfg.DailyLimit) {
			delete(kl.entries, key)
			removed++
		}
	}
	return removed
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-kl.stop:
			return
		case <-ticker.C:
			kl.Cleanup()
		}
	}
}

// Stop ends the cleanup loop and waits for it. Safe to call multiple times.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() { close(kl.stop) })
	kl.wg.Wait()
}
