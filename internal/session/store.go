package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
)

const (
	defaultTTL           = 30 * time.Minute
	defaultCleanupPeriod = time.Minute
)

// Recorder receives the active session count.
type Recorder interface {
	SetActiveSessions(n int)
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// TTL is how long an idle session is kept (default: 30m).
	TTL time.Duration
	// CleanupPeriod is how often expired sessions are dropped (default: 1m).
	CleanupPeriod time.Duration
	// Metrics is optional.
	Metrics Recorder
	// Now is the clock, for tests (default: time.Now).
	Now func() time.Time
}

// Store keeps live sessions in memory. Expired sessions are discarded.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl     time.Duration
	now     func() time.Time
	metrics Recorder

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStore creates a store and starts its cleanup goroutine.
// Call Stop to release it.
func NewStore(cfg StoreConfig) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = defaultCleanupPeriod
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      cfg.TTL,
		now:      cfg.Now,
		metrics:  cfg.Metrics,
		stop:     make(chan struct{}),
	}
	s.wg.Go(func() { s.cleanupLoop(cfg.CleanupPeriod) })
	return s
}

// Create opens a new session with a random id.
func (s *Store) Create() *Session {
	sess := New(uuid.NewString(), s.now())
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	s.report(n)
	return sess
}

// Get returns a live session and refreshes its activity time.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || s.expired(sess) {
		return nil, domerrors.ErrSessionNotFound
	}
	sess.Touch(s.now())
	return sess, nil
}

// GetOrCreate returns the session for id, creating it when missing or
// expired. Used for channels with their own stable ids (LINE users).
func (s *Store) GetOrCreate(id string) *Session {
	now := s.now()
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) {
		sess = New(id, now)
		s.sessions[id] = sess
	}
	n := len(s.sessions)
	s.mu.Unlock()
	sess.Touch(now)
	s.report(n)
	return sess
}

// Delete removes a session. Unknown ids are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	s.report(n)
}

// Len returns the number of stored sessions, expired ones included until
// the next cleanup.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup drops expired sessions that have no turn running and returns how
// many were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) && !sess.Busy() {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()
	s.report(n)
	return removed
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Store) expired(sess *Session) bool {
	return s.now().Sub(sess.LastActive()) > s.ttl
}

func (s *Store) report(n int) {
	if s.metrics != nil {
		s.metrics.SetActiveSessions(n)
	}
}

func (s *Store) cleanupLoop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stop:
			return
		}
	}
}
