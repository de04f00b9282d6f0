package session

import (
	"sync"
	"sync/atomic"
	"time"

	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
)

// Session is the state of one conversation.
type Session struct {
	ID        string
	CreatedAt time.Time

	memory Memory
	busy   atomic.Bool

	mu         sync.Mutex
	style      knowledge.Style
	lastActive time.Time
}

// New creates a session with formal style and empty memory.
func New(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		style:      knowledge.StyleFormal,
		lastActive: now,
	}
}

// Style returns the current communication style.
func (s *Session) Style() knowledge.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// SetStyle replaces the communication style.
func (s *Session) SetStyle(style knowledge.Style) {
	s.mu.Lock()
	s.style = style
	s.mu.Unlock()
}

// Memory returns the session's conversation memory.
func (s *Session) Memory() *Memory {
	return &s.memory
}

// Reset clears the memory and restores the formal style.
func (s *Session) Reset() {
	s.memory.Clear()
	s.SetStyle(knowledge.StyleFormal)
}

// Begin marks a turn as running. It fails with ErrTurnInFlight while
// another turn holds the session; callers must pair a nil return with End.
func (s *Session) Begin() error {
	if !s.busy.CompareAndSwap(false, true) {
		return domerrors.ErrTurnInFlight
	}
	return nil
}

// End releases the mark set by Begin.
func (s *Session) End() {
	s.busy.Store(false)
}

// Busy reports whether a turn is running.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

// LastActive returns the time of the last recorded activity.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
