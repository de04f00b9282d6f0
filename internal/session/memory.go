// Package session holds per-visitor conversation state: the detected
// communication style and the ordered memory of prior turns.
package session

import (
	"sync"
	"time"
)

// Turn is one finished exchange.
type Turn struct {
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
	// Source names the tier that produced Response (a pipeline stage,
	// "off_topic", "quick_link", "site", "llm", "fallback", ...).
	Source string `json:"source"`
}

// Memory is an append-only ordered log of turns. It is only cleared by an
// explicit reset.
type Memory struct {
	mu    sync.RWMutex
	turns []Turn
}

// Append adds a turn at the end.
func (m *Memory) Append(t Turn) {
	m.mu.Lock()
	m.turns = append(m.turns, t)
	m.mu.Unlock()
}

// Turns returns a copy of all turns, oldest first.
func (m *Memory) Turns() []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Recent returns a copy of the last n turns, oldest first.
func (m *Memory) Recent(n int) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := max(len(m.turns)-n, 0)
	out := make([]Turn, len(m.turns)-start)
	copy(out, m.turns[start:])
	return out
}

// Len returns the number of turns.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// Clear drops every turn.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.turns = nil
	m.mu.Unlock()
}
