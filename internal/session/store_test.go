package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu   sync.Mutex
	last int
}

func (r *recorder) SetActiveSessions(n int) {
	r.mu.Lock()
	r.last = n
	r.mu.Unlock()
}

func (r *recorder) Last() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *fakeClock, *recorder) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	s := NewStore(StoreConfig{TTL: ttl, CleanupPeriod: time.Hour, Metrics: rec, Now: clock.Now})
	t.Cleanup(s.Stop)
	return s, clock, rec
}

func TestStoreCreateGet(t *testing.T) {
	t.Parallel()

	s, _, rec := newTestStore(t, time.Minute)
	sess := s.Create()
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, 1, rec.Last())

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, domerrors.ErrSessionNotFound)

	other := s.Create()
	assert.NotEqual(t, sess.ID, other.ID)
	assert.Equal(t, 2, s.Len())
}

func TestStoreExpiry(t *testing.T) {
	t.Parallel()

	s, clock, rec := newTestStore(t, time.Minute)
	sess := s.Create()

	clock.Advance(30 * time.Second)
	_, err := s.Get(sess.ID)
	require.NoError(t, err, "activity refreshes the session")

	clock.Advance(61 * time.Second)
	_, err = s.Get(sess.ID)
	assert.ErrorIs(t, err, domerrors.ErrSessionNotFound)

	assert.Equal(t, 1, s.Cleanup())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, rec.Last())
}

func TestStoreCleanupSkipsBusySessions(t *testing.T) {
	t.Parallel()

	s, clock, _ := newTestStore(t, time.Minute)
	sess := s.Create()
	require.NoError(t, sess.Begin())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 0, s.Cleanup())

	sess.End()
	assert.Equal(t, 1, s.Cleanup())
}

func TestStoreGetOrCreate(t *testing.T) {
	t.Parallel()

	s, clock, _ := newTestStore(t, time.Minute)
	first := s.GetOrCreate("U123")
	assert.Equal(t, "U123", first.ID)
	first.Memory().Append(turn("q", "r"))

	again := s.GetOrCreate("U123")
	assert.Same(t, first, again)

	clock.Advance(2 * time.Minute)
	fresh := s.GetOrCreate("U123")
	assert.NotSame(t, first, fresh)
	assert.Equal(t, 0, fresh.Memory().Len())
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestStore(t, time.Minute)
	sess := s.Create()
	s.Delete(sess.ID)
	s.Delete("unknown")
	_, err := s.Get(sess.ID)
	assert.ErrorIs(t, err, domerrors.ErrSessionNotFound)
}

func TestStoreStopIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewStore(StoreConfig{})
	s.Stop()
	s.Stop()
}
