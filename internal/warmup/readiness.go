package warmup

import (
	"sync/atomic"
	"time"
)

// ReadinessState tracks the first crawl after startup. The service counts
// as ready once that crawl finishes or the grace period runs out, so a
// slow or unreachable site never keeps it out of rotation for long.
type ReadinessState struct {
	done  atomic.Bool
	start time.Time
	grace time.Duration
	now   func() time.Time
}

// ReadinessStatus is the readiness report served by /readyz.
type ReadinessStatus struct {
	Ready          bool   `json:"ready"`
	Reason         string `json:"reason,omitempty"`
	ElapsedSeconds int    `json:"elapsed_seconds,omitempty"`
	GraceSeconds   int    `json:"grace_seconds,omitempty"`
}

// NewReadinessState starts the grace period now.
func NewReadinessState(grace time.Duration) *ReadinessState {
	return newReadinessWithClock(grace, time.Now)
}

func newReadinessWithClock(grace time.Duration, now func() time.Time) *ReadinessState {
	return &ReadinessState{start: now(), grace: grace, now: now}
}

// IsReady reports whether traffic should be accepted.
func (s *ReadinessState) IsReady() bool {
	return s.done.Load() || s.now().Sub(s.start) >= s.grace
}

// MarkReady records that the first crawl has finished.
func (s *ReadinessState) MarkReady() {
	s.done.Store(true)
}

// Completed reports whether MarkReady was called.
func (s *ReadinessState) Completed() bool {
	return s.done.Load()
}

// Status returns the current readiness report.
func (s *ReadinessState) Status() ReadinessStatus {
	st := ReadinessStatus{Ready: s.IsReady()}
	if s.done.Load() {
		return st
	}
	st.ElapsedSeconds = int(s.now().Sub(s.start).Seconds())
	st.GraceSeconds = int(s.grace.Seconds())
	if st.Ready {
		st.Reason = "grace period elapsed, first crawl still running"
	} else {
		st.Reason = "first crawl in progress"
	}
	return st
}
