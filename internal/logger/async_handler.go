package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize    = 1024
	defaultFlushTimeout = 5 * time.Second
)

// AsyncOptions configures the background shipping queue.
type AsyncOptions struct {
	QueueSize    int
	FlushTimeout time.Duration
}

type queued struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// queue is shared by an AsyncHandler and every handler derived from it.
type queue struct {
	items        chan queued
	flushTimeout time.Duration
	closed       atomic.Bool
	dropped      atomic.Uint64
	wg           sync.WaitGroup
}

func newQueue(opts AsyncOptions) *queue {
	q := &queue{
		items:        make(chan queued, cmpOr(opts.QueueSize, defaultQueueSize)),
		flushTimeout: cmpOr(opts.FlushTimeout, defaultFlushTimeout),
	}
	q.wg.Go(func() {
		for it := range q.items {
			_ = it.handler.Handle(it.ctx, it.record)
		}
	})
	return q
}

func cmpOr[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// push never blocks; records are dropped when the queue is full or closed.
func (q *queue) push(it queued) {
	if q.closed.Load() {
		q.dropped.Add(1)
		return
	}
	select {
	case q.items <- it:
	default:
		q.dropped.Add(1)
	}
}

func (q *queue) close(ctx context.Context) error {
	if q.closed.Swap(true) {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.flushTimeout)
		defer cancel()
	}
	close(q.items)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AsyncHandler hands records to a single background worker so a slow
// remote sink never blocks the caller.
type AsyncHandler struct {
	q       *queue
	handler slog.Handler
}

// NewAsyncHandler starts the worker for handler.
func NewAsyncHandler(handler slog.Handler, opts AsyncOptions) *AsyncHandler {
	return &AsyncHandler{q: newQueue(opts), handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle enqueues a clone of r and returns immediately.
func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.handler.Enabled(ctx, r.Level) {
		return nil
	}
	h.q.push(queued{ctx: context.WithoutCancel(ctx), record: r.Clone(), handler: h.handler})
	return nil
}

// WithAttrs implements slog.Handler. The derived handler shares the queue.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{q: h.q, handler: h.handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler. The derived handler shares the queue.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{q: h.q, handler: h.handler.WithGroup(name)}
}

// Dropped returns how many records were discarded.
func (h *AsyncHandler) Dropped() uint64 {
	return h.q.dropped.Load()
}

// Shutdown stops accepting records and waits for the queue to drain,
// bounded by ctx or the flush timeout.
func (h *AsyncHandler) Shutdown(ctx context.Context) error {
	if h == nil || h.q == nil {
		return nil
	}
	return h.q.close(ctx)
}
