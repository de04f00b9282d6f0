package logger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/ctxutil"
)

// ContextHandler adds the tracing values carried by the context
// (session_id, user_id, request_id, channel) to every record before passing
// it on.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler wraps handler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle enriches r from ctx. Canceling ctx does not affect the record.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := ctxutil.GetSessionID(ctx); id != "" {
		r.AddAttrs(slog.String("session_id", id))
	}
	if id := ctxutil.GetUserID(ctx); id != "" {
		r.AddAttrs(slog.String("user_id", id))
	}
	if id, ok := ctxutil.GetRequestID(ctx); ok && id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if ch := ctxutil.GetChannel(ctx); ch != "" {
		r.AddAttrs(slog.String("channel", ch))
	}
	return h.handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}

// MultiHandler fans records out to several handlers, cloning the record
// for each one.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler drops nil handlers and combines the rest.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	m := &MultiHandler{}
	for _, h := range handlers {
		if h != nil {
			m.handlers = append(m.handlers, h)
		}
	}
	return m
}

// Enabled reports whether any handler accepts level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle dispatches r to each enabled handler and joins their errors.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	next := &MultiHandler{handlers: make([]slog.Handler, len(m.handlers))}
	for i, h := range m.handlers {
		next.handlers[i] = fn(h)
	}
	return next
}
