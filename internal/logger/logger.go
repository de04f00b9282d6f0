// Package logger provides structured logging for the assistant.
// It wraps log/slog with JSON output, lifts tracing values out of the
// context and can ship records to Better Stack in the background.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogbetterstack "github.com/samber/slog-betterstack"
)

const betterStackTimeout = 10 * time.Second

// Logger is the application logger
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	async *AsyncHandler
}

// Options configures optional log sinks.
type Options struct {
	// BetterStackToken enables log shipping when non-empty.
	BetterStackToken string
	// BetterStackEndpoint overrides the ingesting host.
	BetterStackEndpoint string
	// Async tunes the background shipping queue.
	Async AsyncOptions
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger writing JSON to stdout.
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a logger writing JSON to w.
func NewWithWriter(level string, w io.Writer) *Logger {
	return NewWithOptions(level, w, Options{})
}

// NewWithOptions creates a logger writing JSON to w and, when a Better Stack
// token is configured, also shipping every record through an async queue.
func NewWithOptions(level string, w io.Writer, opts Options) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(ParseLevel(level))

	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lv,
		ReplaceAttr: replaceAttr,
	})

	var async *AsyncHandler
	if opts.BetterStackToken != "" {
		remote := slogbetterstack.Option{
			Level:    lv,
			Token:    opts.BetterStackToken,
			Endpoint: opts.BetterStackEndpoint,
			Timeout:  betterStackTimeout,
		}.NewBetterstackHandler()
		async = NewAsyncHandler(remote, opts.Async)
		handler = NewMultiHandler(handler, async)
	}

	return &Logger{
		Logger: slog.New(NewContextHandler(handler)),
		level:  lv,
		async:  async,
	}
}

// replaceAttr renames the built-in keys to timestamp, level and message and
// lowercases the level, reporting WARN as "warning".
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.LevelKey:
		lvl := a.Value.String()
		if lvl == "WARN" {
			lvl = "warning"
		} else {
			lvl = strings.ToLower(lvl)
		}
		a.Value = slog.StringValue(lvl)
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

func (l *Logger) derive(next *slog.Logger) *Logger {
	return &Logger{Logger: next, level: l.level, async: l.async}
}

// SetLevel changes the minimum level of this logger and every logger
// derived from it.
func (l *Logger) SetLevel(level string) {
	if l.level != nil {
		l.level.Set(ParseLevel(level))
	}
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	if l.level == nil {
		return slog.LevelInfo
	}
	return l.level.Level()
}

// WithModule creates a new entry with module field
func (l *Logger) WithModule(module string) *Logger {
	return l.derive(l.With("module", module))
}

// WithRequestID creates a new entry with request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.derive(l.With("request_id", requestID))
}

// WithSessionID creates a new entry with session ID field
func (l *Logger) WithSessionID(sessionID string) *Logger {
	return l.derive(l.With("session_id", sessionID))
}

// WithError creates a new entry with error field
func (l *Logger) WithError(err error) *Logger {
	return l.derive(l.With("error", err))
}

// WithField creates a new entry with a single field
func (l *Logger) WithField(key string, value any) *Logger {
	return l.derive(l.With(key, value))
}

// WithFields creates a new entry with multiple fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.derive(l.With(args...))
}

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.Debug(fmt.Sprintf(format, args...))
}

// Shutdown flushes records queued for remote shipping. It is a no-op when
// no remote sink is configured.
func (l *Logger) Shutdown(ctx context.Context) error {
	if l == nil || l.async == nil {
		return nil
	}
	return l.async.Shutdown(ctx)
}
