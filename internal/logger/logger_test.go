package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/ctxutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestJSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)
	log.Warn("disk almost full")

	entry := decode(t, &buf)
	assert.Contains(t, entry, "timestamp")
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "disk almost full", entry["message"])
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	child := log.WithModule("assistant")
	log.SetLevel("debug")
	assert.Equal(t, slog.LevelDebug, child.Level())
	child.Debug("visible")
	assert.Equal(t, "debug", decode(t, &buf)["level"])
}

func TestFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)
	log.WithModule("resolver").
		WithSessionID("sess-1").
		WithRequestID("req-1").
		WithError(errors.New("boom")).
		WithFields(map[string]any{"stage": "syllabus"}).
		Infof("resolved in %d stages", 5)

	entry := decode(t, &buf)
	assert.Equal(t, "resolver", entry["module"])
	assert.Equal(t, "sess-1", entry["session_id"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "syllabus", entry["stage"])
	assert.Equal(t, "resolved in 5 stages", entry["message"])
}

func TestContextValuesAreLogged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	ctx := ctxutil.WithSessionID(context.Background(), "sess-7")
	ctx = ctxutil.WithRequestID(ctx, "req-7")
	ctx = ctxutil.WithChannel(ctx, ctxutil.ChannelLINE)
	log.InfoContext(ctx, "turn complete")

	entry := decode(t, &buf)
	assert.Equal(t, "sess-7", entry["session_id"])
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, "line", entry["channel"])
	assert.NotContains(t, entry, "user_id")
}

func TestShutdownWithoutRemoteSink(t *testing.T) {
	t.Parallel()

	log := NewWithWriter("info", &bytes.Buffer{})
	assert.NoError(t, log.Shutdown(context.Background()))
}

// recordingHandler collects messages; safe for use from the async worker.
type recordingHandler struct {
	mu    sync.Mutex
	msgs  []string
	level slog.Level
}

func (h *recordingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, r.Message)
	return nil
}
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.msgs...)
}

type failingHandler struct{}

func (failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }
func (f failingHandler) WithAttrs([]slog.Attr) slog.Handler      { return f }
func (f failingHandler) WithGroup(string) slog.Handler           { return f }

func TestAsyncHandlerDrainsOnShutdown(t *testing.T) {
	t.Parallel()

	rec := &recordingHandler{}
	h := NewAsyncHandler(rec, AsyncOptions{QueueSize: 16})
	log := slog.New(h)
	for range 5 {
		log.Info("queued")
	}
	require.NoError(t, h.Shutdown(context.Background()))
	assert.Len(t, rec.messages(), 5)

	log.Info("after shutdown")
	assert.Len(t, rec.messages(), 5)
	assert.Equal(t, uint64(1), h.Dropped())
	assert.NoError(t, h.Shutdown(context.Background()))
}

func TestMultiHandler(t *testing.T) {
	t.Parallel()

	debug := &recordingHandler{level: slog.LevelDebug}
	errorsOnly := &recordingHandler{level: slog.LevelError}
	m := NewMultiHandler(debug, nil, errorsOnly)

	log := slog.New(m.WithAttrs([]slog.Attr{slog.String("k", "v")}))
	log.Debug("one")
	log.Error("two")

	assert.Equal(t, []string{"one", "two"}, debug.messages())
	assert.Equal(t, []string{"two"}, errorsOnly.messages())
	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelError))
}

func TestMultiHandlerJoinsErrors(t *testing.T) {
	t.Parallel()

	m := NewMultiHandler(failingHandler{}, &recordingHandler{})
	err := m.Handle(context.Background(), slog.NewRecord(testTime, slog.LevelInfo, "x", 0))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "sink down"))
}

var testTime = time.Date(2025, time.March, 7, 15, 4, 0, 0, time.UTC)
