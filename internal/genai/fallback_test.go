package genai

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/metrics"
)

// mockCompleter replays errs in order, then answers with text.
type mockCompleter struct {
	provider Provider
	errs     []error
	text     string
	calls    atomic.Int32
	closed   bool
	lastReq  Request
}

func (m *mockCompleter) Complete(_ context.Context, req Request) (string, error) {
	n := int(m.calls.Add(1)) - 1
	m.lastReq = req
	if n < len(m.errs) {
		return "", m.errs[n]
	}
	return m.text, nil
}

func (m *mockCompleter) Provider() Provider { return m.provider }

func (m *mockCompleter) Close() error {
	m.closed = true
	return nil
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestFallbackPrimarySuccess(t *testing.T) {
	t.Parallel()
	primary := &mockCompleter{provider: ProviderOpenAI, text: "answer"}
	secondary := &mockCompleter{provider: ProviderGroq, text: "unused"}

	f := NewFallbackCompleter(fastRetry(), nil, primary, secondary)
	got, err := f.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "answer", got)
	assert.Zero(t, secondary.calls.Load())
	assert.Equal(t, []Provider{ProviderOpenAI, ProviderGroq}, f.Providers())
}

func TestFallbackRetriesTransientErrors(t *testing.T) {
	t.Parallel()
	primary := &mockCompleter{
		provider: ProviderOpenAI,
		errs:     []error{WrapError(errors.New("unavailable"), ProviderOpenAI, http.StatusServiceUnavailable)},
		text:     "second try",
	}

	got, err := NewFallbackCompleter(fastRetry(), nil, primary).Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "second try", got)
	assert.Equal(t, int32(2), primary.calls.Load())
}

func TestFallbackOnQuota(t *testing.T) {
	t.Parallel()
	m := metrics.New(prometheus.NewRegistry())
	primary := &mockCompleter{provider: ProviderGemini, errs: []error{errors.New("quota exceeded")}}
	secondary := &mockCompleter{provider: ProviderGroq, text: "from groq"}

	got, err := NewFallbackCompleter(fastRetry(), m, primary, secondary).Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "from groq", got)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(m.LLMFallbackTotal.WithLabelValues("gemini", "groq")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("groq", "success")), 0)
}

func TestFallbackAfterRetriesExhausted(t *testing.T) {
	t.Parallel()
	transient := WrapError(errors.New("overloaded"), ProviderOpenAI, http.StatusServiceUnavailable)
	primary := &mockCompleter{provider: ProviderOpenAI, errs: []error{transient, transient, transient}}
	secondary := &mockCompleter{provider: ProviderCerebras, text: "ok"}

	got, err := NewFallbackCompleter(fastRetry(), nil, primary, secondary).Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(3), primary.calls.Load())
}

func TestPermanentErrorStopsChain(t *testing.T) {
	t.Parallel()
	authErr := WrapError(errors.New("invalid api key"), ProviderOpenAI, http.StatusUnauthorized)
	primary := &mockCompleter{provider: ProviderOpenAI, errs: []error{authErr}}
	secondary := &mockCompleter{provider: ProviderGroq, text: "unused"}

	_, err := NewFallbackCompleter(fastRetry(), nil, primary, secondary).Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, authErr)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Zero(t, secondary.calls.Load())
}

func TestAllProvidersFail(t *testing.T) {
	t.Parallel()
	quota := errors.New("billing quota exhausted")
	f := NewFallbackCompleter(fastRetry(), nil,
		&mockCompleter{provider: ProviderGemini, errs: []error{quota}},
		&mockCompleter{provider: ProviderGroq, errs: []error{quota}},
	)
	_, err := f.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")
}

func TestEmptyChain(t *testing.T) {
	t.Parallel()
	_, err := NewFallbackCompleter(fastRetry(), nil).Complete(context.Background(), Request{})
	assert.Error(t, err)

	var nilChain *FallbackCompleter
	assert.NoError(t, nilChain.Close())
	assert.Empty(t, nilChain.Provider())
}

func TestCloseClosesChain(t *testing.T) {
	t.Parallel()
	a := &mockCompleter{provider: ProviderOpenAI}
	b := &mockCompleter{provider: ProviderGemini}
	require.NoError(t, NewFallbackCompleter(fastRetry(), nil, a, b).Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
