package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/assistant"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/logger"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/metrics"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/ratelimit"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/session"
)

const testSecret = "test_channel_secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type sentReply struct {
	token    string
	messages []messaging_api.MessageInterface
}

type fakeReplier struct {
	mu      sync.Mutex
	replies []sentReply
	loading []string
	err     error
}

func (f *fakeReplier) Reply(token string, messages []messaging_api.MessageInterface) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, sentReply{token: token, messages: messages})
	return f.err
}

func (f *fakeReplier) ShowLoading(chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = append(f.loading, chatID)
	return nil
}

func (f *fakeReplier) sent() []sentReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentReply(nil), f.replies...)
}

type testEnv struct {
	handler   *Handler
	replier   *fakeReplier
	assistant *assistant.Assistant
	metrics   *metrics.Metrics
	router    *gin.Engine
}

func newTestEnv(t *testing.T, limiter *ratelimit.KeyedLimiter) *testEnv {
	t.Helper()

	log := logger.NewWithWriter("error", io.Discard)
	m := metrics.New(prometheus.NewRegistry())
	a := assistant.New(assistant.NewKnowledge(knowledge.MustDefault()), nil, assistant.Options{
		TurnTimeout: time.Second,
		Metrics:     m,
		Logger:      log,
	})
	sessions := session.NewStore(session.StoreConfig{Metrics: m})
	t.Cleanup(sessions.Stop)

	replier := &fakeReplier{}
	h, err := NewHandler(HandlerConfig{
		ChannelSecret: testSecret,
		Client:        replier,
		Assistant:     a,
		Sessions:      sessions,
		UserLimiter:   limiter,
		Timeout:       5 * time.Second,
		Metrics:       m,
		Logger:        log,
	})
	require.NoError(t, err)

	r := gin.New()
	r.POST("/callback", h.Handle)
	return &testEnv{handler: h, replier: replier, assistant: a, metrics: m, router: r}
}

// post sends a signed callback and waits for background processing.
func (e *testEnv) post(t *testing.T, events ...map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]any{"destination": "Ubot", "events": events})
	require.NoError(t, err)

	w := e.postRaw(body, sign(testSecret, body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.handler.Shutdown(ctx))
	return w
}

func (e *testEnv) postRaw(body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Line-Signature", signature)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

var eventSeq int

func baseEvent(kind string, source map[string]any) map[string]any {
	eventSeq++
	return map[string]any{
		"type":            kind,
		"mode":            "active",
		"timestamp":       time.Now().UnixMilli(),
		"source":          source,
		"webhookEventId":  fmt.Sprintf("01HEVENT%04d", eventSeq),
		"deliveryContext": map[string]any{"isRedelivery": false},
		"replyToken":      fmt.Sprintf("reply-token-%04d", eventSeq),
	}
}

func userSource(id string) map[string]any {
	return map[string]any{"type": "user", "userId": id}
}

func groupSource(id string) map[string]any {
	return map[string]any{"type": "group", "groupId": "Cgroup", "userId": id}
}

func textEvent(source map[string]any, text string, mentionees ...map[string]any) map[string]any {
	ev := baseEvent("message", source)
	msg := map[string]any{"type": "text", "id": "1", "text": text, "quoteToken": "q"}
	if len(mentionees) > 0 {
		msg["mention"] = map[string]any{"mentionees": mentionees}
	}
	ev["message"] = msg
	return ev
}

func postbackEvent(source map[string]any, data string) map[string]any {
	ev := baseEvent("postback", source)
	ev["postback"] = map[string]any{"data": data}
	return ev
}

func textOf(t *testing.T, msg messaging_api.MessageInterface) *messaging_api.TextMessage {
	t.Helper()
	tm, ok := msg.(*messaging_api.TextMessage)
	require.True(t, ok, "expected a text message, got %T", msg)
	return tm
}

func TestHandleInvalidSignature(t *testing.T) {
	env := newTestEnv(t, nil)

	body := []byte(`{"destination":"Ubot","events":[]}`)
	w := env.postRaw(body, "invalid_signature")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.replier.sent())
}

func TestHandleTextMessage(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.post(t, textEvent(userSource("U1"), "bus timing"))
	assert.Equal(t, http.StatusOK, w.Code)

	sent := env.replier.sent()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].messages, 1)
	msg := textOf(t, sent[0].messages[0])
	assert.Contains(t, msg.Text, "🚌 College buses operate")
	require.NotNil(t, msg.QuickReply)
	assert.Len(t, msg.QuickReply.Items, len(env.assistant.QuickLinks())+1)
	assert.Equal(t, []string{"U1"}, env.replier.loading)

	assert.InDelta(t, 1, testutil.ToFloat64(env.metrics.WebhookRequestsTotal.WithLabelValues("message", "success")), 0)
}

func TestHandleKeepsSessionPerUser(t *testing.T) {
	env := newTestEnv(t, nil)

	env.post(t, textEvent(userSource("U1"), "bus timing"), textEvent(userSource("U2"), "bus timing"))
	assert.Equal(t, 2, env.handler.sessions.Len())

	sess := env.handler.sessions.GetOrCreate(sessionPrefix + "U1")
	assert.Equal(t, 1, sess.Memory().Len())
}

func TestHandleGroupNeedsMention(t *testing.T) {
	env := newTestEnv(t, nil)

	env.post(t, textEvent(groupSource("U1"), "bus timing"))
	assert.Empty(t, env.replier.sent())

	env.post(t, textEvent(groupSource("U1"), "@Bot bus timing",
		map[string]any{"type": "user", "index": 0, "length": 4, "isSelf": true}))
	sent := env.replier.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, textOf(t, sent[0].messages[0]).Text, "🚌 College buses operate")
	assert.Empty(t, env.replier.loading, "no loading animation in groups")
}

func TestHandleQuickLinkPostback(t *testing.T) {
	env := newTestEnv(t, nil)
	store := env.assistant.Knowledge().Store()
	link, ok := store.QuickLink("fee-structure")
	require.True(t, ok)

	env.post(t, postbackEvent(userSource("U1"), "ql:fee-structure"))

	sent := env.replier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, store.Answer(link.Category, link.Key), textOf(t, sent[0].messages[0]).Text)

	sess := env.handler.sessions.GetOrCreate(sessionPrefix + "U1")
	turns := sess.Memory().Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, link.Query, turns[0].Query)
}

func TestHandleUnknownQuickLinkShowsWelcome(t *testing.T) {
	env := newTestEnv(t, nil)

	env.post(t, postbackEvent(userSource("U1"), "ql:nope"))
	sent := env.replier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, env.assistant.Welcome(), textOf(t, sent[0].messages[0]).Text)
}

func TestHandleResetPostback(t *testing.T) {
	env := newTestEnv(t, nil)

	env.post(t, textEvent(userSource("U1"), "bus timing"))
	env.post(t, postbackEvent(userSource("U1"), "reset"))

	sent := env.replier.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, env.assistant.Welcome(), textOf(t, sent[1].messages[0]).Text)
	sess := env.handler.sessions.GetOrCreate(sessionPrefix + "U1")
	assert.Zero(t, sess.Memory().Len())
}

func TestHandleResetPostbackWhileBusy(t *testing.T) {
	env := newTestEnv(t, nil)

	env.post(t, textEvent(userSource("U1"), "bus timing"))
	sess := env.handler.sessions.GetOrCreate(sessionPrefix + "U1")
	require.NoError(t, sess.Begin())
	env.post(t, postbackEvent(userSource("U1"), "reset"))
	sess.End()

	sent := env.replier.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, busyNotice, textOf(t, sent[1].messages[0]).Text)
	assert.Equal(t, 1, sess.Memory().Len())
}

func TestHandleFollowSendsWelcome(t *testing.T) {
	env := newTestEnv(t, nil)

	ev := baseEvent("follow", userSource("U1"))
	ev["follow"] = map[string]any{"isUnblocked": false}
	env.post(t, ev)

	sent := env.replier.sent()
	require.Len(t, sent, 1)
	msg := textOf(t, sent[0].messages[0])
	assert.Equal(t, env.assistant.Welcome(), msg.Text)
	assert.NotNil(t, msg.QuickReply)
}

func TestHandleNonTextMessage(t *testing.T) {
	env := newTestEnv(t, nil)

	ev := baseEvent("message", userSource("U1"))
	ev["message"] = map[string]any{"type": "sticker", "id": "2", "packageId": "1", "stickerId": "1", "stickerResourceType": "STATIC"}
	env.post(t, ev)

	sent := env.replier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, textOnlyNotice, textOf(t, sent[0].messages[0]).Text)
}

func TestHandleRateLimitNoticeOnce(t *testing.T) {
	limiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:       ratelimit.TypeUser,
		Burst:      1,
		RefillRate: 1e-6,
	})
	t.Cleanup(limiter.Stop)
	env := newTestEnv(t, limiter)

	env.post(t,
		textEvent(userSource("U1"), "bus timing"),
		textEvent(userSource("U1"), "bus timing"),
		textEvent(userSource("U1"), "bus timing"),
		textEvent(userSource("U2"), "bus timing"),
	)

	sent := env.replier.sent()
	require.Len(t, sent, 3)
	assert.Contains(t, textOf(t, sent[0].messages[0]).Text, "🚌")
	assert.Equal(t, rateLimitNotice, textOf(t, sent[1].messages[0]).Text)
	assert.Contains(t, textOf(t, sent[2].messages[0]).Text, "🚌", "other users are unaffected")
}

func TestHandleReplyErrorIsCounted(t *testing.T) {
	env := newTestEnv(t, nil)
	env.replier.err = errors.New("Invalid reply token")

	w := env.post(t, textEvent(userSource("U1"), "bus timing"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(env.metrics.WebhookRequestsTotal.WithLabelValues("message", "reply_error")), 0)
}

func TestNewHandlerValidates(t *testing.T) {
	_, err := NewHandler(HandlerConfig{})
	require.Error(t, err)

	_, err = NewHandler(HandlerConfig{ChannelSecret: "s"})
	require.Error(t, err)
}

func TestShutdownHonorsContext(t *testing.T) {
	env := newTestEnv(t, nil)
	env.handler.wg.Add(1)
	defer env.handler.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, env.handler.Shutdown(ctx), context.Canceled)
}
