// Package webhook serves the LINE channel: it verifies webhook requests,
// answers 200 at once and replies to each event in the background through
// the assistant.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/assistant"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/config"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/ctxutil"
	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/lineutil"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/logger"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/metrics"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/ratelimit"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/render"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/sentry"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/session"
)

const (
	rateLimitNotice = "⏳ You're sending messages a little fast. Please wait a moment and try again."
	busyNotice      = "⏳ I'm still working on your previous question. One moment please."
	textOnlyNotice  = "I can only read text messages. Please type your question."

	// sessionPrefix keeps LINE sessions apart from web session ids.
	sessionPrefix = "line:"

	// LINE accepts 5-60 seconds in steps of 5.
	loadingSeconds = 20
)

// Replier sends messages back to LINE.
type Replier interface {
	Reply(replyToken string, messages []messaging_api.MessageInterface) error
	ShowLoading(chatID string) error
}

// Client is the Messaging API implementation of Replier.
type Client struct {
	api *messaging_api.MessagingApiAPI
}

// NewClient creates a Messaging API client for channelToken.
func NewClient(channelToken string, opts ...messaging_api.MessagingApiAPIOption) (*Client, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &Client{api: api}, nil
}

// Reply sends messages with replyToken.
func (c *Client) Reply(replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

// ShowLoading shows the typing indicator in a one-to-one chat.
func (c *Client) ShowLoading(chatID string) error {
	_, err := c.api.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: loadingSeconds,
	})
	return err
}

// HandlerConfig holds the dependencies of a Handler.
type HandlerConfig struct {
	ChannelSecret string
	Client        Replier
	Assistant     *assistant.Assistant
	Sessions      *session.Store
	// UserLimiter is keyed by LINE user id; nil disables the limit.
	UserLimiter *ratelimit.KeyedLimiter
	// Timeout bounds the handling of one event (default: config.WebhookProcessing).
	Timeout time.Duration
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// Handler handles LINE webhook events.
type Handler struct {
	channelSecret string
	client        Replier
	assistant     *assistant.Assistant
	sessions      *session.Store
	limiter       *ratelimit.KeyedLimiter
	timeout       time.Duration
	metrics       *metrics.Metrics
	logger        *logger.Logger

	wg sync.WaitGroup // async event processing

	noticeMu sync.Mutex
	notified map[string]struct{} // users already told about the rate limit
}

// NewHandler creates a webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.ChannelSecret == "" {
		return nil, errors.New("webhook: channel secret is required")
	}
	if cfg.Client == nil || cfg.Assistant == nil || cfg.Sessions == nil {
		return nil, errors.New("webhook: client, assistant and sessions are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.WebhookProcessing
	}
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}
	return &Handler{
		channelSecret: cfg.ChannelSecret,
		client:        cfg.Client,
		assistant:     cfg.Assistant,
		sessions:      cfg.Sessions,
		limiter:       cfg.UserLimiter,
		timeout:       cfg.Timeout,
		metrics:       cfg.Metrics,
		logger:        log.WithModule("webhook"),
		notified:      make(map[string]struct{}),
	}, nil
}

// Handle is the Gin handler for the webhook endpoint.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE expects the 200 before any reply is sent.
	c.Status(http.StatusOK)
	h.metrics.RecordWebhook("batch", "received", 0)

	if len(cb.Events) > lineutil.MaxEventsPerWebhook {
		h.logger.WithField("event_count", len(cb.Events)).Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:lineutil.MaxEventsPerWebhook]
	}
	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)

	base := ctxutil.WithChannel(ctxutil.PreserveTracing(c.Request.Context()), ctxutil.ChannelLINE)
	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()
		for _, event := range events {
			h.processEvent(base, event)
		}
	})
}

func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	start := time.Now()
	meta := eventMetaOf(event)
	if meta.kind == "" {
		h.logger.WithField("event_type", fmt.Sprintf("%T", event)).Debug("Unsupported event type")
		return
	}

	log := h.logger
	if meta.id != "" {
		ctx = ctxutil.WithRequestID(ctx, meta.id)
		log = log.WithRequestID(meta.id)
	}
	if meta.userID != "" {
		ctx = ctxutil.WithUserID(ctx, meta.userID)
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	messages, err := h.dispatch(ctx, event, meta)
	status := "success"
	if err != nil {
		status = "error"
		log.WithError(err).WithField("event_type", meta.kind).Error("Failed to handle event")
		sentry.Report(ctx, err, map[string]string{"event_type": meta.kind})
		if msg := domerrors.UserMessage(err, ""); msg != "" && len(messages) == 0 {
			messages = h.withQuickLinks(msg)
		}
	}
	h.metrics.RecordWebhook(meta.kind, status, time.Since(start).Seconds())

	if len(messages) == 0 {
		return
	}
	if meta.replyToken == "" {
		log.Debug("Empty reply token, skipping reply")
		return
	}
	if len(messages) > lineutil.MaxMessagesPerReply {
		messages = messages[:lineutil.MaxMessagesPerReply]
	}
	if err := h.client.Reply(meta.replyToken, messages); err != nil {
		if strings.Contains(err.Error(), "Invalid reply token") {
			log.WithError(err).Debug("Reply token already used or invalid")
		} else {
			log.WithError(err).Error("Failed to send reply")
		}
		h.metrics.RecordWebhook(meta.kind, "reply_error", time.Since(start).Seconds())
		return
	}

	log.WithField("event_type", meta.kind).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Event processed")
}

func (h *Handler) dispatch(ctx context.Context, event webhook.EventInterface, meta eventMeta) ([]messaging_api.MessageInterface, error) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return h.handleMessage(ctx, e, meta)
	case webhook.PostbackEvent:
		return h.handlePostback(ctx, e, meta)
	case webhook.FollowEvent:
		if meta.userID == "" {
			return nil, nil
		}
		sess := h.sessions.GetOrCreate(sessionPrefix + meta.userID)
		return h.reset(sess)
	}
	return nil, nil
}

func (h *Handler) handleMessage(ctx context.Context, e webhook.MessageEvent, meta eventMeta) ([]messaging_api.MessageInterface, error) {
	text, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		if meta.direct {
			return h.withQuickLinks(textOnlyNotice), nil
		}
		return nil, nil
	}
	query := text.Text
	if !meta.direct {
		// Group chats answer only when the bot is mentioned.
		if !isBotMentioned(text) {
			return nil, nil
		}
		query = removeBotMentions(text.Text, text.Mention)
	}
	if meta.userID == "" {
		return nil, nil
	}
	if notice, limited := h.rateLimited(meta.userID); limited {
		return notice, nil
	}
	h.showLoading(meta)

	sess := h.sessions.GetOrCreate(sessionPrefix + meta.userID)
	reply, err := h.assistant.Submit(ctx, sess, query)
	switch {
	case errors.Is(err, domerrors.ErrEmptyQuery):
		return h.withQuickLinks(h.assistant.Welcome()), nil
	case errors.Is(err, domerrors.ErrTurnInFlight):
		return []messaging_api.MessageInterface{lineutil.NewTextMessage(busyNotice)}, nil
	case err != nil:
		return nil, h.wrap("submit", err)
	}
	return h.withQuickLinks(reply.Text), nil
}

func (h *Handler) reset(sess *session.Session) ([]messaging_api.MessageInterface, error) {
	text, err := h.assistant.Reset(sess)
	if errors.Is(err, domerrors.ErrTurnInFlight) {
		return []messaging_api.MessageInterface{lineutil.NewTextMessage(busyNotice)}, nil
	}
	if err != nil {
		return nil, err
	}
	return h.withQuickLinks(text), nil
}

// wrap attaches the connection error message shown to the user.
func (h *Handler) wrap(operation string, err error) error {
	msg := h.assistant.Knowledge().Store().Messages().ConnectionError
	return domerrors.NewWrapper("webhook", operation).Wrap(err, msg)
}

func (h *Handler) handlePostback(ctx context.Context, e webhook.PostbackEvent, meta eventMeta) ([]messaging_api.MessageInterface, error) {
	if e.Postback == nil || meta.userID == "" {
		return nil, nil
	}
	if notice, limited := h.rateLimited(meta.userID); limited {
		return notice, nil
	}
	sess := h.sessions.GetOrCreate(sessionPrefix + meta.userID)

	data := e.Postback.Data
	if data == lineutil.PostbackReset {
		return h.reset(sess)
	}
	id, ok := lineutil.ParseQuickLink(data)
	if !ok {
		h.logger.WithField("data", data).Debug("Unknown postback data")
		return nil, nil
	}
	h.showLoading(meta)
	reply, err := h.assistant.QuickLink(ctx, sess, id)
	switch {
	case errors.Is(err, domerrors.ErrUnknownQuickLink):
		return h.withQuickLinks(h.assistant.Welcome()), nil
	case errors.Is(err, domerrors.ErrTurnInFlight):
		return []messaging_api.MessageInterface{lineutil.NewTextMessage(busyNotice)}, nil
	case err != nil:
		return nil, h.wrap("quick_link", err)
	}
	return h.withQuickLinks(reply.Text), nil
}

// rateLimited applies the per-user limit. The notice is sent once per
// limited stretch; later drops stay silent until the user is allowed again.
func (h *Handler) rateLimited(userID string) ([]messaging_api.MessageInterface, bool) {
	if h.limiter == nil {
		return nil, false
	}
	allowed := h.limiter.Allow(userID)

	h.noticeMu.Lock()
	defer h.noticeMu.Unlock()
	if allowed {
		delete(h.notified, userID)
		return nil, false
	}
	if _, done := h.notified[userID]; done {
		return nil, true
	}
	h.notified[userID] = struct{}{}
	return []messaging_api.MessageInterface{lineutil.NewTextMessage(rateLimitNotice)}, true
}

func (h *Handler) showLoading(meta eventMeta) {
	if !meta.direct {
		return
	}
	if err := h.client.ShowLoading(meta.userID); err != nil {
		h.logger.WithError(err).Debug("Failed to show loading animation")
	}
}

func (h *Handler) withQuickLinks(text string) []messaging_api.MessageInterface {
	items := lineutil.QuickLinkItems(h.assistant.QuickLinks())
	return []messaging_api.MessageInterface{lineutil.NewTextMessageWithQuickReply(render.Plain(text), items...)}
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
