// Package assistant runs conversation turns: style detection, the topic
// gate, the rule pipeline and the chain of external responders, recording
// every answered turn in the session's memory.
package assistant

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/ctxutil"
	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/logger"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/metrics"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/resolver"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/responder"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/sentry"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/session"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/textutil"
)

// Turn sources outside the pipeline stages and external responders.
const (
	SourceOffTopic  = "off_topic"
	SourceQuickLink = "quick_link"
	SourceFallback  = "fallback"
	SourceError     = "error"
)

const (
	// DefaultTurnTimeout bounds the external responder chain.
	DefaultTurnTimeout = 20 * time.Second

	// historyTurns is how many prior turns responders see.
	historyTurns = 5

	logQueryRunes = 80

	// maxQueryRunes caps the text handed to the pipeline.
	maxQueryRunes = 1000
)

// Reply is the answer to one turn.
type Reply struct {
	Text   string
	Source string
	Style  knowledge.Style
}

// Options configures an Assistant.
type Options struct {
	TurnTimeout time.Duration
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
	Now         func() time.Time
}

// Assistant answers turns for any number of sessions. It keeps no
// per-session state of its own and is safe for concurrent use.
type Assistant struct {
	knowledge   *Knowledge
	chain       []responder.Responder
	turnTimeout time.Duration
	metrics     *metrics.Metrics
	log         *logger.Logger
	now         func() time.Time
}

// New creates an Assistant. chain is consulted in order when the rule
// pipeline has no answer.
func New(k *Knowledge, chain []responder.Responder, opts Options) *Assistant {
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = DefaultTurnTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.New("info")
	}
	return &Assistant{
		knowledge:   k,
		chain:       chain,
		turnTimeout: opts.TurnTimeout,
		metrics:     opts.Metrics,
		log:         log.WithModule("assistant"),
		now:         opts.Now,
	}
}

// Knowledge returns the knowledge holder.
func (a *Assistant) Knowledge() *Knowledge { return a.knowledge }

// Responders returns the names of the external chain in order.
func (a *Assistant) Responders() []string {
	names := make([]string, len(a.chain))
	for i, r := range a.chain {
		names[i] = r.Name()
	}
	return names
}

// Welcome returns the greeting shown on a fresh session.
func (a *Assistant) Welcome() string {
	return a.knowledge.Store().Messages().Welcome
}

// QuickLinks returns the fixed quick links in display order.
func (a *Assistant) QuickLinks() []knowledge.QuickLink {
	return a.knowledge.Store().QuickLinks()
}

// Reset clears the session's memory and style and returns the welcome
// message. It fails with ErrTurnInFlight while a turn is running, since
// that turn would append to the cleared memory.
func (a *Assistant) Reset(sess *session.Session) (string, error) {
	if err := sess.Begin(); err != nil {
		return "", err
	}
	defer sess.End()

	sess.Reset()
	sess.Touch(a.now())
	return a.Welcome(), nil
}

// Submit answers text for sess. Whitespace-only text returns
// ErrEmptyQuery and records nothing. Text beyond maxQueryRunes is cut
// off. Off-topic refusals are not remembered. Responder failures never surface as
// errors; they degrade to the next responder and finally to a static
// message.
func (a *Assistant) Submit(ctx context.Context, sess *session.Session, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, domerrors.ErrEmptyQuery
	}
	text = truncateQuery(text)
	if err := sess.Begin(); err != nil {
		return Reply{}, err
	}
	defer sess.End()

	start := a.now()
	ctx = ctxutil.WithSessionID(ctx, sess.ID)
	eng := a.knowledge.load()

	style := resolver.DetectStyle(text)
	sess.SetStyle(style)

	var reply Reply
	if !eng.resolver.Classifier().OnTopic(text) {
		reply = Reply{Text: eng.store.Messages().OffTopicFor(style), Source: SourceOffTopic}
	} else if res := eng.resolver.Resolve(text, sess.Memory()); res.Found {
		reply = Reply{Text: res.Answer, Source: res.Stage}
	} else {
		reply = a.escalate(ctx, eng, sess, res.Query)
	}
	reply.Style = style

	a.record(ctx, sess, text, reply, start)
	return reply, nil
}

// QuickLink answers a fixed quick link straight from the store.
func (a *Assistant) QuickLink(ctx context.Context, sess *session.Session, id string) (Reply, error) {
	store := a.knowledge.Store()
	link, ok := store.QuickLink(id)
	if !ok {
		return Reply{}, domerrors.ErrUnknownQuickLink
	}
	if err := sess.Begin(); err != nil {
		return Reply{}, err
	}
	defer sess.End()

	start := a.now()
	reply := Reply{
		Text:   store.Answer(link.Category, link.Key),
		Source: SourceQuickLink,
		Style:  sess.Style(),
	}
	a.record(ctxutil.WithSessionID(ctx, sess.ID), sess, link.Query, reply, start)
	return reply, nil
}

func (a *Assistant) record(ctx context.Context, sess *session.Session, query string, reply Reply, start time.Time) {
	now := a.now()
	if reply.Source != SourceOffTopic {
		sess.Memory().Append(session.Turn{
			Query:     query,
			Response:  reply.Text,
			Timestamp: now,
			Source:    reply.Source,
		})
	}
	sess.Touch(now)

	channel := ctxutil.GetChannel(ctx)
	if channel == "" {
		channel = ctxutil.ChannelWeb
	}
	elapsed := now.Sub(start)
	a.metrics.RecordTurn(reply.Source, channel, elapsed.Seconds())
	a.log.DebugContext(ctx, "Turn answered",
		"query", textutil.Truncate(query, logQueryRunes),
		"source", reply.Source,
		"style", reply.Style,
		"duration", elapsed)
}

// escalate walks the external chain. A decline moves on quietly; a
// failure is logged, reported and moves on. When every responder that was
// asked failed, the connection-error message is returned.
func (a *Assistant) escalate(ctx context.Context, eng *engine, sess *session.Session, q resolver.Query) Reply {
	ctx, cancel := context.WithTimeout(ctx, a.turnTimeout)
	defer cancel()

	in := responder.Input{
		Text:      q.Raw,
		Expanded:  q.Expanded,
		Style:     q.Style,
		History:   sess.Memory().Recent(historyTurns),
		SessionID: sess.ID,
	}

	var failed, declined int
	for _, r := range a.chain {
		if ctx.Err() != nil {
			break
		}
		text, err := r.Respond(ctx, in)
		switch {
		case err == nil && strings.TrimSpace(text) != "":
			return Reply{Text: text, Source: r.Name()}
		case err == nil, errors.Is(err, domerrors.ErrResponderDeclined):
			declined++
		case errors.Is(err, domerrors.ErrResponderUnavailable):
		default:
			failed++
			a.responderFailed(ctx, r.Name(), err)
		}
	}

	messages := eng.store.Messages()
	if failed > 0 && declined == 0 {
		return Reply{Text: messages.ConnectionError, Source: SourceError}
	}
	return Reply{Text: messages.FallbackFor(q.Style), Source: SourceFallback}
}

func (a *Assistant) responderFailed(ctx context.Context, name string, err error) {
	err = domerrors.NewResponderError(name, err)
	a.metrics.RecordResponderError(name)
	a.log.WithError(err).WarnContext(ctx, "External responder failed", "responder", name)
	sentry.Report(ctx, err, map[string]string{"responder": name})
}

// truncateQuery cuts text to maxQueryRunes runes.
func truncateQuery(text string) string {
	if utf8.RuneCountInString(text) <= maxQueryRunes {
		return text
	}
	return strings.TrimSpace(string([]rune(text)[:maxQueryRunes]))
}
