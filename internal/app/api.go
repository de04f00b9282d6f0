package app

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/assistant"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/ctxutil"
	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/render"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/session"
)

// maxBodyBytes caps JSON request bodies on the API.
const maxBodyBytes = 16 << 10

type errorBody struct {
	Error string `json:"error"`
}

type quickLinkBody struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Emoji string `json:"emoji,omitempty"`
}

type sessionBody struct {
	SessionID  string          `json:"session_id"`
	Welcome    string          `json:"welcome"`
	QuickLinks []quickLinkBody `json:"quick_links"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type replyBody struct {
	Text   string          `json:"text"`
	HTML   string          `json:"html"`
	Source string          `json:"source"`
	Style  knowledge.Style `json:"style"`
}

type textBody struct {
	Text string `json:"text"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verr *domerrors.ValidationError
	switch {
	case errors.Is(err, domerrors.ErrEmptyQuery), errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, domerrors.ErrSessionNotFound), errors.Is(err, domerrors.ErrUnknownQuickLink):
		return http.StatusNotFound
	case errors.Is(err, domerrors.ErrTurnInFlight):
		return http.StatusConflict
	case errors.Is(err, domerrors.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = domerrors.UserMessage(err, "internal error")
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, errorBody{Error: msg})
}

func quickLinkBodies(links []knowledge.QuickLink) []quickLinkBody {
	out := make([]quickLinkBody, len(links))
	for i, l := range links {
		out[i] = quickLinkBody{ID: l.ID, Label: l.Label, Emoji: l.Emoji}
	}
	return out
}

func toReplyBody(r assistant.Reply) replyBody {
	return replyBody{Text: r.Text, HTML: render.HTML(r.Text), Source: r.Source, Style: r.Style}
}

// session resolves the :id parameter and tags the request context.
func (a *Application) session(c *gin.Context) (*session.Session, bool) {
	sess, err := a.sessions.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	ctx := ctxutil.WithSessionID(c.Request.Context(), sess.ID)
	c.Request = c.Request.WithContext(ctxutil.WithChannel(ctx, ctxutil.ChannelWeb))
	return sess, true
}

func (a *Application) createSession(c *gin.Context) {
	sess := a.sessions.Create()
	c.JSON(http.StatusCreated, sessionBody{
		SessionID:  sess.ID,
		Welcome:    a.assistant.Welcome(),
		QuickLinks: quickLinkBodies(a.assistant.QuickLinks()),
	})
}

func (a *Application) postMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, domerrors.NewValidationError("text", "request body must be JSON with a text field"))
		return
	}
	sess, ok := a.session(c)
	if !ok {
		return
	}
	reply, err := a.assistant.Submit(c.Request.Context(), sess, req.Text)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReplyBody(reply))
}

func (a *Application) resetSession(c *gin.Context) {
	sess, ok := a.session(c)
	if !ok {
		return
	}
	text, err := a.assistant.Reset(sess)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, textBody{Text: text})
}

func (a *Application) postQuickLink(c *gin.Context) {
	sess, ok := a.session(c)
	if !ok {
		return
	}
	reply, err := a.assistant.QuickLink(c.Request.Context(), sess, c.Param("link"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReplyBody(reply))
}

func (a *Application) deleteSession(c *gin.Context) {
	a.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (a *Application) listQuickLinks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"quick_links": quickLinkBodies(a.assistant.QuickLinks())})
}
