// Package responder defines the external responders consulted after the
// rule pipeline has no answer.
package responder

import (
	"context"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/session"
)

// Source names recorded on turns answered by an external responder.
const (
	SourceSiteKeywords = "site"
	SourceSitePages    = "site_pages"
	SourceLLM          = "llm"
	SourceTemplate     = "site_template"
)

// Input is what an external responder sees of a turn.
type Input struct {
	Text      string // trimmed user text
	Expanded  string // lowercased text with synonym forms appended
	Style     knowledge.Style
	History   []session.Turn // oldest first
	SessionID string
}

// Responder answers a query from outside the rule pipeline.
//
// Respond returns errors.ErrResponderDeclined when it has nothing to say;
// any other error is a failure of the responder itself.
type Responder interface {
	Name() string
	Respond(ctx context.Context, in Input) (string, error)
}

// Func adapts a function to Responder.
type Func struct {
	ResponderName string
	Fn            func(ctx context.Context, in Input) (string, error)
}

// Name implements Responder.
func (f Func) Name() string { return f.ResponderName }

// Respond implements Responder.
func (f Func) Respond(ctx context.Context, in Input) (string, error) { return f.Fn(ctx, in) }
