// Package sitedata holds the external responders backed by the college
// website: the keyword table, the cached-page search and the "visit the
// website" template, plus the crawler that fills the page cache.
package sitedata

import (
	"context"
	"strings"

	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/responder"
)

// StoreFunc returns the knowledge store currently in use.
type StoreFunc func() *knowledge.Store

// Static returns a StoreFunc that always yields store.
func Static(store *knowledge.Store) StoreFunc {
	return func() *knowledge.Store { return store }
}

// KeywordResponder answers from the site keyword table. Rows are scanned
// in table order and the first row with a match substring in the expanded
// query wins.
type KeywordResponder struct {
	store StoreFunc
}

// NewKeywordResponder creates a KeywordResponder.
func NewKeywordResponder(store StoreFunc) *KeywordResponder {
	return &KeywordResponder{store: store}
}

// Name implements responder.Responder.
func (r *KeywordResponder) Name() string { return responder.SourceSiteKeywords }

// Respond implements responder.Responder.
func (r *KeywordResponder) Respond(_ context.Context, in responder.Input) (string, error) {
	store := r.store()
	if store == nil {
		return "", domerrors.ErrResponderUnavailable
	}

	expanded := in.Expanded
	if expanded == "" {
		expanded = strings.ToLower(in.Text)
	}

	for _, row := range store.SiteKeywords() {
		for _, m := range row.Match {
			if !strings.Contains(expanded, m) {
				continue
			}
			if text := store.Answer(row.Category, row.Key); text != "" {
				return text, nil
			}
		}
	}
	return "", domerrors.ErrResponderDeclined
}

// TemplateResponder always answers with the "visit the website" template.
// It is only placed in the chain when no language model is configured.
type TemplateResponder struct {
	store StoreFunc
}

// NewTemplateResponder creates a TemplateResponder.
func NewTemplateResponder(store StoreFunc) *TemplateResponder {
	return &TemplateResponder{store: store}
}

// Name implements responder.Responder.
func (r *TemplateResponder) Name() string { return responder.SourceTemplate }

// Respond implements responder.Responder.
func (r *TemplateResponder) Respond(_ context.Context, in responder.Input) (string, error) {
	store := r.store()
	if store == nil {
		return "", domerrors.ErrResponderUnavailable
	}
	return store.Messages().SiteText(in.Text), nil
}
