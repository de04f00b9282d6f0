package sitedata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/responder"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/textutil"
)

const (
	// DefaultMinScore is the BM25 score a page must clear to be used.
	DefaultMinScore = 1.0

	excerptSentences = 2
	excerptMaxRunes  = 400
	retrievedNote    = "This information was retrieved from the NNRG website."
)

// PageResponder answers with an excerpt of the best matching cached page.
type PageResponder struct {
	index    *PageIndex
	minScore float64
}

// NewPageResponder creates a PageResponder over index.
// A non-positive minScore selects DefaultMinScore.
func NewPageResponder(index *PageIndex, minScore float64) *PageResponder {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &PageResponder{index: index, minScore: minScore}
}

// Name implements responder.Responder.
func (r *PageResponder) Name() string { return responder.SourceSitePages }

// Respond implements responder.Responder.
func (r *PageResponder) Respond(ctx context.Context, in responder.Input) (string, error) {
	if r.index == nil || r.index.Len() == 0 {
		return "", domerrors.ErrResponderUnavailable
	}

	hits, err := r.index.Search(in.Text, 1)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 || hits[0].Score < r.minScore {
		return "", domerrors.ErrResponderDeclined
	}

	best := hits[0]
	excerpt := Excerpt(best.Page.Text, in.Text)
	if excerpt == "" {
		return "", domerrors.ErrResponderDeclined
	}

	slog.DebugContext(ctx, "site page matched",
		"url", best.Page.URL,
		"score", best.Score)

	title := best.Page.Title
	if title == "" {
		title = best.Page.URL
	}
	return FormatOutput(title, fmt.Sprintf("%s\n\nMore: %s", excerpt, best.Page.URL)), nil
}

// FormatOutput frames content taken from the website.
func FormatOutput(title, content string) string {
	return title + "\n\n" + content + "\n\n" + retrievedNote
}

// Excerpt picks the sentences of text that share the most terms with
// query, kept in their original order and truncated to a short answer.
func Excerpt(text, query string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}

	terms := make(map[string]struct{})
	for _, t := range tokenize(query) {
		terms[t] = struct{}{}
	}

	type scored struct {
		pos   int
		score int
	}
	ranked := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		n := 0
		for _, t := range tokenize(s) {
			if _, ok := terms[t]; ok {
				n++
			}
		}
		if n > 0 {
			ranked = append(ranked, scored{pos: i, score: n})
		}
	}
	if len(ranked) == 0 {
		return textutil.Truncate(sentences[0], excerptMaxRunes)
	}

	// Selection sort is enough for a handful of picks.
	picked := make([]bool, len(sentences))
	for range min(excerptSentences, len(ranked)) {
		best := -1
		for i, r := range ranked {
			if picked[r.pos] {
				continue
			}
			if best < 0 || r.score > ranked[best].score {
				best = i
			}
		}
		picked[ranked[best].pos] = true
	}

	var parts []string
	for i, s := range sentences {
		if picked[i] {
			parts = append(parts, s)
		}
	}
	return textutil.Truncate(strings.Join(parts, " "), excerptMaxRunes)
}

// splitSentences breaks text at line breaks and sentence punctuation.
func splitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		start := 0
		for i := 0; i < len(line); i++ {
			c := line[i]
			if c != '.' && c != '!' && c != '?' {
				continue
			}
			if i+1 < len(line) && line[i+1] != ' ' {
				continue
			}
			if s := strings.TrimSpace(line[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
		if s := strings.TrimSpace(line[start:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}
