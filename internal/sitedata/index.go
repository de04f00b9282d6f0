package sitedata

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/iwilltry42/bm25-go/bm25"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/metrics"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/storage"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/textutil"
)

// Standard BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// stopwords never contribute to a page score.
var stopwords = textutil.Set(
	"a", "an", "and", "are", "at", "be", "by", "can", "do", "for", "from",
	"how", "i", "in", "is", "it", "me", "of", "on", "or", "the", "to",
	"what", "when", "where", "which", "who", "with", "you", "your", "nnrg",
)

// tokenize is the analyzer shared by documents and queries.
func tokenize(s string) []string {
	tokens := textutil.Tokenize(s)
	out := tokens[:0]
	for _, t := range tokens {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, textutil.Stem(t))
	}
	return out
}

// PageSource lists the cached pages an index is built from.
type PageSource interface {
	ListPages(ctx context.Context) ([]storage.Page, error)
}

// Hit is one scored page.
type Hit struct {
	Page  storage.Page
	Score float64
}

type snapshot struct {
	okapi *bm25.BM25Okapi
	pages []storage.Page
}

// PageIndex is a BM25 index over cached site pages. Search reads an
// immutable snapshot, so it never blocks on Rebuild.
type PageIndex struct {
	current atomic.Pointer[snapshot]
	metrics *metrics.Metrics
}

// NewPageIndex creates an empty index. m may be nil.
func NewPageIndex(m *metrics.Metrics) *PageIndex {
	return &PageIndex{metrics: m}
}

// Rebuild replaces the index with the pages currently in src.
func (idx *PageIndex) Rebuild(ctx context.Context, src PageSource) error {
	pages, err := src.ListPages(ctx)
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	return idx.Build(pages)
}

// Build replaces the index with pages.
func (idx *PageIndex) Build(pages []storage.Page) error {
	kept := make([]storage.Page, 0, len(pages))
	corpus := make([]string, 0, len(pages))
	for _, p := range pages {
		doc := p.Title + "\n" + p.Text
		if len(tokenize(doc)) == 0 {
			continue
		}
		kept = append(kept, p)
		corpus = append(corpus, doc)
	}

	next := &snapshot{pages: kept}
	if len(corpus) > 0 {
		okapi, err := bm25.NewBM25Okapi(corpus, tokenize, bm25K1, bm25B, nil)
		if err != nil {
			return fmt.Errorf("build bm25 index: %w", err)
		}
		next.okapi = okapi
	}

	idx.current.Store(next)
	idx.metrics.SetIndexedPages(len(kept))
	slog.Debug("page index rebuilt", "pages", len(kept))
	return nil
}

// Len returns the number of indexed pages.
func (idx *PageIndex) Len() int {
	snap := idx.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.pages)
}

// Search returns up to limit pages with a positive score, best first.
func (idx *PageIndex) Search(query string, limit int) ([]Hit, error) {
	snap := idx.current.Load()
	if snap == nil || snap.okapi == nil || limit <= 0 {
		return nil, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	scores, err := snap.okapi.GetScores(terms)
	if err != nil {
		return nil, fmt.Errorf("score pages: %w", err)
	}

	hits := make([]Hit, 0, len(scores))
	for i, score := range scores {
		if score <= 0 || i >= len(snap.pages) {
			continue
		}
		hits = append(hits, Hit{Page: snap.pages[i], Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
