// Package warmup fills the site page cache ahead of traffic and tracks
// whether the first fill has finished.
package warmup

import (
	"context"
	"fmt"
	"strings"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/logger"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/metrics"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/sitedata"
)

// Store is the page cache being warmed.
type Store interface {
	sitedata.PageStore
	Reset(ctx context.Context) error
}

// Options configures cache warming behavior
type Options struct {
	Reset       bool     // clear the cache before crawling
	BaseURL     string   // site root
	Paths       []string // site-relative pages to fetch
	Concurrency int
	// Index is rebuilt after the crawl when set.
	Index   *sitedata.PageIndex
	Metrics *metrics.Metrics
}

// Run crawls the configured pages into store once.
func Run(ctx context.Context, store Store, fetcher sitedata.DocumentFetcher, log *logger.Logger, opts Options) (*sitedata.CrawlStats, error) {
	if log == nil {
		log = logger.New("info")
	}
	log = log.WithModule("warmup")

	if opts.Reset {
		log.Warn("Resetting page cache...")
		if err := store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("failed to reset cache: %w", err)
		}
		log.Info("Page cache reset complete")
	}

	crawler := sitedata.NewCrawler(fetcher, store, opts.Index, sitedata.CrawlerConfig{
		BaseURL:     opts.BaseURL,
		Paths:       opts.Paths,
		Concurrency: opts.Concurrency,
		Metrics:     opts.Metrics,
		Logger:      log,
	})
	stats, err := crawler.Crawl(ctx)
	if err != nil {
		return stats, fmt.Errorf("crawl: %w", err)
	}

	log.WithFields(map[string]any{
		"saved":       stats.Saved,
		"unchanged":   stats.Unchanged,
		"failed":      stats.Failed,
		"expired":     stats.Expired,
		"duration_ms": stats.Duration.Milliseconds(),
	}).Info("Warmup complete")
	return stats, nil
}

// ParseList splits a comma-separated flag value, dropping empty items.
func ParseList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
