package sitedata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/logger"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/metrics"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/storage"
)

// DefaultCrawlConcurrency bounds parallel page fetches.
const DefaultCrawlConcurrency = 3

// Crawl page outcomes, used as the metrics status label.
const (
	crawlSaved     = "saved"
	crawlUnchanged = "unchanged"
	crawlEmpty     = "empty"
	crawlFailed    = "failed"
)

// boilerplate is removed before text extraction.
const boilerplate = "script, style, noscript, nav, footer, header, iframe, svg, form"

// DocumentFetcher fetches and parses one HTML page.
type DocumentFetcher interface {
	GetDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// PageStore persists crawled pages.
type PageStore interface {
	PageSource
	PageHash(ctx context.Context, url string) (string, error)
	TouchPage(ctx context.Context, url string) error
	SavePage(ctx context.Context, p *storage.Page) error
	DeleteExpiredPages(ctx context.Context) (int64, error)
	CountPages(ctx context.Context) (int, error)
}

// CrawlerConfig configures a Crawler.
type CrawlerConfig struct {
	BaseURL     string   // e.g. https://nnrg.edu.in
	Paths       []string // site-relative paths to fetch
	Concurrency int
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
	// FirstCrawlDone is called by Run once the initial crawl has ended,
	// whatever its outcome.
	FirstCrawlDone func()
}

// CrawlStats summarizes one crawl.
type CrawlStats struct {
	Saved     int64
	Unchanged int64
	Empty     int64
	Failed    int64
	Expired   int64
	Duration  time.Duration
}

// Crawler copies configured site pages into the page cache and rebuilds
// the page index afterwards.
type Crawler struct {
	fetcher DocumentFetcher
	store   PageStore
	index   *PageIndex
	cfg     CrawlerConfig
	log     *logger.Logger
}

// NewCrawler creates a Crawler. index may be nil when no search is served.
func NewCrawler(fetcher DocumentFetcher, store PageStore, index *PageIndex, cfg CrawlerConfig) *Crawler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultCrawlConcurrency
	}
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}
	return &Crawler{
		fetcher: fetcher,
		store:   store,
		index:   index,
		cfg:     cfg,
		log:     log.WithModule("crawler"),
	}
}

// Crawl fetches every configured page once. Individual page failures are
// counted, not returned; an error is returned when no page could be
// fetched or the context ended.
func (c *Crawler) Crawl(ctx context.Context) (*CrawlStats, error) {
	start := time.Now()
	var saved, unchanged, empty, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for _, path := range c.cfg.Paths {
		g.Go(func() error {
			status, err := c.crawlPage(gctx, path)
			c.cfg.Metrics.RecordCrawlPage(status)
			switch status {
			case crawlSaved:
				saved.Add(1)
			case crawlUnchanged:
				unchanged.Add(1)
			case crawlEmpty:
				empty.Add(1)
			default:
				failed.Add(1)
				c.log.WithError(err).WithField("path", path).Warn("Page crawl failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := &CrawlStats{
		Saved:     saved.Load(),
		Unchanged: unchanged.Load(),
		Empty:     empty.Load(),
		Failed:    failed.Load(),
	}
	if err := ctx.Err(); err != nil {
		stats.Duration = time.Since(start)
		return stats, fmt.Errorf("crawl canceled: %w", err)
	}

	expired, err := c.store.DeleteExpiredPages(ctx)
	if err != nil {
		c.log.WithError(err).Warn("Failed to delete expired pages")
	}
	stats.Expired = expired

	if n, err := c.store.CountPages(ctx); err == nil {
		c.cfg.Metrics.SetCachedPages(n)
	}
	if c.index != nil {
		if err := c.index.Rebuild(ctx, c.store); err != nil {
			c.log.WithError(err).Warn("Failed to rebuild page index")
		}
	}

	stats.Duration = time.Since(start)
	c.cfg.Metrics.RecordCrawl(stats.Duration.Seconds())
	c.log.WithFields(map[string]any{
		"saved":     stats.Saved,
		"unchanged": stats.Unchanged,
		"empty":     stats.Empty,
		"failed":    stats.Failed,
		"expired":   stats.Expired,
		"duration":  stats.Duration,
	}).Info("Site crawl complete")

	if len(c.cfg.Paths) > 0 && stats.Failed == int64(len(c.cfg.Paths)) {
		return stats, errors.New("every page fetch failed")
	}
	return stats, nil
}

// Run crawls immediately and then every interval until ctx ends.
func (c *Crawler) Run(ctx context.Context, interval time.Duration) {
	if _, err := c.Crawl(ctx); err != nil && ctx.Err() == nil {
		c.log.WithError(err).Warn("Initial site crawl failed")
	}
	if c.cfg.FirstCrawlDone != nil {
		c.cfg.FirstCrawlDone()
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Crawl(ctx); err != nil && ctx.Err() == nil {
				c.log.WithError(err).Warn("Scheduled site crawl failed")
			}
		}
	}
}

func (c *Crawler) crawlPage(ctx context.Context, path string) (string, error) {
	pageURL, err := resolveURL(c.cfg.BaseURL, path)
	if err != nil {
		return crawlFailed, err
	}

	doc, err := c.fetcher.GetDocument(ctx, pageURL)
	if err != nil {
		return crawlFailed, err
	}

	title, text := ExtractText(doc)
	if text == "" {
		return crawlEmpty, nil
	}

	hash := storage.HashText(text)
	if prev, err := c.store.PageHash(ctx, pageURL); err == nil && prev == hash {
		if err := c.store.TouchPage(ctx, pageURL); err != nil {
			return crawlFailed, err
		}
		return crawlUnchanged, nil
	}

	err = c.store.SavePage(ctx, &storage.Page{
		URL:   pageURL,
		Path:  path,
		Title: title,
		Text:  text,
		Hash:  hash,
	})
	if err != nil {
		return crawlFailed, err
	}
	return crawlSaved, nil
}

// ExtractText returns the title and readable, NFKC-normalized text of doc.
// Text keeps one line per block of content.
func ExtractText(doc *goquery.Document) (string, string) {
	title := cleanLine(doc.Find("title").First().Text())
	if title == "" {
		title = cleanLine(doc.Find("h1").First().Text())
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body.Find(boilerplate).Remove()

	// Block elements end a line.
	body.Find("p, li, h1, h2, h3, h4, h5, h6, td, th, div, br, section, article").
		Each(func(_ int, s *goquery.Selection) {
			s.AppendHtml("\n")
		})

	var lines []string
	for _, line := range strings.Split(body.Text(), "\n") {
		if l := cleanLine(line); l != "" {
			lines = append(lines, l)
		}
	}
	return title, strings.Join(lines, "\n")
}

func cleanLine(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

func resolveURL(base, path string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse path %q: %w", path, err)
	}
	return b.ResolveReference(ref).String(), nil
}
