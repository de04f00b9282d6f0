// Package main crawls the college site into the page cache once, so a
// fresh deployment can answer from cached pages before its first
// scheduled crawl.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/config"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/logger"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/scraper"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/storage"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/warmup"
)

var (
	resetFlag   = flag.Bool("reset", false, "Delete all cached pages before crawling")
	pagesFlag   = flag.String("pages", "", "Comma-separated site paths to crawl (default: NNRG_SITE_PAGES)")
	workersFlag = flag.Int("workers", 0, "Concurrent page fetches (0 = crawler default)")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadForMode(config.WarmupMode)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting warmup tool")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, config.WarmupCrawl)
	defer cancel()

	db, err := storage.New(ctx, cfg.SQLitePath(), cfg.PageTTL)
	if err != nil {
		log.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", cfg.SQLitePath()).WithField("page_ttl", cfg.PageTTL).Info("Database connected")

	paths := cfg.SitePages
	if p := warmup.ParseList(*pagesFlag); len(p) > 0 {
		paths = p
	}

	client := scraper.NewClient(scraper.Options{
		Timeout:      cfg.ScraperTimeout,
		MaxRetries:   cfg.ScraperMaxRetries,
		RetryInitial: config.ScraperRetryInitial,
		MinInterval:  config.ScraperRateLimit,
	})

	stats, err := warmup.Run(ctx, db, client, log, warmup.Options{
		Reset:       *resetFlag,
		BaseURL:     cfg.SiteBaseURL,
		Paths:       paths,
		Concurrency: *workersFlag,
	})
	if err != nil {
		log.WithError(err).Error("Warmup failed")
		os.Exit(1)
	}

	total, _ := db.CountPages(ctx)
	fmt.Printf("✅ Warmup complete: %d saved, %d unchanged, %d failed, %d cached in %s\n",
		stats.Saved, stats.Unchanged, stats.Failed, total, stats.Duration.Round(time.Millisecond))
	if stats.Failed > 0 && stats.Saved+stats.Unchanged == 0 {
		os.Exit(1)
	}
}
