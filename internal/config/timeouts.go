// Package config provides centralized timeout constants for the application.
//
// # LINE API Constraints
//
// LINE expects the webhook to acknowledge quickly, so events are processed
// after the 200 response under WebhookProcessing. Reply tokens stay valid
// long enough that the language model responder fits inside that budget.
package config

import "time"

// Conversation timeouts
const (
	// TurnProcessing bounds the external responder chain of a single turn.
	// The rule pipeline itself is synchronous and does not count against it.
	TurnProcessing = 20 * time.Second

	// SessionIdle is how long an untouched session is kept in memory.
	SessionIdle = 30 * time.Minute

	// SessionCleanupInterval is how often idle sessions are swept.
	SessionCleanupInterval = time.Minute
)

// HTTP server timeouts
const (
	// HTTPRead covers small JSON bodies from the widget and LINE.
	HTTPRead = 10 * time.Second

	// HTTPWrite must accommodate TurnProcessing plus serialization.
	HTTPWrite = 30 * time.Second

	// HTTPIdle is the keep-alive idle timeout.
	HTTPIdle = 120 * time.Second

	// ReadinessCheckTimeout bounds the storage ping in /readyz.
	ReadinessCheckTimeout = 3 * time.Second
)

// Webhook timeouts
const (
	// WebhookProcessing is the timeout for processing a single LINE event,
	// including the responder chain and the reply call.
	WebhookProcessing = 30 * time.Second
)

// Scraper timeouts
const (
	// ScraperRequest is the timeout for a single HTTP request to the site.
	ScraperRequest = 30 * time.Second

	// ScraperRetryInitial is the initial delay before retrying a failed request.
	// Uses exponential backoff: 2s -> 4s -> 8s
	ScraperRetryInitial = 2 * time.Second

	// ScraperRateLimit is the minimum delay between consecutive page fetches.
	ScraperRateLimit = 500 * time.Millisecond
)

// Database timeouts
const (
	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Background job intervals
const (
	// CrawlInterval is the default period between site crawls.
	CrawlInterval = 24 * time.Hour

	// PageCleanupInterval is how often expired cached pages are deleted.
	PageCleanupInterval = 12 * time.Hour

	// MetricsUpdateInterval is how often gauge metrics are refreshed.
	MetricsUpdateInterval = 5 * time.Minute

	// RateLimiterCleanupInterval is how often idle limiter buckets are removed.
	RateLimiterCleanupInterval = 5 * time.Minute

	// KnowledgeReloadInterval is how often the knowledge object's ETag is checked.
	KnowledgeReloadInterval = 10 * time.Minute
)

// Warmup timeouts
const (
	// WarmupCrawl bounds one full site crawl.
	WarmupCrawl = 10 * time.Minute

	// WarmupGrace is how long /readyz waits for the first crawl.
	WarmupGrace = 2 * time.Minute
)

// Language model timeouts
const (
	// LLMRequest bounds a single provider call, retries excluded.
	LLMRequest = 15 * time.Second

	// LLMRetryInitial is the first backoff delay between provider retries.
	LLMRetryInitial = 500 * time.Millisecond

	// LLMRetryMax caps the backoff delay.
	LLMRetryMax = 4 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown is the default timeout for graceful server shutdown.
	GracefulShutdown = 30 * time.Second

	// SentryFlush bounds the final flush of buffered error events.
	SentryFlush = 2 * time.Second
)
