// Package metrics defines the assistant's Prometheus series.
//
// Every Record/Set method is safe on a nil *Metrics, so components can be
// built without a registry in tests and tools.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Conversation metrics
	TurnsTotal          *prometheus.CounterVec
	TurnDurationSeconds *prometheus.HistogramVec
	ResponderErrors     *prometheus.CounterVec
	SessionsActive      prometheus.Gauge

	// Language model metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMDurationSeconds *prometheus.HistogramVec
	LLMFallbackTotal   *prometheus.CounterVec

	// Scraper and crawl metrics
	ScraperRequestsTotal   *prometheus.CounterVec
	ScraperDurationSeconds prometheus.Histogram
	SingleflightDedupTotal prometheus.Counter
	CrawlPagesTotal        *prometheus.CounterVec
	CrawlDurationSeconds   prometheus.Histogram
	CachedPages            prometheus.Gauge
	IndexedPages           prometheus.Gauge

	// Channel metrics
	WebhookRequestsTotal   *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec
	HTTPRequestsTotal      *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry prometheus.Registerer) *Metrics {
	f := promauto.With(registry)
	return &Metrics{
		TurnsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nnrg_turns_total",
				Help: "Answered turns by the tier that produced the response",
			},
			[]string{"source"}, // stage name, off_topic, quick_link, site, site_pages, llm, fallback, error
		),
		TurnDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nnrg_turn_duration_seconds",
				Help:    "Turn processing duration by channel",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"channel"}, // web, line, cli
		),
		ResponderErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nnrg_responder_errors_total",
				Help: "External responder failures that were degraded to the next tier",
			},
			[]string{"responder"},
		),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "nnrg_sessions_active",
			Help: "Sessions currently held in memory",
		}),

		LLMRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nnrg_llm_requests_total",
				Help: "Language model requests by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error, retry
		),
		LLMDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nnrg_llm_duration_seconds",
				Help:    "Language model request duration by provider",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15},
			},
			[]string{"provider"},
		),
		LLMFallbackTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nnrg_llm_fallback_total",
				Help: "Switches from a failing provider to the next one",
			},
			[]string{"from", "to"},
		),

		ScraperRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nnrg_scraper_requests_total",
				Help: "Site fetches by status",
			},
			[]string{"status"}, // success, error, not_found
		),
		ScraperDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nnrg_scraper_duration_seconds",
			Help:    "Site fetch duration including retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		SingleflightDedupTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "nnrg_singleflight_dedup_total",
			Help: "Fetches that joined an in-flight request for the same URL",
		}),
		CrawlPagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nnrg_crawl_pages_total",
				Help: "Crawled pages by outcome",
			},
			[]string{"status"}, // stored, error, empty
		),
		CrawlDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nnrg_crawl_duration_seconds",
			Help:    "Duration of a full site crawl",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		CachedPages: f.NewGauge(prometheus.GaugeOpts{
			Name: "nnrg_cached_pages",
			Help: "Site pages in the local cache",
		}),
		IndexedPages: f.NewGauge(prometheus.GaugeOpts{
			Name: "nnrg_indexed_pages",
			Help: "Site pages in the full-text index",
		}),

		WebhookRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nnrg_webhook_events_total",
				Help: "LINE webhook events by type and status",
			},
			[]string{"event_type", "status"},
		),
		WebhookDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nnrg_webhook_duration_seconds",
				Help:    "LINE event processing duration by type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"event_type"}, // message, postback, follow
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nnrg_http_requests_total",
				Help: "HTTP API requests by route and status class",
			},
			[]string{"route", "status"},
		),

		RateLimiterDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nnrg_rate_limiter_dropped_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"limiter_type"}, // api, user, llm
		),
	}
}

// RecordTurn counts an answered turn and its duration.
func (m *Metrics) RecordTurn(source, channel string, seconds float64) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(source).Inc()
	m.TurnDurationSeconds.WithLabelValues(channel).Observe(seconds)
}

// RecordResponderError counts a degraded responder failure.
func (m *Metrics) RecordResponderError(responder string) {
	if m == nil {
		return
	}
	m.ResponderErrors.WithLabelValues(responder).Inc()
}

// SetActiveSessions sets the in-memory session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// RecordLLM records one provider attempt.
func (m *Metrics) RecordLLM(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMDurationSeconds.WithLabelValues(provider).Observe(seconds)
}

// RecordLLMFallback records a switch between providers.
func (m *Metrics) RecordLLMFallback(from, to string) {
	if m == nil {
		return
	}
	m.LLMFallbackTotal.WithLabelValues(from, to).Inc()
}

// RecordScraperRequest records a site fetch with status
func (m *Metrics) RecordScraperRequest(status string, seconds float64) {
	if m == nil {
		return
	}
	m.ScraperRequestsTotal.WithLabelValues(status).Inc()
	m.ScraperDurationSeconds.Observe(seconds)
}

// RecordSingleflightDedup records a deduplicated fetch
func (m *Metrics) RecordSingleflightDedup() {
	if m == nil {
		return
	}
	m.SingleflightDedupTotal.Inc()
}

// RecordCrawlPage records the outcome for one crawled page.
func (m *Metrics) RecordCrawlPage(status string) {
	if m == nil {
		return
	}
	m.CrawlPagesTotal.WithLabelValues(status).Inc()
}

// RecordCrawl records a full crawl's duration.
func (m *Metrics) RecordCrawl(seconds float64) {
	if m == nil {
		return
	}
	m.CrawlDurationSeconds.Observe(seconds)
}

// SetCachedPages sets the cached page gauge.
func (m *Metrics) SetCachedPages(n int) {
	if m == nil {
		return
	}
	m.CachedPages.Set(float64(n))
}

// SetIndexedPages sets the indexed page gauge.
func (m *Metrics) SetIndexedPages(n int) {
	if m == nil {
		return
	}
	m.IndexedPages.Set(float64(n))
}

// RecordWebhook records a LINE event
func (m *Metrics) RecordWebhook(eventType, status string, seconds float64) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(seconds)
}

// RecordHTTPRequest records an API request.
func (m *Metrics) RecordHTTPRequest(route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}
