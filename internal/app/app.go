// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/assistant"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/config"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/genai"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/logger"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/metrics"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/r2client"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/ratelimit"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/resolver"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/scraper"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/sentry"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/session"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/sitedata"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/storage"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/warmup"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/webhook"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg      *config.Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	knowledge *assistant.Knowledge
	reloader  *assistant.Reloader // nil without a knowledge object
	assistant *assistant.Assistant
	sessions  *session.Store

	// Site cache; all nil when the site responders are disabled.
	db        *storage.DB
	pageIndex *sitedata.PageIndex
	crawler   *sitedata.Crawler

	completer      *genai.FallbackCompleter // nil without a language model
	apiLimiter     *ratelimit.KeyedLimiter
	userLimiter    *ratelimit.KeyedLimiter
	llmLimiter     *ratelimit.KeyedLimiter
	webhookHandler *webhook.Handler // nil without LINE credentials
	readiness      *warmup.ReadinessState

	server *http.Server
	wg     sync.WaitGroup // background jobs
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})
	log = log.WithField("service", cfg.ServerName)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}
	// Package-level slog calls pick up request and session ids too.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
		ServerName:  cfg.ServerName,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed; error reporting disabled")
	} else if sentry.IsEnabled() {
		log.WithField("host", cfg.SentryHost).Info("Sentry error reporting enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	a := &Application{
		cfg:       cfg,
		logger:    log,
		metrics:   m,
		registry:  registry,
		readiness: warmup.NewReadinessState(config.WarmupGrace),
	}

	if err := a.initKnowledge(ctx); err != nil {
		return nil, err
	}
	if err := a.initSite(ctx); err != nil {
		return nil, err
	}
	a.initLLM(ctx)

	chain := assistant.BuildChain(a.knowledge, assistant.ChainConfig{
		Pages:    a.pageIndex,
		MinScore: cfg.SiteMinScore,
		LLM:      a.llmResponder(),
	})
	a.assistant = assistant.New(a.knowledge, chain, assistant.Options{
		TurnTimeout: cfg.TurnTimeout,
		Metrics:     m,
		Logger:      log,
	})
	log.WithField("responders", a.assistant.Responders()).Info("Responder chain ready")

	a.sessions = session.NewStore(session.StoreConfig{
		TTL:           cfg.SessionTTL,
		CleanupPeriod: config.SessionCleanupInterval,
		Metrics:       m,
	})
	a.apiLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          ratelimit.TypeAPI,
		Burst:         cfg.APIRateBurst,
		RefillRate:    cfg.APIRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	if cfg.LINEEnabled() {
		if err := a.initLINE(); err != nil {
			return nil, err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.newRouter(),
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return a, nil
}

func (a *Application) initKnowledge(ctx context.Context) error {
	cfg := a.cfg
	opts := assistant.LoadOptions{
		File:     cfg.KnowledgeFile,
		Store:    []knowledge.Option{knowledge.WithLocation(cfg.Location())},
		Resolver: []resolver.Option{resolver.WithMemoryThreshold(cfg.MemoryThreshold)},
		Logger:   a.logger,
	}

	var objects *r2client.Client
	if cfg.R2Enabled() && cfg.KnowledgeObjectKey != "" {
		client, err := r2client.New(ctx, r2client.Config{
			Endpoint:    r2Endpoint(cfg),
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretAccessKey,
			BucketName:  cfg.R2BucketName,
		})
		if err != nil {
			a.logger.WithError(err).Warn("R2 client unavailable; knowledge object ignored")
		} else {
			objects = client
			opts.Objects = client
			opts.ObjectKey = cfg.KnowledgeObjectKey
		}
	}

	k, err := assistant.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("knowledge: %w", err)
	}
	a.knowledge = k
	a.logger.WithField("source", k.Source()).Info("Knowledge ready")

	if objects != nil {
		a.reloader = assistant.NewReloader(k, objects, cfg.KnowledgeObjectKey, a.logger, opts.Store...)
	}
	return nil
}

// r2Endpoint returns the configured endpoint or the account's default.
func r2Endpoint(cfg *config.Config) string {
	if cfg.R2Endpoint != "" {
		return cfg.R2Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
}

func (a *Application) initSite(ctx context.Context) error {
	cfg := a.cfg
	if !cfg.SiteEnabled {
		a.readiness.MarkReady()
		return nil
	}

	db, err := storage.New(ctx, cfg.SQLitePath(), cfg.PageTTL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	a.db = db
	a.logger.WithField("path", cfg.SQLitePath()).WithField("page_ttl", cfg.PageTTL).Info("Database connected")

	a.pageIndex = sitedata.NewPageIndex(a.metrics)
	if err := a.pageIndex.Rebuild(ctx, db); err != nil {
		a.logger.WithError(err).Warn("Page index build from cache failed")
	}

	client := scraper.NewClient(scraper.Options{
		Timeout:      cfg.ScraperTimeout,
		MaxRetries:   cfg.ScraperMaxRetries,
		RetryInitial: config.ScraperRetryInitial,
		MinInterval:  config.ScraperRateLimit,
		Metrics:      a.metrics,
	})
	a.crawler = sitedata.NewCrawler(client, db, a.pageIndex, sitedata.CrawlerConfig{
		BaseURL:        cfg.SiteBaseURL,
		Paths:          cfg.SitePages,
		Metrics:        a.metrics,
		Logger:         a.logger,
		FirstCrawlDone: a.readiness.MarkReady,
	})
	return nil
}

func (a *Application) initLLM(ctx context.Context) {
	if !a.cfg.HasLLMProvider() {
		return
	}
	completer, err := genai.NewCompleter(ctx, genai.ConfigFrom(a.cfg), a.metrics)
	if err != nil {
		a.logger.WithError(err).Warn("Language model initialization failed; using the website template")
		return
	}
	if completer == nil {
		return
	}
	a.completer = completer
	a.llmLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          ratelimit.TypeLLM,
		Burst:         a.cfg.LLMRateBurst,
		RefillRate:    a.cfg.LLMRateRefill / 3600.0, // hourly to per second
		DailyLimit:    a.cfg.LLMRateDaily,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       a.metrics,
	})

	names := make([]string, 0, len(completer.Providers()))
	for _, p := range completer.Providers() {
		names = append(names, p.String())
	}
	a.logger.WithField("providers", names).Info("Language model enabled")
}

func (a *Application) llmResponder() *genai.Responder {
	if a.completer == nil {
		return nil
	}
	return genai.NewResponder(a.completer, a.llmLimiter, a.cfg.LLMMaxTokens, a.cfg.LLMTemperature)
}

func (a *Application) initLINE() error {
	client, err := webhook.NewClient(a.cfg.LineChannelToken)
	if err != nil {
		return fmt.Errorf("line client: %w", err)
	}
	a.userLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          ratelimit.TypeUser,
		Burst:         a.cfg.UserRateBurst,
		RefillRate:    a.cfg.UserRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       a.metrics,
	})
	h, err := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret: a.cfg.LineChannelSecret,
		Client:        client,
		Assistant:     a.assistant,
		Sessions:      a.sessions,
		UserLimiter:   a.userLimiter,
		Timeout:       a.cfg.WebhookTimeout,
		Metrics:       a.metrics,
		Logger:        a.logger,
	})
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	a.webhookHandler = h
	a.logger.Info("LINE webhook enabled")
	return nil
}

// Handler returns the HTTP handler.
func (a *Application) Handler() http.Handler { return a.server.Handler }

func (a *Application) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(requestIDMiddleware(), securityHeadersMiddleware(), loggingMiddleware(a.logger, a.metrics))

	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	if a.webhookHandler != nil {
		router.POST("/callback", a.webhookHandler.Handle)
	}

	api := router.Group("/api/v1", rateLimitMiddleware(a.apiLimiter), bodyLimitMiddleware(maxBodyBytes))
	api.GET("/quick-links", a.listQuickLinks)
	api.POST("/sessions", a.createSession)
	api.DELETE("/sessions/:id", a.deleteSession)
	api.POST("/sessions/:id/messages", a.postMessage)
	api.POST("/sessions/:id/reset", a.resetSession)
	api.POST("/sessions/:id/quick-links/:link", a.postQuickLink)

	return router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheckTimeout)
	defer cancel()

	if !a.readiness.IsReady() {
		st := a.readiness.Status()
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": st.Reason,
			"progress": gin.H{
				"elapsed_seconds": st.ElapsedSeconds,
				"grace_seconds":   st.GraceSeconds,
			},
		})
		return
	}

	body := gin.H{
		"status":     "ready",
		"knowledge":  a.knowledge.Source(),
		"responders": a.assistant.Responders(),
		"features": gin.H{
			"site_pages": a.db != nil,
			"llm":        a.completer != nil,
			"line":       a.webhookHandler != nil,
		},
	}
	if a.db != nil {
		if err := a.db.Ping(ctx); err != nil {
			a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database unavailable",
			})
			return
		}
		if n, err := a.db.CountPages(ctx); err == nil {
			body["cached_pages"] = n
		}
		body["indexed_pages"] = a.pageIndex.Len()
		body["first_crawl_done"] = a.readiness.Completed()
	}
	c.JSON(http.StatusOK, body)
}

// Run starts the HTTP server and background jobs and blocks until SIGINT
// or SIGTERM, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	serverErr := a.startHTTPServer()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErr:
		a.logger.WithError(err).Error("HTTP server stopped unexpectedly")
	}

	return a.Shutdown(cancel)
}

func (a *Application) startBackgroundJobs(ctx context.Context) {
	if a.reloader != nil {
		a.wg.Go(func() { a.reloader.Run(ctx, config.KnowledgeReloadInterval) })
	}
	if a.crawler != nil {
		a.wg.Go(func() { a.crawler.Run(ctx, a.cfg.CrawlInterval) })
		a.wg.Go(func() { a.updateGauges(ctx) })
	}
}

func (a *Application) startHTTPServer() <-chan error {
	errc := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	return errc
}

// Shutdown stops the server, waits for LINE events, stops background jobs
// via stopJobs and releases every resource.
func (a *Application) Shutdown(stopJobs context.CancelFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if a.webhookHandler != nil {
		a.logger.Info("Waiting for webhook events to complete...")
		if err := a.webhookHandler.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
		}
	}

	stopJobs()
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Background jobs stopped")

	a.close()

	sentry.Flush(config.SentryFlush)
	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(ctx); err != nil {
		return fmt.Errorf("flush logs: %w", err)
	}
	return nil
}

// close releases resources; nil members are skipped.
func (a *Application) close() {
	if a.sessions != nil {
		a.sessions.Stop()
	}
	for _, l := range []*ratelimit.KeyedLimiter{a.apiLimiter, a.userLimiter, a.llmLimiter} {
		if l != nil {
			l.Stop()
		}
	}
	if err := a.completer.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "llm").Error("Component close error")
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "database").Error("Component close error")
		}
	}
}

// updateGauges refreshes the cached page gauge.
func (a *Application) updateGauges(ctx context.Context) {
	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := a.db.CountPages(ctx); err == nil {
				a.metrics.SetCachedPages(n)
			}
		}
	}
}
