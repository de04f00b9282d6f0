// Package config provides application configuration management.
// It loads settings from a .env file and NNRG_-prefixed environment
// variables, applies defaults and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Kolkata default must resolve on minimal images

	"github.com/joho/godotenv"
)

// ValidationMode selects which settings Validate insists on.
type ValidationMode int

const (
	// ServerMode validates everything the HTTP service needs.
	ServerMode ValidationMode = iota
	// WarmupMode validates only storage and crawler settings.
	WarmupMode
	// OfflineMode validates only knowledge and conversation settings.
	OfflineMode
)

// Known language model provider names.
const (
	ProviderOpenAI   = "openai"
	ProviderGroq     = "groq"
	ProviderCerebras = "cerebras"
	ProviderGemini   = "gemini"
)

var knownProviders = []string{ProviderOpenAI, ProviderGroq, ProviderCerebras, ProviderGemini}

// DefaultSitePages are the site paths crawled when NNRG_SITE_PAGES is unset.
var DefaultSitePages = []string{
	"/", "/about/", "/admissions/", "/departments/", "/facilities/",
	"/facilities/transport/", "/placements/", "/events/", "/contact/",
}

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	ServerName      string

	// Knowledge
	KnowledgeFile      string // local override of the embedded knowledge data
	KnowledgeObjectKey string // R2 object override, ".zst" means zstd-compressed
	Timezone           string // zone used by the computed date and time entries

	// Conversation
	SessionTTL      time.Duration
	TurnTimeout     time.Duration
	MemoryThreshold float64

	// Data
	DataDir string
	PageTTL time.Duration // cached site pages older than this are deleted

	// Site responders and crawler
	SiteEnabled   bool
	SiteBaseURL   string
	SitePages     []string
	SiteMinScore  float64
	CrawlInterval time.Duration

	// Scraper
	ScraperTimeout    time.Duration
	ScraperMaxRetries int

	// Rate limits (token bucket)
	APIRateBurst   float64 // per client IP on the JSON API
	APIRateRefill  float64 // tokens per second
	UserRateBurst  float64 // per LINE user
	UserRateRefill float64 // tokens per second
	LLMRateBurst   float64 // per session
	LLMRateRefill  float64 // tokens per hour
	LLMRateDaily   int     // 0 disables the daily cap

	// LINE channel (optional)
	LineChannelToken  string
	LineChannelSecret string
	WebhookTimeout    time.Duration

	// Language model (optional)
	LLMProviders   []string // order is primary, then fallback
	LLMMaxTokens   int
	LLMTemperature float64
	OpenAIAPIKey   string
	OpenAIModel    string
	GroqAPIKey     string
	GroqModel      string
	CerebrasAPIKey string
	CerebrasModel  string
	GeminiAPIKey   string
	GeminiModel    string

	// R2 (optional)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2Endpoint        string

	// Sentry (optional)
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack logs (optional)
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics basic auth (empty password = no auth)
	MetricsUsername string
	MetricsPassword string
}

// Load reads configuration for the HTTP service.
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration and validates it for mode.
// A .env file in the working directory is loaded first if present.
func LoadForMode(mode ValidationMode) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "8080"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		ServerName:      getEnv(EnvServerName, "nnrg-assistant"),

		KnowledgeFile:      getEnv(EnvKnowledgeFile, ""),
		KnowledgeObjectKey: getEnv(EnvKnowledgeObjectKey, ""),
		Timezone:           getEnv(EnvTimezone, "Asia/Kolkata"),

		SessionTTL:      getDurationEnv(EnvSessionTTL, SessionIdle),
		TurnTimeout:     getDurationEnv(EnvTurnTimeout, TurnProcessing),
		MemoryThreshold: getFloatEnv(EnvMemoryThreshold, 0.7),

		DataDir: getEnv(EnvDataDir, "./data"),
		PageTTL: getDurationEnv(EnvPageTTL, 7*24*time.Hour),

		SiteEnabled:   getBoolEnv(EnvSiteEnabled, false),
		SiteBaseURL:   getEnv(EnvSiteBaseURL, "https://nnrg.edu.in"),
		SitePages:     getListEnv(EnvSitePages, DefaultSitePages),
		SiteMinScore:  getFloatEnv(EnvSiteMinScore, 1.0),
		CrawlInterval: getDurationEnv(EnvCrawlInterval, CrawlInterval),

		ScraperTimeout:    getDurationEnv(EnvScraperTimeout, ScraperRequest),
		ScraperMaxRetries: getIntEnv(EnvScraperMaxRetries, 3),

		APIRateBurst:   getFloatEnv(EnvAPIRateBurst, 30),
		APIRateRefill:  getFloatEnv(EnvAPIRateRefill, 1),
		UserRateBurst:  getFloatEnv(EnvUserRateBurst, 15),
		UserRateRefill: getFloatEnv(EnvUserRateRefill, 0.1), // 1 per 10s
		LLMRateBurst:   getFloatEnv(EnvLLMRateBurst, 20),
		LLMRateRefill:  getFloatEnv(EnvLLMRateRefill, 20),
		LLMRateDaily:   getIntEnv(EnvLLMRateDaily, 100),

		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),
		WebhookTimeout:    getDurationEnv(EnvWebhookTimeout, WebhookProcessing),

		LLMMaxTokens:   getIntEnv(EnvLLMMaxTokens, 500),
		LLMTemperature: getFloatEnv(EnvLLMTemperature, 0.7),
		OpenAIAPIKey:   getEnv(EnvOpenAIAPIKey, ""),
		OpenAIModel:    getEnv(EnvOpenAIModel, "gpt-3.5-turbo"),
		GroqAPIKey:     getEnv(EnvGroqAPIKey, ""),
		GroqModel:      getEnv(EnvGroqModel, "llama-3.1-8b-instant"),
		CerebrasAPIKey: getEnv(EnvCerebrasAPIKey, ""),
		CerebrasModel:  getEnv(EnvCerebrasModel, "llama3.1-8b"),
		GeminiAPIKey:   getEnv(EnvGeminiAPIKey, ""),
		GeminiModel:    getEnv(EnvGeminiModel, "gemini-2.5-flash"),

		R2AccountID:       getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:      getEnv(EnvR2BucketName, ""),
		R2Endpoint:        getEnv(EnvR2Endpoint, ""),

		SentryToken:       getEnv(EnvSentryToken, ""),
		SentryHost:        getEnv(EnvSentryHost, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),
	}
	for _, p := range getListEnv(EnvLLMProviders, cfg.configuredProviders()) {
		cfg.LLMProviders = append(cfg.LLMProviders, strings.ToLower(p))
	}

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// configuredProviders lists providers with an API key, in default priority.
func (c *Config) configuredProviders() []string {
	var out []string
	for _, p := range knownProviders {
		if c.ProviderAPIKey(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration for ServerMode.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode checks the settings mode depends on and joins every problem.
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if mode == ServerMode || mode == OfflineMode {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("%s: unknown time zone %q", EnvTimezone, c.Timezone))
		}
		if c.MemoryThreshold <= 0 || c.MemoryThreshold > 1 {
			errs = append(errs, fmt.Errorf("%s must be in (0, 1], got %v", EnvMemoryThreshold, c.MemoryThreshold))
		}
		if c.TurnTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvTurnTimeout, c.TurnTimeout))
		}
		if c.KnowledgeObjectKey != "" && !c.R2Enabled() {
			errs = append(errs, fmt.Errorf("%s requires R2 credentials", EnvKnowledgeObjectKey))
		}
		for _, p := range c.LLMProviders {
			if !slices.Contains(knownProviders, p) {
				errs = append(errs, fmt.Errorf("%s: unknown provider %q", EnvLLMProviders, p))
			} else if c.ProviderAPIKey(p) == "" {
				errs = append(errs, fmt.Errorf("%s: provider %q has no API key", EnvLLMProviders, p))
			}
		}
		if c.LLMMaxTokens <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvLLMMaxTokens, c.LLMMaxTokens))
		}
	}

	if mode == ServerMode {
		if c.Port == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvPort))
		}
		if c.SessionTTL <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvSessionTTL, c.SessionTTL))
		}
		if (c.LineChannelToken == "") != (c.LineChannelSecret == "") {
			errs = append(errs, fmt.Errorf("%s and %s must be set together", EnvLineChannelAccessToken, EnvLineChannelSecret))
		}
		if c.SentryToken != "" && c.SentryHost == "" {
			errs = append(errs, fmt.Errorf("%s is required when %s is set", EnvSentryHost, EnvSentryToken))
		}
		if c.APIRateBurst <= 0 || c.UserRateBurst <= 0 || c.LLMRateBurst <= 0 {
			errs = append(errs, errors.New("rate limit bursts must be positive"))
		}
	}

	if mode == ServerMode || mode == WarmupMode {
		if c.DataDir == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
		}
		if c.PageTTL <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvPageTTL, c.PageTTL))
		}
		if c.ScraperTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvScraperTimeout, c.ScraperTimeout))
		}
		if c.ScraperMaxRetries < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvScraperMaxRetries, c.ScraperMaxRetries))
		}
		if c.SiteEnabled && !strings.HasPrefix(c.SiteBaseURL, "http") {
			errs = append(errs, fmt.Errorf("%s must be an http(s) URL, got %q", EnvSiteBaseURL, c.SiteBaseURL))
		}
		if c.SiteEnabled && c.CrawlInterval <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvCrawlInterval, c.CrawlInterval))
		}
	}

	return errors.Join(errs...)
}

// ProviderAPIKey returns the API key configured for provider.
func (c *Config) ProviderAPIKey(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderGroq:
		return c.GroqAPIKey
	case ProviderCerebras:
		return c.CerebrasAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	}
	return ""
}

// ProviderModel returns the model configured for provider.
func (c *Config) ProviderModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return c.OpenAIModel
	case ProviderGroq:
		return c.GroqModel
	case ProviderCerebras:
		return c.CerebrasModel
	case ProviderGemini:
		return c.GeminiModel
	}
	return ""
}

// HasLLMProvider returns true if at least one provider is selected.
func (c *Config) HasLLMProvider() bool {
	return len(c.LLMProviders) > 0
}

// LINEEnabled reports whether the LINE webhook should be mounted.
func (c *Config) LINEEnabled() bool {
	return c.LineChannelToken != "" && c.LineChannelSecret != ""
}

// R2Enabled reports whether all R2 credentials are present.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// Location returns the configured time zone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "pages.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv accepts anything strconv.ParseBool does.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, dropping blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
