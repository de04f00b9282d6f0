// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "NNRG_PORT"
	EnvLogLevel        = "NNRG_LOG_LEVEL"
	EnvShutdownTimeout = "NNRG_SHUTDOWN_TIMEOUT"
	EnvServerName      = "NNRG_SERVER_NAME"

	// Knowledge
	EnvKnowledgeFile      = "NNRG_KNOWLEDGE_FILE"
	EnvKnowledgeObjectKey = "NNRG_KNOWLEDGE_OBJECT_KEY"
	EnvTimezone           = "NNRG_TIMEZONE"

	// Conversation
	EnvSessionTTL      = "NNRG_SESSION_TTL"
	EnvTurnTimeout     = "NNRG_TURN_TIMEOUT"
	EnvMemoryThreshold = "NNRG_MEMORY_THRESHOLD"

	// Data
	EnvDataDir = "NNRG_DATA_DIR"
	EnvPageTTL = "NNRG_PAGE_TTL"

	// Site responders and crawler
	EnvSiteEnabled   = "NNRG_SITE_ENABLED"
	EnvSiteBaseURL   = "NNRG_SITE_BASE_URL"
	EnvSitePages     = "NNRG_SITE_PAGES"
	EnvSiteMinScore  = "NNRG_SITE_MIN_SCORE"
	EnvCrawlInterval = "NNRG_CRAWL_INTERVAL"

	// Scraper
	EnvScraperTimeout    = "NNRG_SCRAPER_TIMEOUT"
	EnvScraperMaxRetries = "NNRG_SCRAPER_MAX_RETRIES"

	// Rate Limits
	EnvAPIRateBurst   = "NNRG_API_RATE_BURST"
	EnvAPIRateRefill  = "NNRG_API_RATE_REFILL"
	EnvUserRateBurst  = "NNRG_USER_RATE_BURST"
	EnvUserRateRefill = "NNRG_USER_RATE_REFILL"
	EnvLLMRateBurst   = "NNRG_LLM_RATE_BURST"
	EnvLLMRateRefill  = "NNRG_LLM_RATE_REFILL"
	EnvLLMRateDaily   = "NNRG_LLM_RATE_DAILY"

	// LINE channel
	EnvLineChannelAccessToken = "NNRG_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "NNRG_LINE_CHANNEL_SECRET"
	EnvWebhookTimeout         = "NNRG_WEBHOOK_TIMEOUT"

	// Language model
	EnvLLMProviders   = "NNRG_LLM_PROVIDERS"
	EnvLLMMaxTokens   = "NNRG_LLM_MAX_TOKENS"
	EnvLLMTemperature = "NNRG_LLM_TEMPERATURE"
	EnvOpenAIAPIKey   = "NNRG_OPENAI_API_KEY"
	EnvOpenAIModel    = "NNRG_OPENAI_MODEL"
	EnvGroqAPIKey     = "NNRG_GROQ_API_KEY"
	EnvGroqModel      = "NNRG_GROQ_MODEL"
	EnvCerebrasAPIKey = "NNRG_CEREBRAS_API_KEY"
	EnvCerebrasModel  = "NNRG_CEREBRAS_MODEL"
	EnvGeminiAPIKey   = "NNRG_GEMINI_API_KEY"
	EnvGeminiModel    = "NNRG_GEMINI_MODEL"

	// R2 object storage
	EnvR2AccountID       = "NNRG_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "NNRG_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "NNRG_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "NNRG_R2_BUCKET_NAME"
	EnvR2Endpoint        = "NNRG_R2_ENDPOINT"

	// Sentry
	EnvSentryToken       = "NNRG_SENTRY_TOKEN"
	EnvSentryHost        = "NNRG_SENTRY_HOST"
	EnvSentryEnvironment = "NNRG_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "NNRG_SENTRY_SAMPLE_RATE"

	// Better Stack
	EnvBetterStackToken    = "NNRG_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "NNRG_BETTERSTACK_ENDPOINT"

	// Metrics auth
	EnvMetricsUsername = "NNRG_METRICS_USERNAME"
	EnvMetricsPassword = "NNRG_METRICS_PASSWORD"
)
