package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 20*time.Second, cfg.TurnTimeout)
	assert.InDelta(t, 0.7, cfg.MemoryThreshold, 1e-9)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAIModel)
	assert.Equal(t, 500, cfg.LLMMaxTokens)
	assert.InDelta(t, 0.7, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, DefaultSitePages, cfg.SitePages)
	assert.False(t, cfg.SiteEnabled)
	assert.False(t, cfg.HasLLMProvider())
	assert.False(t, cfg.LINEEnabled())
	assert.False(t, cfg.R2Enabled())
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(EnvPort, "9000")
	t.Setenv(EnvSessionTTL, "5m")
	t.Setenv(EnvMemoryThreshold, "0.8")
	t.Setenv(EnvSiteEnabled, "true")
	t.Setenv(EnvSitePages, " /a/ , ,/B/ ")
	t.Setenv(EnvGroqAPIKey, "gsk")
	t.Setenv(EnvGeminiAPIKey, "gem")
	t.Setenv(EnvScraperMaxRetries, "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.InDelta(t, 0.8, cfg.MemoryThreshold, 1e-9)
	assert.True(t, cfg.SiteEnabled)
	assert.Equal(t, []string{"/a/", "/B/"}, cfg.SitePages)
	assert.Equal(t, []string{ProviderGroq, ProviderGemini}, cfg.LLMProviders)
	assert.Equal(t, 3, cfg.ScraperMaxRetries)
	assert.Equal(t, "gsk", cfg.ProviderAPIKey(ProviderGroq))
	assert.Equal(t, "gemini-2.5-flash", cfg.ProviderModel(ProviderGemini))
}

func TestLoadExplicitProviderOrder(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "sk")
	t.Setenv(EnvGeminiAPIKey, "gem")
	t.Setenv(EnvLLMProviders, "Gemini,openai")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{ProviderGemini, ProviderOpenAI}, cfg.LLMProviders)
}

func TestValidateForMode(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadForMode(OfflineMode)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name        string
		mode        ValidationMode
		mutate      func(*Config)
		errContains []string
	}{
		{"defaults are valid for server", ServerMode, func(*Config) {}, nil},
		{
			name:        "bad time zone",
			mode:        OfflineMode,
			mutate:      func(c *Config) { c.Timezone = "Mars/Olympus" },
			errContains: []string{EnvTimezone},
		},
		{
			name:        "threshold out of range",
			mode:        OfflineMode,
			mutate:      func(c *Config) { c.MemoryThreshold = 1.5 },
			errContains: []string{EnvMemoryThreshold},
		},
		{
			name:        "unknown provider and missing key",
			mode:        ServerMode,
			mutate:      func(c *Config) { c.LLMProviders = []string{"bard", ProviderGroq} },
			errContains: []string{`unknown provider "bard"`, `provider "groq" has no API key`},
		},
		{
			name:        "half configured LINE",
			mode:        ServerMode,
			mutate:      func(c *Config) { c.LineChannelToken = "tok" },
			errContains: []string{EnvLineChannelSecret},
		},
		{
			name:        "knowledge object without R2",
			mode:        ServerMode,
			mutate:      func(c *Config) { c.KnowledgeObjectKey = "knowledge.yaml.zst" },
			errContains: []string{EnvKnowledgeObjectKey},
		},
		{
			name:        "sentry token without host",
			mode:        ServerMode,
			mutate:      func(c *Config) { c.SentryToken = "tok" },
			errContains: []string{EnvSentryHost},
		},
		{
			name: "warmup ignores conversation settings",
			mode: WarmupMode,
			mutate: func(c *Config) {
				c.MemoryThreshold = 0
				c.Port = ""
			},
		},
		{
			name: "warmup needs a usable site URL",
			mode: WarmupMode,
			mutate: func(c *Config) {
				c.SiteEnabled = true
				c.SiteBaseURL = "nnrg.edu.in"
			},
			errContains: []string{EnvSiteBaseURL},
		},
		{
			name:        "offline ignores storage settings",
			mode:        OfflineMode,
			mutate:      func(c *Config) { c.DataDir = "" },
			errContains: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.ValidateForMode(tt.mode)
			if len(tt.errContains) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, s := range tt.errContains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestSQLitePath(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/nnrg"}
	assert.Equal(t, "/var/lib/nnrg/pages.db", cfg.SQLitePath())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Nowhere/Special"}
	assert.Equal(t, time.UTC, cfg.Location())
}
