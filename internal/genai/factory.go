package genai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/config"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/metrics"
)

// Config configures the provider chain.
type Config struct {
	// Providers in fallback order; entries without an API key are skipped.
	Providers   []ProviderConfig
	Retry       RetryConfig
	MaxTokens   int
	Temperature float64
}

// ConfigFrom builds a Config from application settings.
func ConfigFrom(cfg *config.Config) Config {
	out := Config{
		Retry: RetryConfig{
			MaxAttempts:  DefaultMaxRetryAttempts,
			InitialDelay: config.LLMRetryInitial,
			MaxDelay:     config.LLMRetryMax,
		},
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	}
	for _, name := range cfg.LLMProviders {
		out.Providers = append(out.Providers, ProviderConfig{
			Provider: Provider(name),
			APIKey:   cfg.ProviderAPIKey(name),
			Model:    cfg.ProviderModel(name),
		})
	}
	return out
}

// NewCompleter builds the fallback chain. It returns nil, nil when no
// provider has an API key.
func NewCompleter(ctx context.Context, cfg Config, m *metrics.Metrics) (*FallbackCompleter, error) {
	var chain []Completer
	for _, pc := range cfg.Providers {
		if pc.APIKey == "" {
			continue
		}
		c, err := newCompleter(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.Provider, err)
		}
		chain = append(chain, c)
	}

	if len(chain) == 0 {
		slog.InfoContext(ctx, "no language model provider configured")
		return nil, nil //nolint:nilnil // language model disabled
	}

	f := NewFallbackCompleter(cfg.Retry, m, chain...)
	slog.InfoContext(ctx, "language model configured",
		"primary", f.Provider(),
		"chain_size", len(chain))
	return f, nil
}

func newCompleter(ctx context.Context, pc ProviderConfig) (Completer, error) {
	switch {
	case pc.Provider == ProviderGemini:
		return newGeminiCompleter(ctx, pc)
	case pc.Provider.IsOpenAICompatible():
		return newOpenAICompleter(pc)
	default:
		return nil, fmt.Errorf("unknown provider %q", pc.Provider)
	}
}
