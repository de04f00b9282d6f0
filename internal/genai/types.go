// Package genai answers open questions with a language model.
//
// Providers:
//   - OpenAI, Groq and Cerebras through github.com/openai/openai-go/v3
//     (OpenAI-compatible chat completions)
//   - Gemini through google.golang.org/genai
//
// Fallback happens in two layers: the same provider is retried with
// full-jitter backoff, then the next provider in the chain is tried.
package genai

import (
	"context"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderGroq     Provider = "groq"
	ProviderCerebras Provider = "cerebras"
	ProviderGemini   Provider = "gemini"
)

// ProviderEndpoint is the base URL of each OpenAI-compatible provider.
var ProviderEndpoint = map[Provider]string{
	ProviderOpenAI:   "https://api.openai.com/v1/",
	ProviderGroq:     "https://api.groq.com/openai/v1/",
	ProviderCerebras: "https://api.cerebras.ai/v1/",
}

// DefaultModels is the model used when none is configured.
var DefaultModels = map[Provider]string{
	ProviderOpenAI:   "gpt-3.5-turbo",
	ProviderGroq:     "llama-3.1-8b-instant",
	ProviderCerebras: "llama3.1-8b",
	ProviderGemini:   "gemini-2.5-flash",
}

// IsOpenAICompatible returns true if the provider uses OpenAI-compatible API.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

func (p Provider) String() string {
	return string(p)
}

// Role of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior chat message.
type Message struct {
	Role    Role
	Content string
}

// Request is a provider-neutral chat completion request.
type Request struct {
	System      string
	Messages    []Message // history then the current query, oldest first
	MaxTokens   int
	Temperature float64
}

// Completer generates a reply for a chat request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() Provider
	Close() error
}

// RetryConfig defines retry behavior for LLM API calls.
type RetryConfig struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// ProviderConfig holds the settings of one provider.
type ProviderConfig struct {
	Provider Provider
	APIKey   string
	Model    string
	// BaseURL overrides the provider endpoint; tests only.
	BaseURL string
}

// Retry configuration defaults
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 4 * time.Second
	DefaultMaxTokens         = 500
	DefaultTemperature       = 0.7
	// HistoryTurns is how many prior turns are sent with a request.
	HistoryTurns = 5
)

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}
