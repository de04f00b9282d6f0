package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiCompleter talks to any OpenAI-compatible chat completions API.
type openaiCompleter struct {
	client   openai.Client
	model    string
	provider Provider
}

// newOpenAICompleter returns nil when the API key is empty.
func newOpenAICompleter(cfg ProviderConfig) (*openaiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, nil //nolint:nilnil // provider disabled without an API key
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		var ok bool
		if baseURL, ok = ProviderEndpoint[cfg.Provider]; !ok {
			return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", cfg.Provider)
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModels[cfg.Provider]
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0), // retries are handled by the fallback chain
	)

	return &openaiCompleter{client: client, model: model, provider: cfg.Provider}, nil
}

func (c *openaiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	messages = append(messages, openai.SystemMessage(req.System))
	for _, m := range req.Messages {
		if m.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(req.Temperature),
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		wrapped := &LLMError{Err: fmt.Errorf("chat completion failed: %w", err), Provider: c.provider}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			wrapped.StatusCode = apiErr.StatusCode
			if apiErr.Response != nil {
				wrapped.RetryAfter = ParseRetryAfter(apiErr.Response.Header)
			}
		}
		return "", wrapped
	}

	if len(resp.Choices) == 0 {
		return "", WrapError(errors.New("empty completion"), c.provider, 0)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", WrapError(errors.New("empty completion"), c.provider, 0)
	}

	slog.DebugContext(ctx, "chat completion finished",
		"provider", c.provider,
		"model", c.model,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds())

	return text, nil
}

func (c *openaiCompleter) Provider() Provider {
	if c == nil {
		return ""
	}
	return c.provider
}

// Close is a no-op; the openai-go client holds no resources.
func (c *openaiCompleter) Close() error {
	return nil
}
