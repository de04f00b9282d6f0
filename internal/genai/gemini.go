package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// geminiCompleter uses the native Gemini API.
type geminiCompleter struct {
	client *genai.Client
	model  string
}

// newGeminiCompleter returns nil when the API key is empty.
func newGeminiCompleter(ctx context.Context, cfg ProviderConfig) (*geminiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, nil //nolint:nilnil // provider disabled without an API key
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModels[ProviderGemini]
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &geminiCompleter{client: client, model: model}, nil
}

// geminiContents maps chat messages to Gemini contents; the assistant role
// is called "model" there.
func geminiContents(msgs []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

func (c *geminiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens:   int32(req.MaxTokens),
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, geminiContents(req.Messages), config)
	if err != nil {
		return "", WrapError(fmt.Errorf("generate content failed: %w", err), ProviderGemini, 0)
	}

	var text string
	if resp != nil {
		text = strings.TrimSpace(resp.Text())
	}
	if text == "" {
		return "", WrapError(errors.New("empty completion"), ProviderGemini, 0)
	}

	if resp.UsageMetadata != nil {
		slog.DebugContext(ctx, "gemini generation finished",
			"model", c.model,
			"input_tokens", resp.UsageMetadata.PromptTokenCount,
			"output_tokens", resp.UsageMetadata.CandidatesTokenCount,
			"duration_ms", time.Since(start).Milliseconds())
	}
	return text, nil
}

func (c *geminiCompleter) Provider() Provider {
	return ProviderGemini
}

// Close is a no-op; genai.Client needs no explicit cleanup.
func (c *geminiCompleter) Close() error {
	return nil
}
