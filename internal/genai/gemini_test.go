package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiContentsRoles(t *testing.T) {
	t.Parallel()
	contents := geminiContents([]Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})
	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "hello", contents[1].Parts[0].Text)
}

func TestGeminiCompleter(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-2.5-flash:generateContent"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
		  "candidates": [{"content": {"role": "model", "parts": [{"text": "The library opens at 9 AM."}]}, "finishReason": "STOP"}],
		  "usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 8, "totalTokenCount": 18}
		}`)
	}))
	t.Cleanup(srv.Close)

	c, err := newGeminiCompleter(context.Background(), ProviderConfig{
		Provider: ProviderGemini,
		APIKey:   "test-key",
		BaseURL:  srv.URL + "/",
	})
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), Request{
		System:      "be helpful",
		Messages:    []Message{{Role: RoleUser, Content: "library timings?"}},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "The library opens at 9 AM.", text)
	assert.Contains(t, body, "systemInstruction")
	assert.Contains(t, body, "contents")
}

func TestNewGeminiCompleterDisabled(t *testing.T) {
	t.Parallel()
	c, err := newGeminiCompleter(context.Background(), ProviderConfig{Provider: ProviderGemini})
	require.NoError(t, err)
	assert.Nil(t, c)
}
