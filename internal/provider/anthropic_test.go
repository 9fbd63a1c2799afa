package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicAnalyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var body struct {
			Model    string `json:"model"`
			System   string `json:"system"`
			Messages []struct {
				Content []struct {
					Type   string         `json:"type"`
					Source map[string]any `json:"source"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-3-5-haiku-latest", body.Model)
		assert.Equal(t, "system prompt", body.System)
		require.Len(t, body.Messages, 1)
		require.Len(t, body.Messages[0].Content, 2)
		assert.Equal(t, "image", body.Messages[0].Content[1].Type)
		assert.Equal(t, "base64", body.Messages[0].Content[1].Source["type"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": `{"result": "ok"}`},
			},
		})
	}))
	defer server.Close()

	p := NewAnthropicProvider(AnthropicConfig{
		APIKey:   "secret-key",
		Endpoint: server.URL,
		Logger:   zerolog.Nop(),
	})

	result := p.Analyze(context.Background(), &ImageInput{Type: "base64", Data: "aGVsbG8=", MimeType: "image/png"}, "prompt", "system prompt")
	require.True(t, result.Success)
	assert.Equal(t, `{"result": "ok"}`, result.Content)
	assert.Equal(t, "anthropic", result.Provider)
}

func TestAnthropicNotConfigured(t *testing.T) {
	p := NewAnthropicProvider(AnthropicConfig{Logger: zerolog.Nop()})

	assert.False(t, p.IsAvailable())
	result := p.Analyze(context.Background(), nil, "prompt", "system")
	require.False(t, result.Success)
	assert.Equal(t, "anthropic is not configured", result.Error)
}

func TestAnthropicUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer server.Close()

	p := NewAnthropicProvider(AnthropicConfig{
		APIKey:   "secret-key",
		Endpoint: server.URL,
		Logger:   zerolog.Nop(),
	})

	result := p.Analyze(context.Background(), nil, "prompt", "system")
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "429")
}

func TestAnthropicEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"content": []map[string]any{}})
	}))
	defer server.Close()

	p := NewAnthropicProvider(AnthropicConfig{
		APIKey:   "secret-key",
		Endpoint: server.URL,
		Logger:   zerolog.Nop(),
	})

	result := p.Analyze(context.Background(), nil, "prompt", "system")
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "empty content")
}
