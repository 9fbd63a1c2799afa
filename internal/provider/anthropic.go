package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const anthropicEndpoint = "https://api.anthropic.com/v1/messages"

// AnthropicConfig configures the Anthropic chat/vision adapter.
type AnthropicConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Logger   zerolog.Logger
}

// AnthropicProvider implements ChatProvider against the Anthropic messages
// API. There is no SDK in the stack, so it speaks raw HTTP.
type AnthropicProvider struct {
	cfg    AnthropicConfig
	httpc  *http.Client
	logger zerolog.Logger
}

// NewAnthropicProvider builds the adapter.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = anthropicEndpoint
	}
	return &AnthropicProvider{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: 60 * time.Second},
		logger: cfg.Logger.With().Str("component", "anthropic_provider").Logger(),
	}
}

// Name implements ChatProvider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// IsAvailable implements ChatProvider.
func (p *AnthropicProvider) IsAvailable() bool { return p.cfg.APIKey != "" }

// Analyze sends the prompt (and optional image) as a messages-API request.
func (p *AnthropicProvider) Analyze(ctx context.Context, image *ImageInput, prompt, systemPrompt string) AnalyzeResult {
	if !p.IsAvailable() {
		return AnalyzeResult{Provider: p.Name(), Error: "anthropic is not configured"}
	}

	content := []map[string]any{
		{"type": "text", "text": prompt},
	}
	if image != nil {
		if image.Type == "url" {
			content = append(content, map[string]any{
				"type":   "image",
				"source": map[string]any{"type": "url", "url": image.Data},
			})
		} else {
			mime := image.MimeType
			if mime == "" {
				if _, sniffed, err := image.Bytes(); err == nil {
					mime = sniffed
				} else {
					mime = "image/jpeg"
				}
			}
			content = append(content, map[string]any{
				"type": "image",
				"source": map[string]any{
					"type":       "base64",
					"media_type": mime,
					"data":       image.Data,
				},
			})
		}
	}

	body := map[string]any{
		"model":      p.cfg.Model,
		"max_tokens": 2048,
		"system":     systemPrompt,
		"messages": []any{
			map[string]any{"role": "user", "content": content},
		},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return AnalyzeResult{Provider: p.Name(), Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := p.httpc.Do(req)
	latency := time.Since(start)
	requestDuration.WithLabelValues(p.Name(), "chat").Observe(latency.Seconds())
	if err != nil {
		requestFailures.WithLabelValues(p.Name(), "chat").Inc()
		return AnalyzeResult{Provider: p.Name(), Error: err.Error(), LatencyMs: latency.Milliseconds()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		requestFailures.WithLabelValues(p.Name(), "chat").Inc()
		raw, _ := io.ReadAll(resp.Body)
		return AnalyzeResult{
			Provider:  p.Name(),
			Error:     fmt.Sprintf("anthropic %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
			LatencyMs: latency.Milliseconds(),
		}
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		requestFailures.WithLabelValues(p.Name(), "chat").Inc()
		return AnalyzeResult{Provider: p.Name(), Error: "anthropic: bad response body: " + err.Error(), LatencyMs: latency.Milliseconds()}
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		requestFailures.WithLabelValues(p.Name(), "chat").Inc()
		return AnalyzeResult{Provider: p.Name(), Error: "anthropic returned empty content", LatencyMs: latency.Milliseconds()}
	}

	return AnalyzeResult{Success: true, Provider: p.Name(), Content: text, LatencyMs: latency.Milliseconds()}
}
