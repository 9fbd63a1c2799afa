package provider

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig configures the OpenAI chat/vision adapter.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIProvider implements ChatProvider against the OpenAI chat completion
// API with vision inputs.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIProvider builds the adapter. A missing API key is not an error:
// the provider simply reports itself unavailable.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	p := &OpenAIProvider{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/mathgrade-go-api/internal/provider/openai"),
		logger: cfg.Logger.With().Str("component", "openai_provider").Logger(),
	}
	if cfg.APIKey != "" {
		p.client = openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey))
	}
	return p
}

// Name implements ChatProvider.
func (p *OpenAIProvider) Name() string { return "openai" }

// IsAvailable implements ChatProvider.
func (p *OpenAIProvider) IsAvailable() bool { return p.client != nil }

// Analyze sends the prompt (and optional image) and returns the raw model
// text. Failures come back as result values, never panics.
func (p *OpenAIProvider) Analyze(parent context.Context, image *ImageInput, prompt, systemPrompt string) AnalyzeResult {
	if !p.IsAvailable() {
		return AnalyzeResult{Provider: p.Name(), Error: "openai is not configured"}
	}

	ctx, span := p.tracer.Start(parent, "openai.analyze", trace.WithAttributes(
		attribute.String("model", p.cfg.Model),
	))
	defer span.End()

	userParts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: prompt},
	}
	if image != nil {
		userParts = append(userParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    image.DataURL(),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	request := openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: userParts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, request)
	latency := time.Since(start)
	requestDuration.WithLabelValues(p.Name(), "chat").Observe(latency.Seconds())

	if err != nil {
		requestFailures.WithLabelValues(p.Name(), "chat").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AnalyzeResult{Provider: p.Name(), Error: err.Error(), LatencyMs: latency.Milliseconds()}
	}
	if len(resp.Choices) == 0 {
		requestFailures.WithLabelValues(p.Name(), "chat").Inc()
		return AnalyzeResult{Provider: p.Name(), Error: "openai returned no choices", LatencyMs: latency.Milliseconds()}
	}

	return AnalyzeResult{
		Success:   true,
		Provider:  p.Name(),
		Content:   strings.TrimSpace(resp.Choices[0].Message.Content),
		LatencyMs: latency.Milliseconds(),
	}
}
