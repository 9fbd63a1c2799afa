package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
)

// GeminiConfig configures the Gemini chat/vision adapter.
type GeminiConfig struct {
	APIKey string
	Model  string
	Logger zerolog.Logger
}

// GeminiProvider implements ChatProvider against the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	httpc  *http.Client
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// maxRemoteImageBytes caps url-type image downloads.
const maxRemoteImageBytes = 20 << 20

// NewGeminiProvider builds the adapter. Client construction failures are
// logged and surface as unavailability rather than as startup errors.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) *GeminiProvider {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	p := &GeminiProvider{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: 30 * time.Second},
		tracer: otel.Tracer("github.com/noah-isme/mathgrade-go-api/internal/provider/gemini"),
		logger: cfg.Logger.With().Str("component", "gemini_provider").Logger(),
	}
	if cfg.APIKey == "" {
		return p
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to construct gemini client")
		return p
	}
	p.client = client
	return p
}

// Name implements ChatProvider.
func (p *GeminiProvider) Name() string { return "gemini" }

// IsAvailable implements ChatProvider.
func (p *GeminiProvider) IsAvailable() bool { return p.client != nil }

// Close releases the underlying client.
func (p *GeminiProvider) Close() {
	if p.client != nil {
		_ = p.client.Close()
	}
}

// Analyze sends the prompt (and optional image) to Gemini in JSON mode.
func (p *GeminiProvider) Analyze(parent context.Context, image *ImageInput, prompt, systemPrompt string) AnalyzeResult {
	if !p.IsAvailable() {
		return AnalyzeResult{Provider: p.Name(), Error: "gemini is not configured"}
	}

	ctx, span := p.tracer.Start(parent, "gemini.analyze", trace.WithAttributes(
		attribute.String("model", p.cfg.Model),
	))
	defer span.End()

	model := p.client.GenerativeModel(p.cfg.Model)
	model.ResponseMIMEType = "application/json"
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}

	parts := []genai.Part{genai.Text(prompt)}
	if image != nil {
		part, err := p.imagePart(ctx, *image)
		if err != nil {
			return AnalyzeResult{Provider: p.Name(), Error: err.Error()}
		}
		parts = append(parts, part)
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, parts...)
	latency := time.Since(start)
	requestDuration.WithLabelValues(p.Name(), "chat").Observe(latency.Seconds())

	if err != nil {
		requestFailures.WithLabelValues(p.Name(), "chat").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AnalyzeResult{Provider: p.Name(), Error: err.Error(), LatencyMs: latency.Milliseconds()}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		requestFailures.WithLabelValues(p.Name(), "chat").Inc()
		return AnalyzeResult{Provider: p.Name(), Error: "gemini returned no candidates", LatencyMs: latency.Milliseconds()}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	return AnalyzeResult{
		Success:   true,
		Provider:  p.Name(),
		Content:   strings.TrimSpace(sb.String()),
		LatencyMs: latency.Milliseconds(),
	}
}

// imagePart converts the image handle into a genai part. The API takes
// inline bytes only, so url-type handles are downloaded first.
func (p *GeminiProvider) imagePart(ctx context.Context, image ImageInput) (genai.Part, error) {
	if image.Type == "url" {
		return p.fetchRemoteImage(ctx, image)
	}
	raw, mime, err := image.Bytes()
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image payload: %w", err)
	}
	return genai.Blob{MIMEType: mime, Data: raw}, nil
}

func (p *GeminiProvider) fetchRemoteImage(ctx context.Context, image ImageInput) (genai.Part, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, image.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image url: %w", err)
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image url: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteImageBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch image url: %w", err)
	}

	mime := image.MimeType
	if mime == "" {
		mime = mimetype.Detect(raw).String()
	}
	return genai.Blob{MIMEType: mime, Data: raw}, nil
}
