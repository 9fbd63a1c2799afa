package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Exhaustion error messages. "No providers available" and "all providers
// failed" are distinct operator-facing conditions and must stay
// distinguishable.
const (
	msgNoProvidersAvailable = "no chat providers available"
	msgAllProvidersFailed   = "all chat providers failed"
)

// Manager tries vision-capable chat providers in a configured fallback
// order, skipping unavailable ones.
type Manager struct {
	providers []ChatProvider
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewManager builds a manager over the given providers. Order is the
// fallback order.
func NewManager(providers []ChatProvider, logger zerolog.Logger) *Manager {
	return &Manager{
		providers: providers,
		logger:    logger.With().Str("component", "provider_manager").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/mathgrade-go-api/internal/provider/manager"),
	}
}

// AvailableProviders returns the names of providers with valid credentials,
// in fallback order.
func (m *Manager) AvailableProviders() []string {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		if p.IsAvailable() {
			names = append(names, p.Name())
		}
	}
	return names
}

// ProviderNames returns every configured provider name in fallback order,
// available or not.
func (m *Manager) ProviderNames() []string {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.Name())
	}
	return names
}

// IsProviderAvailable reports whether the named provider is configured.
func (m *Manager) IsProviderAvailable(name string) bool {
	for _, p := range m.providers {
		if p.Name() == name {
			return p.IsAvailable()
		}
	}
	return false
}

// PrimaryProvider returns the first available provider in fallback order.
func (m *Manager) PrimaryProvider() (string, bool) {
	for _, p := range m.providers {
		if p.IsAvailable() {
			return p.Name(), true
		}
	}
	return "", false
}

// AnalyzeImage tries each available provider in fallback order until one
// succeeds. Latency covers the full attempt sequence, success or failure.
func (m *Manager) AnalyzeImage(parent context.Context, image *ImageInput, prompt, systemPrompt string) AnalyzeResult {
	ctx, span := m.tracer.Start(parent, "provider_manager.analyze_image")
	defer span.End()

	start := time.Now()
	attempts := 0

	for _, p := range m.providers {
		if !p.IsAvailable() {
			continue
		}
		attempts++

		result := p.Analyze(ctx, image, prompt, systemPrompt)
		if result.Success {
			span.SetAttributes(
				attribute.String("provider", p.Name()),
				attribute.Int("attempts", attempts),
			)
			fallbackDepth.WithLabelValues("success").Observe(float64(attempts))
			result.LatencyMs = time.Since(start).Milliseconds()
			result.Attempts = attempts
			return result
		}

		m.logger.Warn().
			Str("provider", p.Name()).
			Str("error", result.Error).
			Msg("chat provider failed, falling back")
	}

	latency := time.Since(start).Milliseconds()
	if attempts == 0 {
		return AnalyzeResult{Error: msgNoProvidersAvailable, LatencyMs: latency}
	}
	fallbackDepth.WithLabelValues("exhausted").Observe(float64(attempts))
	return AnalyzeResult{
		Error:     fmt.Sprintf("%s (%d attempted)", msgAllProvidersFailed, attempts),
		LatencyMs: latency,
		Attempts:  attempts,
	}
}
