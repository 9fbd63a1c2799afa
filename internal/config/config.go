package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	RedisURL string
	NATSURL  string

	OpenAIAPIKey    string
	OpenAIModel     string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	MathpixAppID    string
	MathpixAppKey   string
	WolframAppID    string

	// FallbackOrder lists chat providers in the order they are tried.
	FallbackOrder []string

	RequireOCR         bool
	EnableVerification bool
	TrackCosts         bool

	ProviderTimeout time.Duration
	SolveCacheTTL   time.Duration

	WorkerEnabled      bool
	WorkerPollInterval time.Duration
	WorkerMaxLease     time.Duration
	WorkerMaxAttempts  int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MATHGRADE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "MathGrade API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("fallback.order", "openai,gemini,anthropic")
	v.SetDefault("require.ocr", false)
	v.SetDefault("enable.verification", true)
	v.SetDefault("track.costs", true)
	v.SetDefault("provider.timeout", "60s")
	v.SetDefault("solve.cache_ttl", "1h")
	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.poll_interval", "2s")
	v.SetDefault("worker.max_lease", "5m")
	v.SetDefault("worker.max_attempts", 3)

	providerTimeout, err := time.ParseDuration(v.GetString("provider.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid provider timeout: %w", err)
	}

	solveTTL, err := time.ParseDuration(v.GetString("solve.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid solve cache ttl: %w", err)
	}

	pollInterval, err := time.ParseDuration(v.GetString("worker.poll_interval"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid worker poll interval: %w", err)
	}

	maxLease, err := time.ParseDuration(v.GetString("worker.max_lease"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid worker max lease: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		OpenAIAPIKey:       v.GetString("openai.api_key"),
		OpenAIModel:        v.GetString("openai.model"),
		GeminiAPIKey:       v.GetString("gemini.api_key"),
		GeminiModel:        v.GetString("gemini.model"),
		AnthropicAPIKey:    v.GetString("anthropic.api_key"),
		AnthropicModel:     v.GetString("anthropic.model"),
		MathpixAppID:       v.GetString("mathpix.app_id"),
		MathpixAppKey:      v.GetString("mathpix.app_key"),
		WolframAppID:       v.GetString("wolfram.app_id"),
		FallbackOrder:      splitList(v.GetString("fallback.order")),
		RequireOCR:         v.GetBool("require.ocr"),
		EnableVerification: v.GetBool("enable.verification"),
		TrackCosts:         v.GetBool("track.costs"),
		ProviderTimeout:    providerTimeout,
		SolveCacheTTL:      solveTTL,
		WorkerEnabled:      v.GetBool("worker.enabled"),
		WorkerPollInterval: pollInterval,
		WorkerMaxLease:     maxLease,
		WorkerMaxAttempts:  v.GetInt("worker.max_attempts"),
	}

	if len(cfg.FallbackOrder) == 0 {
		cfg.FallbackOrder = []string{"openai", "gemini", "anthropic"}
	}

	return cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(p)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
