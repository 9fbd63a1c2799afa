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

const mathpixEndpoint = "https://api.mathpix.com/v3/text"

// MathpixConfig configures the dedicated math-OCR adapter.
type MathpixConfig struct {
	AppID    string
	AppKey   string
	Endpoint string
	Logger   zerolog.Logger
}

// MathpixProvider implements OCRProvider against the Mathpix text API.
type MathpixProvider struct {
	cfg    MathpixConfig
	httpc  *http.Client
	logger zerolog.Logger
}

// NewMathpixProvider builds the adapter.
func NewMathpixProvider(cfg MathpixConfig) *MathpixProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = mathpixEndpoint
	}
	return &MathpixProvider{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: 30 * time.Second},
		logger: cfg.Logger.With().Str("component", "mathpix_provider").Logger(),
	}
}

// Name implements OCRProvider.
func (p *MathpixProvider) Name() string { return "mathpix" }

// IsAvailable implements OCRProvider.
func (p *MathpixProvider) IsAvailable() bool {
	return p.cfg.AppID != "" && p.cfg.AppKey != ""
}

// ExtractMath runs OCR over the image handle.
func (p *MathpixProvider) ExtractMath(ctx context.Context, image ImageInput) OCRResult {
	if !p.IsAvailable() {
		return OCRResult{Error: "mathpix is not configured"}
	}

	body := map[string]any{
		"src":     image.DataURL(),
		"formats": []string{"text", "latex_styled"},
		"ocr":     []string{"math", "text"},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return OCRResult{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("app_id", p.cfg.AppID)
	req.Header.Set("app_key", p.cfg.AppKey)

	start := time.Now()
	resp, err := p.httpc.Do(req)
	requestDuration.WithLabelValues(p.Name(), "ocr").Observe(time.Since(start).Seconds())
	if err != nil {
		requestFailures.WithLabelValues(p.Name(), "ocr").Inc()
		return OCRResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		requestFailures.WithLabelValues(p.Name(), "ocr").Inc()
		raw, _ := io.ReadAll(resp.Body)
		return OCRResult{Error: fmt.Sprintf("mathpix %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}

	var out struct {
		Text        string  `json:"text"`
		LatexStyled string  `json:"latex_styled"`
		Confidence  float64 `json:"confidence"`
		Error       string  `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		requestFailures.WithLabelValues(p.Name(), "ocr").Inc()
		return OCRResult{Error: "mathpix: bad response body: " + err.Error()}
	}
	if out.Error != "" {
		requestFailures.WithLabelValues(p.Name(), "ocr").Inc()
		return OCRResult{Error: "mathpix: " + out.Error}
	}

	return OCRResult{
		Success:    true,
		Text:       out.Text,
		LaTeX:      out.LatexStyled,
		Confidence: out.Confidence,
	}
}
