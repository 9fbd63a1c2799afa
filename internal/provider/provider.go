// Package provider contains the capability interfaces for the external
// OCR, chat-completion and symbolic-solver backends, the concrete vendor
// adapters, and the ordered-fallback manager for vision-capable chat calls.
package provider

import (
	"context"
	"encoding/base64"

	"github.com/gabriel-vasile/mimetype"
)

// ImageInput is the opaque image handle passed through the pipeline. The
// core never decodes images beyond sniffing the mime type.
type ImageInput struct {
	Type     string `json:"type" validate:"required,oneof=base64 url"`
	Data     string `json:"data" validate:"required"`
	MimeType string `json:"mime_type,omitempty"`
}

// DataURL renders the handle as a data URL (for base64 inputs) or returns
// the URL unchanged. Missing mime types are sniffed from the payload.
func (i ImageInput) DataURL() string {
	if i.Type == "url" {
		return i.Data
	}
	mime := i.MimeType
	if mime == "" {
		if raw, err := base64.StdEncoding.DecodeString(i.Data); err == nil {
			mime = mimetype.Detect(raw).String()
		} else {
			mime = "image/jpeg"
		}
	}
	return "data:" + mime + ";base64," + i.Data
}

// Bytes decodes a base64 handle into raw bytes plus mime type.
func (i ImageInput) Bytes() ([]byte, string, error) {
	raw, err := base64.StdEncoding.DecodeString(i.Data)
	if err != nil {
		return nil, "", err
	}
	mime := i.MimeType
	if mime == "" {
		mime = mimetype.Detect(raw).String()
	}
	return raw, mime, nil
}

// AnalyzeResult is the unified outcome of a chat/vision call.
type AnalyzeResult struct {
	Success   bool   `json:"success"`
	Content   string `json:"content,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
	Provider  string `json:"provider,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
}

// OCRResult is the outcome of a dedicated math-OCR extraction.
type OCRResult struct {
	Success    bool    `json:"success"`
	LaTeX      string  `json:"latex,omitempty"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// SolveResult is the outcome of a symbolic solver call.
type SolveResult struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ChatProvider is a vision-capable chat-completion backend.
type ChatProvider interface {
	Name() string
	// IsAvailable is a pure configuration check, no network call.
	IsAvailable() bool
	Analyze(ctx context.Context, image *ImageInput, prompt, systemPrompt string) AnalyzeResult
}

// OCRProvider extracts math text/LaTeX from an image.
type OCRProvider interface {
	Name() string
	IsAvailable() bool
	ExtractMath(ctx context.Context, image ImageInput) OCRResult
}

// SymbolicSolver evaluates or solves a math expression and returns a
// canonical result.
type SymbolicSolver interface {
	Name() string
	IsAvailable() bool
	// IsEnabled is true iff available; there is no separate feature flag.
	IsEnabled() bool
	Solve(ctx context.Context, expression string) SolveResult
	SolveBatch(ctx context.Context, expressions []string) []SolveResult
}
