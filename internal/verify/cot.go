package verify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mathgrade-go-api/internal/provider"
	"github.com/noah-isme/mathgrade-go-api/internal/util"
)

// Judgment is the structured outcome of a chain-of-thought re-derivation.
type Judgment struct {
	Success        bool    `json:"success"`
	Answer         string  `json:"answer,omitempty"`
	ProposedAnswer string  `json:"proposed_answer,omitempty"`
	Match          bool    `json:"match"`
	Confidence     float64 `json:"confidence"`
	Explanation    string  `json:"explanation,omitempty"`
	LatencyMs      int64   `json:"latency_ms"`
	Error          string  `json:"error,omitempty"`
}

// ChainVerifier re-derives an answer and self-reports agreement with the
// proposed one.
type ChainVerifier interface {
	IsAvailable() bool
	Verify(ctx context.Context, problemText, proposedAnswer string) Judgment
}

const cotSystemPrompt = `You are a careful math checker. Re-derive the answer to the given problem
step by step, then compare your answer against the proposed answer.
Respond with a strict JSON object:
{"answer": "<your derived answer>", "match": true|false,
 "confidence": <0..1>, "explanation": "<short note when they disagree>"}
Any text outside the JSON object is an error.`

type chatChainVerifier struct {
	chat   *provider.Manager
	logger zerolog.Logger
}

// NewChainVerifier builds a chain-of-thought verifier over the chat
// provider fallback manager.
func NewChainVerifier(chat *provider.Manager, logger zerolog.Logger) ChainVerifier {
	return &chatChainVerifier{
		chat:   chat,
		logger: logger.With().Str("component", "chain_verifier").Logger(),
	}
}

func (v *chatChainVerifier) IsAvailable() bool {
	_, ok := v.chat.PrimaryProvider()
	return ok
}

// Verify asks the model to show its work. A malformed response is reported
// as an inconclusive judgment, never as a panic or a fatal error.
func (v *chatChainVerifier) Verify(ctx context.Context, problemText, proposedAnswer string) Judgment {
	prompt := fmt.Sprintf("Problem: %s\nProposed answer: %s\nReturn JSON only.", problemText, proposedAnswer)

	result := v.chat.AnalyzeImage(ctx, nil, prompt, cotSystemPrompt)
	if !result.Success {
		return Judgment{ProposedAnswer: proposedAnswer, Error: result.Error, LatencyMs: result.LatencyMs}
	}

	var payload struct {
		Answer      string  `json:"answer"`
		Match       bool    `json:"match"`
		Confidence  float64 `json:"confidence"`
		Explanation string  `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(util.ExtractJSONObject(result.Content)), &payload); err != nil {
		v.logger.Warn().Err(err).Str("provider", result.Provider).Msg("unparseable chain-of-thought response")
		return Judgment{
			ProposedAnswer: proposedAnswer,
			Error:          "inconclusive: unparseable verification response",
			LatencyMs:      result.LatencyMs,
		}
	}

	if payload.Confidence < 0 {
		payload.Confidence = 0
	}
	if payload.Confidence > 1 {
		payload.Confidence = 1
	}

	return Judgment{
		Success:        true,
		Answer:         payload.Answer,
		ProposedAnswer: proposedAnswer,
		Match:          payload.Match,
		Confidence:     payload.Confidence,
		Explanation:    payload.Explanation,
		LatencyMs:      result.LatencyMs,
	}
}
