// Package verify decides how much checking a proposed answer needs and runs
// the cheapest sufficient method: none, the symbolic oracle, or a
// chain-of-thought re-derivation.
package verify

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/mathgrade-go-api/internal/compare"
	"github.com/noah-isme/mathgrade-go-api/internal/difficulty"
	"github.com/noah-isme/mathgrade-go-api/internal/provider"
)

// Method names the verification strategy applied to one answer.
type Method string

const (
	MethodNone           Method = "none"
	MethodWolfram        Method = "wolfram"
	MethodChainOfThought Method = "chain_of_thought"
)

const (
	// noCheckConfidence reflects "we trusted the answer without checking".
	noCheckConfidence = 0.5
	// symbolicConfidence applies when the oracle produced a comparable result.
	symbolicConfidence = 0.95
	// conflictThreshold gates chain-of-thought disagreement: below it a
	// mismatch is noise, not a conflict.
	conflictThreshold = 0.7
)

// Result is the structured outcome of a verification.
type Result struct {
	Method             Method           `json:"method"`
	Difficulty         difficulty.Level `json:"difficulty"`
	OriginalAnswer     string           `json:"original_answer"`
	VerificationAnswer string           `json:"verification_answer,omitempty"`
	Matched            bool             `json:"matched"`
	Conflict           bool             `json:"conflict"`
	Confidence         float64          `json:"confidence"`
}

// Options tweak a single verification call.
type Options struct {
	SkipVerification bool
	ForceMethod      Method
}

// Check is one problem/answer pair for batch verification.
type Check struct {
	ProblemText string
	Answer      string
}

// Service routes each check to a verification method. Providers are
// injected at construction; tests supply stubs implementing the same
// interfaces.
type Service struct {
	solver provider.SymbolicSolver
	chain  ChainVerifier
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewService builds the verification service.
func NewService(solver provider.SymbolicSolver, chain ChainVerifier, logger zerolog.Logger) *Service {
	return &Service{
		solver: solver,
		chain:  chain,
		logger: logger.With().Str("component", "verify_service").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/mathgrade-go-api/internal/verify"),
	}
}

// VerifyCalculation checks proposedAnswer for problemText. Verification
// failure is never fatal: when the chosen provider cannot run, the original
// answer is presumed correct and the pipeline moves on.
func (s *Service) VerifyCalculation(parent context.Context, problemText, proposedAnswer string, opts *Options) Result {
	ctx, span := s.tracer.Start(parent, "verify.calculation")
	defer span.End()

	if opts == nil {
		opts = &Options{}
	}

	level := difficulty.Classify(problemText)
	span.SetAttributes(attribute.String("difficulty", level.String()))

	if opts.SkipVerification || (opts.ForceMethod == "" && level == difficulty.Simple) {
		return Result{
			Method:         MethodNone,
			Difficulty:     level,
			OriginalAnswer: proposedAnswer,
			Matched:        true,
			Confidence:     noCheckConfidence,
		}
	}

	method := opts.ForceMethod
	forced := method != ""
	if !forced {
		if level == difficulty.Complex && s.solver != nil && s.solver.IsAvailable() {
			method = MethodWolfram
		} else {
			method = MethodChainOfThought
		}
	}

	var result Result
	switch method {
	case MethodWolfram:
		result = s.verifySymbolic(ctx, problemText, proposedAnswer, level)
	case MethodChainOfThought:
		result = s.verifyChain(ctx, problemText, proposedAnswer, level)
	default:
		result = Result{Method: MethodNone, Difficulty: level, OriginalAnswer: proposedAnswer, Matched: true, Confidence: noCheckConfidence}
	}

	// Degrade to trusting the original answer when the provider could not
	// produce a judgment and no method was pinned.
	if result.Confidence == 0 && !result.Matched && !result.Conflict && !forced {
		s.logger.Debug().Str("method", string(method)).Msg("verification unavailable, presuming answer correct")
		result.Matched = true
		result.Confidence = noCheckConfidence
	}

	if result.Conflict {
		verificationConflicts.WithLabelValues(string(result.Method)).Inc()
	}
	return result
}

func (s *Service) verifySymbolic(ctx context.Context, problemText, proposedAnswer string, level difficulty.Level) Result {
	out := Result{Method: MethodWolfram, Difficulty: level, OriginalAnswer: proposedAnswer}
	if s.solver == nil || !s.solver.IsAvailable() {
		return out
	}

	solved := s.solver.Solve(ctx, problemText)
	if !solved.Success {
		s.logger.Warn().Str("error", solved.Error).Msg("symbolic solve failed")
		return out
	}

	out.VerificationAnswer = solved.Result
	cmp := compare.CompareAnswers(solved.Result, proposedAnswer)
	out.Matched = cmp.Matched
	out.Conflict = !cmp.Matched
	out.Confidence = symbolicConfidence
	return out
}

func (s *Service) verifyChain(ctx context.Context, problemText, proposedAnswer string, level difficulty.Level) Result {
	out := Result{Method: MethodChainOfThought, Difficulty: level, OriginalAnswer: proposedAnswer}
	if s.chain == nil || !s.chain.IsAvailable() {
		return out
	}

	judgment := s.chain.Verify(ctx, problemText, proposedAnswer)
	if !judgment.Success {
		s.logger.Warn().Str("error", judgment.Error).Msg("chain-of-thought verification inconclusive")
		return out
	}

	out.VerificationAnswer = judgment.Answer
	out.Matched = judgment.Match
	out.Confidence = judgment.Confidence
	out.Conflict = !judgment.Match && judgment.Confidence >= conflictThreshold
	return out
}

// SolverStatus reports the symbolic solver's name and availability.
func (s *Service) SolverStatus() (string, bool) {
	if s.solver == nil {
		return "", false
	}
	return s.solver.Name(), s.solver.IsAvailable()
}

// VerifyBatch verifies each check independently; one failing item never
// affects the others.
func (s *Service) VerifyBatch(ctx context.Context, checks []Check, opts *Options) []Result {
	out := make([]Result, 0, len(checks))
	for _, c := range checks {
		out = append(out, s.VerifyCalculation(ctx, c.ProblemText, c.Answer, opts))
	}
	return out
}

// Stats aggregates a set of verification results.
type Stats struct {
	Total             int                      `json:"total"`
	Verified          int                      `json:"verified"`
	Conflicts         int                      `json:"conflicts"`
	ByMethod          map[Method]int           `json:"by_method"`
	ByDifficulty      map[difficulty.Level]int `json:"by_difficulty"`
	AverageConfidence float64                  `json:"average_confidence"`
}

// VerificationStats aggregates results. Empty input yields zeroed stats.
func VerificationStats(results []Result) Stats {
	stats := Stats{
		ByMethod:     make(map[Method]int),
		ByDifficulty: make(map[difficulty.Level]int),
	}
	var confidenceSum float64
	for _, r := range results {
		stats.Total++
		stats.ByMethod[r.Method]++
		stats.ByDifficulty[r.Difficulty]++
		if r.Method != MethodNone {
			stats.Verified++
		}
		if r.Conflict {
			stats.Conflicts++
		}
		confidenceSum += r.Confidence
	}
	if stats.Total > 0 {
		stats.AverageConfidence = confidenceSum / float64(stats.Total)
	}
	return stats
}
