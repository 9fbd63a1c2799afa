// Package grading runs the homework grading pipeline: OCR extraction,
// chat-model grading, per-question verification and score aggregation.
package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/mathgrade-go-api/internal/compare"
	"github.com/noah-isme/mathgrade-go-api/internal/difficulty"
	"github.com/noah-isme/mathgrade-go-api/internal/dto"
	"github.com/noah-isme/mathgrade-go-api/internal/observability"
	"github.com/noah-isme/mathgrade-go-api/internal/provider"
	"github.com/noah-isme/mathgrade-go-api/internal/util"
	"github.com/noah-isme/mathgrade-go-api/internal/verify"
)

// Advisory per-call cost estimates in USD. They feed the cost breakdown and
// metrics only, never billing.
const (
	ocrCostPerCall  = 0.004
	chatCostPerCall = 0.01
)

// Defaults are the service-level stage toggles. A request option, when set,
// wins over the default.
type Defaults struct {
	RequireOCR         bool
	EnableVerification bool
	TrackCosts         bool
}

// Service orchestrates one grading run end to end.
type Service struct {
	chat      *provider.Manager
	ocr       provider.OCRProvider
	verifier  *verify.Service
	sanitizer *bluemonday.Policy
	defaults  Defaults
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewService wires the grading pipeline. The OCR provider and verifier may
// be nil; the pipeline degrades around them.
func NewService(chat *provider.Manager, ocr provider.OCRProvider, verifier *verify.Service, defaults Defaults, logger zerolog.Logger) *Service {
	return &Service{
		chat:      chat,
		ocr:       ocr,
		verifier:  verifier,
		sanitizer: bluemonday.StrictPolicy(),
		defaults:  defaults,
		logger:    logger.With().Str("component", "grading_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/mathgrade-go-api/internal/grading"),
	}
}

// modelPayload mirrors the JSON shape the grading prompt demands.
type modelPayload struct {
	StudentName     string  `json:"student_name"`
	NameConfidence  float64 `json:"name_confidence"`
	ExtractedText   string  `json:"extracted_text"`
	OverallFeedback string  `json:"overall_feedback"`
	Questions       []struct {
		QuestionNumber int     `json:"question_number"`
		QuestionText   string  `json:"question_text"`
		StudentAnswer  string  `json:"student_answer"`
		CorrectAnswer  string  `json:"correct_answer"`
		IsCorrect      bool    `json:"is_correct"`
		PointsEarned   float64 `json:"points_earned"`
		PointsPossible float64 `json:"points_possible"`
		Confidence     float64 `json:"confidence"`
		Feedback       string  `json:"feedback"`
	} `json:"questions"`
}

// GradeSubmission runs the full pipeline. It always returns a result value:
// failures are reported through Success=false and Error, never as a Go error.
func (s *Service) GradeSubmission(parent context.Context, req *dto.GradingRequest) dto.GradingResult {
	ctx, span := s.tracer.Start(parent, "grading.submission")
	defer span.End()

	start := time.Now()
	stageTimes := make(map[string]int64)
	metrics := dto.ProcessingMetrics{StageTimeMs: stageTimes}

	requireOCR := s.defaults.RequireOCR
	if req.Options.RequireOCR != nil {
		requireOCR = *req.Options.RequireOCR
	}
	enableVerification := s.defaults.EnableVerification
	if req.Options.EnableVerification != nil {
		enableVerification = *req.Options.EnableVerification
	}
	trackCosts := s.defaults.TrackCosts
	if req.Options.TrackCosts != nil {
		trackCosts = *req.Options.TrackCosts
	}

	costs := dto.CostBreakdown{}

	// Stage 1: OCR. Failure falls back to vision-only grading unless the
	// request pinned OCR as required.
	extractedText := ""
	ocrStart := time.Now()
	if s.ocr != nil && s.ocr.IsAvailable() {
		ocrResult := s.ocr.ExtractMath(ctx, req.Image)
		stageTimes["ocr"] = time.Since(ocrStart).Milliseconds()
		observability.GradingLatency().WithLabelValues("ocr").Observe(time.Since(ocrStart).Seconds())
		if ocrResult.Success {
			extractedText = ocrResult.Text
			if extractedText == "" {
				extractedText = ocrResult.LaTeX
			}
			metrics.OCRProviderUsed = s.ocr.Name()
			costs.OCR = ocrCostPerCall
		} else if requireOCR {
			s.logger.Error().Str("error", ocrResult.Error).Msg("required OCR stage failed")
			return s.failedResult(req, &metrics, start, fmt.Sprintf("ocr extraction failed: %s", ocrResult.Error))
		} else {
			s.logger.Warn().Str("error", ocrResult.Error).Msg("ocr failed, grading from image only")
			metrics.OCRProviderUsed = "vision"
		}
	} else {
		if requireOCR {
			return s.failedResult(req, &metrics, start, "ocr extraction failed: no ocr provider configured")
		}
		metrics.OCRProviderUsed = "vision"
	}

	// Stage 2: chat-model grading. A failure here is terminal; there is
	// nothing to grade without the model's judgment.
	gradeStart := time.Now()
	prompt := buildGradingPrompt(req, extractedText)
	analyzed := s.chat.AnalyzeImage(ctx, &req.Image, prompt, gradingSystemPrompt)
	stageTimes["grading"] = time.Since(gradeStart).Milliseconds()
	observability.GradingLatency().WithLabelValues("grading").Observe(time.Since(gradeStart).Seconds())
	metrics.AIProviderUsed = analyzed.Provider
	if analyzed.Attempts > 0 {
		metrics.FallbacksRequired = analyzed.Attempts - 1
	}
	if !analyzed.Success {
		return s.failedResult(req, &metrics, start, fmt.Sprintf("grading call failed: %s", analyzed.Error))
	}
	costs.ChatCompletion = chatCostPerCall * float64(analyzed.Attempts)

	payload, err := s.parsePayload(analyzed.Content)
	if err != nil {
		s.logger.Error().Err(err).Str("provider", analyzed.Provider).Msg("grading response rejected")
		return s.failedResult(req, &metrics, start, fmt.Sprintf("grading call failed: %s", err))
	}

	if extractedText == "" {
		extractedText = payload.ExtractedText
	}

	// Stage 3: per-question difficulty and verification.
	result := dto.GradingResult{
		Success:       true,
		SubmissionID:  req.SubmissionID,
		ExtractedText: extractedText,
	}
	if req.Options.ExtractStudentName {
		result.StudentName = s.sanitize(payload.StudentName)
		if result.StudentName != "" {
			result.NameConfidence = payload.NameConfidence
		}
	}
	if req.Options.GenerateFeedback {
		result.OverallFeedback = s.sanitize(payload.OverallFeedback)
	}

	verifyStart := time.Now()
	for _, q := range payload.Questions {
		qr := dto.QuestionResult{
			QuestionNumber: q.QuestionNumber,
			QuestionText:   q.QuestionText,
			StudentAnswer:  q.StudentAnswer,
			CorrectAnswer:  q.CorrectAnswer,
			IsCorrect:      q.IsCorrect,
			PointsEarned:   q.PointsEarned,
			PointsPossible: q.PointsPossible,
			Confidence:     q.Confidence,
		}
		if req.Options.GenerateFeedback {
			qr.Feedback = s.sanitize(q.Feedback)
		}
		if qr.PointsPossible <= 0 {
			qr.PointsPossible = s.pointsFromKey(req.AnswerKey, q.QuestionNumber)
		}
		// Awarded points never exceed the possible points, whatever the
		// model claims.
		if qr.PointsEarned > qr.PointsPossible {
			qr.PointsEarned = qr.PointsPossible
		}
		s.applyAnswerKey(req.AnswerKey, &qr)

		level := difficulty.Classify(qr.QuestionText)
		qr.DifficultyLevel = level.String()

		if enableVerification && s.verifier != nil && qr.CorrectAnswer != "" {
			v := s.verifier.VerifyCalculation(ctx, qr.QuestionText, qr.CorrectAnswer, nil)
			qr.Verification = &v
			if v.Conflict {
				s.reconcileConflict(&qr, v)
				result.NeedsReview = true
			}
		}

		observability.GradingQuestions().WithLabelValues(fmt.Sprintf("%t", qr.IsCorrect)).Inc()
		result.QuestionResults = append(result.QuestionResults, qr)
	}
	stageTimes["verification"] = time.Since(verifyStart).Milliseconds()
	observability.GradingLatency().WithLabelValues("verification").Observe(time.Since(verifyStart).Seconds())

	// Stage 4: aggregation.
	for _, qr := range result.QuestionResults {
		result.TotalScore += qr.PointsEarned
		result.MaxScore += qr.PointsPossible
	}
	if result.MaxScore > 0 {
		result.Percentage = math.Round(100 * result.TotalScore / result.MaxScore)
	}

	metrics.TotalTimeMs = time.Since(start).Milliseconds()
	result.Metrics = &metrics
	if trackCosts {
		costs.Total = costs.OCR + costs.ChatCompletion
		result.Costs = &costs
		observability.GradingCost().WithLabelValues("ocr").Add(costs.OCR)
		observability.GradingCost().WithLabelValues("chat").Add(costs.ChatCompletion)
	}
	if result.NeedsReview {
		observability.GradingReviews().Inc()
	}
	observability.GradingRequests().WithLabelValues("success").Inc()

	span.SetAttributes(
		attribute.Int("questions", len(result.QuestionResults)),
		attribute.Bool("needs_review", result.NeedsReview),
	)
	s.logger.Info().
		Str("submission_id", req.SubmissionID).
		Int("questions", len(result.QuestionResults)).
		Float64("percentage", result.Percentage).
		Bool("needs_review", result.NeedsReview).
		Msg("submission graded")
	return result
}

// parsePayload extracts and schema-validates the model's JSON.
func (s *Service) parsePayload(content string) (*modelPayload, error) {
	raw := util.ExtractJSONObject(content)

	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("unparseable model response: %w", err)
	}
	if err := compiledGradingSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("model response failed schema validation: %w", err)
	}

	var payload modelPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("unparseable model response: %w", err)
	}
	return &payload, nil
}

// applyAnswerKey overrides the model's correctness judgment with the key's
// expected answer when one exists for the question. Equivalence is
// semantics-aware, so "0.5" matches a key of "1/2".
func (s *Service) applyAnswerKey(key *dto.AnswerKey, qr *dto.QuestionResult) {
	if key == nil {
		return
	}
	for _, a := range key.Answers {
		if a.QuestionNumber != qr.QuestionNumber {
			continue
		}
		qr.CorrectAnswer = a.CorrectAnswer
		qr.IsCorrect = compare.AreAnswersEquivalent(qr.StudentAnswer, a.CorrectAnswer)
		if qr.IsCorrect {
			qr.PointsEarned = qr.PointsPossible
		} else {
			qr.PointsEarned = 0
		}
		return
	}
}

func (s *Service) pointsFromKey(key *dto.AnswerKey, questionNumber int) float64 {
	if key != nil {
		for _, a := range key.Answers {
			if a.QuestionNumber == questionNumber && a.Points > 0 {
				return a.Points
			}
		}
	}
	return 1
}

// reconcileConflict re-grades a question against the verifier's answer. The
// verifier disagreed with the model confidently, so the student's answer is
// re-checked against the verified one.
func (s *Service) reconcileConflict(qr *dto.QuestionResult, v verify.Result) {
	if v.VerificationAnswer == "" {
		qr.Confidence = math.Min(qr.Confidence, 0.5)
		return
	}
	qr.CorrectAnswer = v.VerificationAnswer
	qr.IsCorrect = compare.AreAnswersEquivalent(qr.StudentAnswer, v.VerificationAnswer)
	if qr.IsCorrect {
		qr.PointsEarned = qr.PointsPossible
	} else {
		qr.PointsEarned = 0
	}
	qr.Confidence = math.Min(qr.Confidence, v.Confidence)
}

func (s *Service) failedResult(req *dto.GradingRequest, metrics *dto.ProcessingMetrics, start time.Time, msg string) dto.GradingResult {
	metrics.TotalTimeMs = time.Since(start).Milliseconds()
	observability.GradingRequests().WithLabelValues("failure").Inc()
	observability.GradingReviews().Inc()
	return dto.GradingResult{
		SubmissionID: req.SubmissionID,
		NeedsReview:  true,
		Error:        msg,
		Metrics:      metrics,
	}
}

func (s *Service) sanitize(v string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(v))
}

// AvailableProviders lists configured chat providers in fallback order.
func (s *Service) AvailableProviders() []string {
	return s.chat.AvailableProviders()
}

// HealthCheck reports the readiness of every upstream capability.
func (s *Service) HealthCheck(ctx context.Context) dto.HealthStatus {
	status := dto.HealthStatus{Status: "degraded"}
	for _, name := range s.chat.ProviderNames() {
		available := s.chat.IsProviderAvailable(name)
		status.Providers = append(status.Providers, dto.ProviderStatus{Name: name, Available: available})
		if available {
			status.Status = "ok"
		}
	}
	if s.ocr != nil {
		status.OCR = append(status.OCR, dto.ProviderStatus{Name: s.ocr.Name(), Available: s.ocr.IsAvailable()})
	}
	if s.verifier != nil {
		if name, available := s.verifier.SolverStatus(); name != "" {
			status.Solvers = append(status.Solvers, dto.ProviderStatus{Name: name, Available: available})
		}
	}
	return status
}
