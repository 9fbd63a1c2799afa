package dto

import (
	"github.com/noah-isme/mathgrade-go-api/internal/provider"
	"github.com/noah-isme/mathgrade-go-api/internal/verify"
)

// GradingRequest describes the JSON payload for grading a submission image.
type GradingRequest struct {
	SubmissionID string              `json:"submission_id" validate:"omitempty,max=128"`
	Image        provider.ImageInput `json:"image" validate:"required"`
	AnswerKey    *AnswerKey          `json:"answer_key" validate:"omitempty"`
	Options      GradingOptions      `json:"options"`
}

// AnswerKey carries the expected answers for a submission. It is optional:
// without one the model grades the work on its own.
type AnswerKey struct {
	Type           string      `json:"type" validate:"omitempty,oneof=structured freeform"`
	TotalQuestions int         `json:"total_questions" validate:"omitempty,gte=0"`
	Answers        []KeyAnswer `json:"answers" validate:"omitempty,dive"`
}

// KeyAnswer is one expected answer in the key.
type KeyAnswer struct {
	QuestionNumber int     `json:"question_number" validate:"required,gt=0"`
	CorrectAnswer  string  `json:"correct_answer" validate:"required"`
	Points         float64 `json:"points" validate:"omitempty,gte=0"`
}

// GradingOptions toggle optional pipeline stages. Pointer fields
// distinguish "unset" from an explicit false.
type GradingOptions struct {
	GenerateFeedback   bool  `json:"generate_feedback"`
	ExtractStudentName bool  `json:"extract_student_name"`
	RequireOCR         *bool `json:"require_ocr"`
	EnableVerification *bool `json:"enable_verification"`
	TrackCosts         *bool `json:"track_costs"`
}

// QuestionResult is the graded outcome for a single question.
type QuestionResult struct {
	QuestionNumber  int            `json:"question_number"`
	QuestionText    string         `json:"question_text,omitempty"`
	StudentAnswer   string         `json:"student_answer"`
	CorrectAnswer   string         `json:"correct_answer,omitempty"`
	IsCorrect       bool           `json:"is_correct"`
	PointsEarned    float64        `json:"points_earned"`
	PointsPossible  float64        `json:"points_possible"`
	Confidence      float64        `json:"confidence"`
	Feedback        string         `json:"feedback,omitempty"`
	DifficultyLevel string         `json:"difficulty_level,omitempty"`
	Verification    *verify.Result `json:"verification,omitempty"`
}

// CostBreakdown estimates per-stage spend in USD. Advisory only.
type CostBreakdown struct {
	OCR            float64 `json:"ocr"`
	ChatCompletion float64 `json:"chat_completion"`
	Total          float64 `json:"total"`
}

// ProcessingMetrics records timing and provider usage for one grading run.
type ProcessingMetrics struct {
	TotalTimeMs       int64            `json:"total_time_ms"`
	StageTimeMs       map[string]int64 `json:"stage_time_ms,omitempty"`
	AIProviderUsed    string           `json:"ai_provider_used,omitempty"`
	OCRProviderUsed   string           `json:"ocr_provider_used,omitempty"`
	FallbacksRequired int              `json:"fallbacks_required"`
}

// GradingResult is the aggregated outcome returned to API clients.
type GradingResult struct {
	Success         bool               `json:"success"`
	SubmissionID    string             `json:"submission_id,omitempty"`
	StudentName     string             `json:"student_name,omitempty"`
	NameConfidence  float64            `json:"name_confidence,omitempty"`
	TotalScore      float64            `json:"total_score"`
	MaxScore        float64            `json:"max_score"`
	Percentage      float64            `json:"percentage"`
	QuestionResults []QuestionResult   `json:"question_results"`
	OverallFeedback string             `json:"overall_feedback,omitempty"`
	ExtractedText   string             `json:"extracted_text,omitempty"`
	Costs           *CostBreakdown     `json:"costs,omitempty"`
	Metrics         *ProcessingMetrics `json:"metrics,omitempty"`
	NeedsReview     bool               `json:"needs_review"`
	Error           string             `json:"error,omitempty"`
}

// ProviderStatus reports the health of a single upstream capability.
type ProviderStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// HealthStatus summarizes service and provider readiness.
type HealthStatus struct {
	Status    string           `json:"status"`
	Providers []ProviderStatus `json:"providers"`
	OCR       []ProviderStatus `json:"ocr"`
	Solvers   []ProviderStatus `json:"solvers"`
}
