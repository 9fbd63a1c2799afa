package grading

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mathgrade-go-api/internal/dto"
	"github.com/noah-isme/mathgrade-go-api/internal/provider"
	"github.com/noah-isme/mathgrade-go-api/internal/verify"
)

type fakeChatProvider struct {
	content string
	fail    bool
}

func (f *fakeChatProvider) Name() string      { return "openai" }
func (f *fakeChatProvider) IsAvailable() bool { return true }
func (f *fakeChatProvider) Analyze(context.Context, *provider.ImageInput, string, string) provider.AnalyzeResult {
	if f.fail {
		return provider.AnalyzeResult{Provider: "openai", Error: "rate limited"}
	}
	return provider.AnalyzeResult{Success: true, Provider: "openai", Content: f.content}
}

type fakeOCR struct {
	available bool
	result    provider.OCRResult
}

func (f *fakeOCR) Name() string      { return "mathpix" }
func (f *fakeOCR) IsAvailable() bool { return f.available }
func (f *fakeOCR) ExtractMath(context.Context, provider.ImageInput) provider.OCRResult {
	return f.result
}

type fakeSolver struct {
	available bool
	result    provider.SolveResult
}

func (f *fakeSolver) Name() string      { return "wolfram" }
func (f *fakeSolver) IsAvailable() bool { return f.available }
func (f *fakeSolver) IsEnabled() bool   { return f.available }
func (f *fakeSolver) Solve(context.Context, string) provider.SolveResult {
	return f.result
}
func (f *fakeSolver) SolveBatch(ctx context.Context, exprs []string) []provider.SolveResult {
	out := make([]provider.SolveResult, 0, len(exprs))
	for range exprs {
		out = append(out, f.result)
	}
	return out
}

func newGradingService(chat *fakeChatProvider, ocr provider.OCRProvider, solver provider.SymbolicSolver, defaults Defaults) *Service {
	manager := provider.NewManager([]provider.ChatProvider{chat}, zerolog.Nop())
	var verifier *verify.Service
	if solver != nil {
		verifier = verify.NewService(solver, nil, zerolog.Nop())
	}
	return NewService(manager, ocr, verifier, defaults, zerolog.Nop())
}

func baseRequest() *dto.GradingRequest {
	return &dto.GradingRequest{
		SubmissionID: "sub-1",
		Image:        provider.ImageInput{Type: "base64", Data: "aGVsbG8=", MimeType: "image/png"},
	}
}

const twoQuestionPayload = `{
  "student_name": "Alex",
  "name_confidence": 0.9,
  "extracted_text": "1) 2 + 3 = 5\n2) 20 / 4 = 4",
  "overall_feedback": "Good effort overall.",
  "questions": [
    {"question_number": 1, "question_text": "2 + 3", "student_answer": "5",
     "correct_answer": "5", "is_correct": true, "points_earned": 1,
     "points_possible": 1, "confidence": 0.98, "feedback": "Correct."},
    {"question_number": 2, "question_text": "20 / 4", "student_answer": "4",
     "correct_answer": "5", "is_correct": false, "points_earned": 0,
     "points_possible": 1, "confidence": 0.95, "feedback": "Check the division."}
  ]
}`

func TestGradeSubmissionHappyPath(t *testing.T) {
	svc := newGradingService(&fakeChatProvider{content: twoQuestionPayload}, nil, nil, Defaults{TrackCosts: true})

	req := baseRequest()
	req.Options.GenerateFeedback = true
	req.Options.ExtractStudentName = true

	result := svc.GradeSubmission(context.Background(), req)

	require.True(t, result.Success)
	assert.Equal(t, "sub-1", result.SubmissionID)
	assert.Equal(t, "Alex", result.StudentName)
	assert.InDelta(t, 0.9, result.NameConfidence, 1e-9)
	require.Len(t, result.QuestionResults, 2)
	assert.InDelta(t, 1.0, result.TotalScore, 1e-9)
	assert.InDelta(t, 2.0, result.MaxScore, 1e-9)
	assert.InDelta(t, 50.0, result.Percentage, 1e-9)
	assert.False(t, result.NeedsReview)
	assert.Equal(t, "Good effort overall.", result.OverallFeedback)
	assert.Equal(t, "simple", result.QuestionResults[0].DifficultyLevel)
	assert.Equal(t, "moderate", result.QuestionResults[1].DifficultyLevel)

	require.NotNil(t, result.Metrics)
	assert.Equal(t, "openai", result.Metrics.AIProviderUsed)
	assert.Equal(t, "vision", result.Metrics.OCRProviderUsed)
	assert.Zero(t, result.Metrics.FallbacksRequired)

	require.NotNil(t, result.Costs)
	assert.Greater(t, result.Costs.Total, 0.0)
}

func TestGradeSubmissionOmitsFeedbackAndNameByDefault(t *testing.T) {
	svc := newGradingService(&fakeChatProvider{content: twoQuestionPayload}, nil, nil, Defaults{})

	result := svc.GradeSubmission(context.Background(), baseRequest())

	require.True(t, result.Success)
	assert.Empty(t, result.StudentName)
	assert.Zero(t, result.NameConfidence)
	assert.Empty(t, result.OverallFeedback)
	assert.Empty(t, result.QuestionResults[0].Feedback)
}

func TestGradeSubmissionClampsOverclaimedPoints(t *testing.T) {
	// The model awards more points than the question is worth. Schema-valid,
	// but the score must stay within the possible points.
	payload := `{
      "questions": [
        {"question_number": 1, "question_text": "2 + 3", "student_answer": "5",
         "correct_answer": "5", "is_correct": true, "points_earned": 5,
         "points_possible": 1, "confidence": 0.98}
      ]
    }`
	svc := newGradingService(&fakeChatProvider{content: payload}, nil, nil, Defaults{})

	result := svc.GradeSubmission(context.Background(), baseRequest())

	require.True(t, result.Success)
	require.Len(t, result.QuestionResults, 1)
	assert.InDelta(t, 1.0, result.QuestionResults[0].PointsEarned, 1e-9)
	assert.InDelta(t, 1.0, result.TotalScore, 1e-9)
	assert.InDelta(t, 1.0, result.MaxScore, 1e-9)
	assert.InDelta(t, 100.0, result.Percentage, 1e-9)
}

func TestGradeSubmissionChatFailureIsTerminal(t *testing.T) {
	svc := newGradingService(&fakeChatProvider{fail: true}, nil, nil, Defaults{})

	result := svc.GradeSubmission(context.Background(), baseRequest())

	require.False(t, result.Success)
	assert.True(t, result.NeedsReview)
	assert.Contains(t, result.Error, "grading call failed")
	assert.Empty(t, result.QuestionResults)
}

func TestGradeSubmissionMalformedModelResponse(t *testing.T) {
	svc := newGradingService(&fakeChatProvider{content: "not json at all"}, nil, nil, Defaults{})

	result := svc.GradeSubmission(context.Background(), baseRequest())

	require.False(t, result.Success)
	assert.True(t, result.NeedsReview)
	assert.Contains(t, result.Error, "grading call failed")
}

func TestGradeSubmissionSchemaViolation(t *testing.T) {
	// questions must be an array.
	svc := newGradingService(&fakeChatProvider{content: `{"questions": "none"}`}, nil, nil, Defaults{})

	result := svc.GradeSubmission(context.Background(), baseRequest())

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "grading call failed")
}

func TestGradeSubmissionRequireOCRWithoutProvider(t *testing.T) {
	svc := newGradingService(&fakeChatProvider{content: twoQuestionPayload}, nil, nil, Defaults{RequireOCR: true})

	result := svc.GradeSubmission(context.Background(), baseRequest())

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "ocr extraction failed")
}

func TestGradeSubmissionOCRFallsBackToVision(t *testing.T) {
	ocr := &fakeOCR{available: true, result: provider.OCRResult{Error: "bad image"}}
	svc := newGradingService(&fakeChatProvider{content: twoQuestionPayload}, ocr, nil, Defaults{})

	result := svc.GradeSubmission(context.Background(), baseRequest())

	require.True(t, result.Success)
	assert.Equal(t, "vision", result.Metrics.OCRProviderUsed)
}

func TestGradeSubmissionUsesOCRText(t *testing.T) {
	ocr := &fakeOCR{available: true, result: provider.OCRResult{Success: true, Text: "2 + 3 = 5", Confidence: 0.99}}
	svc := newGradingService(&fakeChatProvider{content: twoQuestionPayload}, ocr, nil, Defaults{})

	result := svc.GradeSubmission(context.Background(), baseRequest())

	require.True(t, result.Success)
	assert.Equal(t, "mathpix", result.Metrics.OCRProviderUsed)
	assert.Equal(t, "2 + 3 = 5", result.ExtractedText)
}

func TestGradeSubmissionAnswerKeyOverridesModel(t *testing.T) {
	// The model marks Q1 wrong, but the key says the student's equivalent
	// form is correct.
	payload := `{
      "questions": [
        {"question_number": 1, "question_text": "1/2 + 0 = ?", "student_answer": "0.5",
         "correct_answer": "1/2", "is_correct": false, "points_earned": 0,
         "points_possible": 2, "confidence": 0.9}
      ]
    }`
	svc := newGradingService(&fakeChatProvider{content: payload}, nil, nil, Defaults{})

	req := baseRequest()
	req.AnswerKey = &dto.AnswerKey{
		Type: "structured",
		Answers: []dto.KeyAnswer{
			{QuestionNumber: 1, CorrectAnswer: "1/2", Points: 2},
		},
	}

	result := svc.GradeSubmission(context.Background(), req)

	require.True(t, result.Success)
	require.Len(t, result.QuestionResults, 1)
	assert.True(t, result.QuestionResults[0].IsCorrect)
	assert.InDelta(t, 2.0, result.QuestionResults[0].PointsEarned, 1e-9)
	assert.InDelta(t, 100.0, result.Percentage, 1e-9)
}

func TestGradeSubmissionVerificationConflictReconciles(t *testing.T) {
	// The model grades "4" as the correct answer to a complex problem; the
	// solver disagrees and says "3". The student wrote "3", so the question
	// flips to correct and the run is flagged for review.
	payload := `{
      "questions": [
        {"question_number": 1, "question_text": "Solve: 2x + 3 = 9", "student_answer": "3",
         "correct_answer": "4", "is_correct": false, "points_earned": 0,
         "points_possible": 1, "confidence": 0.9}
      ]
    }`
	solver := &fakeSolver{available: true, result: provider.SolveResult{Success: true, Result: "3"}}
	svc := newGradingService(&fakeChatProvider{content: payload}, nil, solver, Defaults{EnableVerification: true})

	result := svc.GradeSubmission(context.Background(), baseRequest())

	require.True(t, result.Success)
	require.Len(t, result.QuestionResults, 1)
	qr := result.QuestionResults[0]
	assert.True(t, qr.IsCorrect)
	assert.InDelta(t, 1.0, qr.PointsEarned, 1e-9)
	assert.Equal(t, "3", qr.CorrectAnswer)
	require.NotNil(t, qr.Verification)
	assert.True(t, qr.Verification.Conflict)
	assert.True(t, result.NeedsReview)
}

func TestGradeSubmissionVerificationAgreement(t *testing.T) {
	payload := `{
      "questions": [
        {"question_number": 1, "question_text": "Solve: 2x = 8", "student_answer": "4",
         "correct_answer": "4", "is_correct": true, "points_earned": 1,
         "points_possible": 1, "confidence": 0.95}
      ]
    }`
	solver := &fakeSolver{available: true, result: provider.SolveResult{Success: true, Result: "4"}}
	svc := newGradingService(&fakeChatProvider{content: payload}, nil, solver, Defaults{EnableVerification: true})

	result := svc.GradeSubmission(context.Background(), baseRequest())

	require.True(t, result.Success)
	assert.False(t, result.NeedsReview)
	require.NotNil(t, result.QuestionResults[0].Verification)
	assert.True(t, result.QuestionResults[0].Verification.Matched)
}

func TestGradeSubmissionEmptyQuestions(t *testing.T) {
	svc := newGradingService(&fakeChatProvider{content: `{"questions": []}`}, nil, nil, Defaults{})

	result := svc.GradeSubmission(context.Background(), baseRequest())

	require.True(t, result.Success)
	assert.Empty(t, result.QuestionResults)
	assert.Zero(t, result.MaxScore)
	assert.Zero(t, result.Percentage, "zero max score must yield zero percent, not NaN")
}

func TestGradeSubmissionSanitizesModelText(t *testing.T) {
	payload := `{
      "student_name": "<script>alert(1)</script>Alex",
      "overall_feedback": "Nice <b>work</b>!",
      "questions": [
        {"question_number": 1, "question_text": "2 + 3", "student_answer": "5",
         "correct_answer": "5", "is_correct": true, "points_earned": 1,
         "points_possible": 1, "confidence": 0.98}
      ]
    }`
	svc := newGradingService(&fakeChatProvider{content: payload}, nil, nil, Defaults{})

	req := baseRequest()
	req.Options.GenerateFeedback = true
	req.Options.ExtractStudentName = true

	result := svc.GradeSubmission(context.Background(), req)

	require.True(t, result.Success)
	assert.Equal(t, "Alex", result.StudentName)
	assert.Equal(t, "Nice work!", result.OverallFeedback)
}

func TestHealthCheckReportsConfiguredProvidersOnly(t *testing.T) {
	// One configured chat provider: health must list exactly that one, not
	// every vendor the service knows how to build.
	svc := newGradingService(&fakeChatProvider{content: twoQuestionPayload}, nil, nil, Defaults{})

	status := svc.HealthCheck(context.Background())

	require.Len(t, status.Providers, 1)
	assert.Equal(t, "openai", status.Providers[0].Name)
	assert.True(t, status.Providers[0].Available)
	assert.Equal(t, "ok", status.Status)
}
