package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mathgrade-go-api/internal/dto"
	"github.com/noah-isme/mathgrade-go-api/internal/handler"
	"github.com/noah-isme/mathgrade-go-api/internal/provider"
	"github.com/noah-isme/mathgrade-go-api/internal/queue"
)

type mockGradingService struct {
	lastRequest *dto.GradingRequest
	result      dto.GradingResult
	providers   []string
	health      dto.HealthStatus
}

func (m *mockGradingService) GradeSubmission(_ context.Context, req *dto.GradingRequest) dto.GradingResult {
	m.lastRequest = req
	return m.result
}

func (m *mockGradingService) AvailableProviders() []string { return m.providers }

func (m *mockGradingService) HealthCheck(context.Context) dto.HealthStatus { return m.health }

func newGradingApp(svc handler.GradingService, q queue.Queue) *fiber.App {
	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	app := fiber.New()
	handler.NewGradingHandler(svc, q, validate, logger).Register(app.Group("/api/v1"))
	return app
}

func gradingBody(t *testing.T) *bytes.Reader {
	t.Helper()
	payload := dto.GradingRequest{
		SubmissionID: "sub-1",
		Image:        provider.ImageInput{Type: "base64", Data: "aGVsbG8=", MimeType: "image/png"},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestGradingHandler_GradeSuccess(t *testing.T) {
	svc := &mockGradingService{result: dto.GradingResult{
		Success:      true,
		SubmissionID: "sub-1",
		TotalScore:   2,
		MaxScore:     2,
		Percentage:   100,
	}}
	app := newGradingApp(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/grade", gradingBody(t))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool              `json:"success"`
		Data    dto.GradingResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	require.True(t, response.Success)
	require.Equal(t, "sub-1", response.Data.SubmissionID)
	require.InDelta(t, 100.0, response.Data.Percentage, 1e-9)
	require.NotNil(t, svc.lastRequest)
}

func TestGradingHandler_GradeInvalidBody(t *testing.T) {
	svc := &mockGradingService{}
	app := newGradingApp(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/grade", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Nil(t, svc.lastRequest)
}

func TestGradingHandler_GradeMissingImage(t *testing.T) {
	svc := &mockGradingService{}
	app := newGradingApp(svc, nil)

	body, err := json.Marshal(map[string]any{"submission_id": "sub-1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/grade", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGradingHandler_GradePipelineFailure(t *testing.T) {
	svc := &mockGradingService{result: dto.GradingResult{
		Success:     false,
		NeedsReview: true,
		Error:       "grading call failed: all chat providers failed (2 attempted)",
	}}
	app := newGradingApp(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/grade", gradingBody(t))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	require.False(t, response.Success)
	require.Contains(t, response.Detail, "all chat providers failed")
}

func TestGradingHandler_GradeAsync(t *testing.T) {
	svc := &mockGradingService{}
	q := queue.NewMemoryQueue()
	app := newGradingApp(svc, q)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/grade/async", gradingBody(t))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	require.Equal(t, 1, q.Len())
}

func TestGradingHandler_GradeAsyncDisabled(t *testing.T) {
	app := newGradingApp(&mockGradingService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/grade/async", gradingBody(t))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotImplemented, resp.StatusCode)
}

func TestGradingHandler_Providers(t *testing.T) {
	svc := &mockGradingService{providers: []string{"openai", "anthropic"}}
	app := newGradingApp(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data struct {
			Providers []string `json:"providers"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	require.Equal(t, []string{"openai", "anthropic"}, response.Data.Providers)
}
