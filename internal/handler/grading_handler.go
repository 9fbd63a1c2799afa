package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathgrade-go-api/internal/dto"
	"github.com/noah-isme/mathgrade-go-api/internal/queue"
	"github.com/noah-isme/mathgrade-go-api/internal/utils"
)

// GradingService is the slice of the grading pipeline the HTTP layer needs.
type GradingService interface {
	GradeSubmission(ctx context.Context, req *dto.GradingRequest) dto.GradingResult
	AvailableProviders() []string
	HealthCheck(ctx context.Context) dto.HealthStatus
}

// GradingHandler manages grading endpoints.
type GradingHandler struct {
	service   GradingService
	queue     queue.Queue
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGradingHandler builds a grading handler instance. The queue may be nil,
// which disables async submission.
func NewGradingHandler(service GradingService, q queue.Queue, validator *validator.Validate, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service:   service,
		queue:     q,
		validator: validator,
		logger:    logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/grade", h.grade)
	router.Post("/grade/async", h.gradeAsync)
	router.Get("/providers", h.providers)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	req, err := h.parseRequest(c)
	if err != nil {
		if isValidationError(err) {
			return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "invalid grading request", err.Error())
		}
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result := h.service.GradeSubmission(c.Context(), req)
	if !result.Success {
		// The pipeline failed upstream, not the caller's request. The
		// result body still carries metrics and the review flag.
		return utils.SendErrorWithDetail(c, fiber.StatusBadGateway, "grading failed", result.Error)
	}

	return utils.SendSuccess(c, "submission graded", result)
}

func (h *GradingHandler) gradeAsync(c *fiber.Ctx) error {
	if h.queue == nil {
		return utils.SendError(c, fiber.StatusNotImplemented, "async grading is not enabled")
	}

	req, err := h.parseRequest(c)
	if err != nil {
		if isValidationError(err) {
			return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "invalid grading request", err.Error())
		}
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if req.SubmissionID == "" {
		req.SubmissionID = uuid.NewString()
	}

	item := queue.Item{ID: uuid.NewString(), Request: *req}
	if err := h.queue.Enqueue(c.Context(), item); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("enqueue grading request")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to enqueue submission")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "submission queued", fiber.Map{
		"item_id":       item.ID,
		"submission_id": req.SubmissionID,
	})
}

func (h *GradingHandler) providers(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "providers retrieved", fiber.Map{
		"providers": h.service.AvailableProviders(),
	})
}

func (h *GradingHandler) parseRequest(c *fiber.Ctx) (*dto.GradingRequest, error) {
	var req dto.GradingRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, err
	}
	if err := h.validator.Struct(req); err != nil {
		return nil, err
	}
	return &req, nil
}
