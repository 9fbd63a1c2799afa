package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mathgrade-go-api/internal/config"
	"github.com/noah-isme/mathgrade-go-api/internal/dto"
	"github.com/noah-isme/mathgrade-go-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string           `json:"status"`
	Timestamp   time.Time        `json:"timestamp"`
	Service     string           `json:"service"`
	Environment string           `json:"environment"`
	Upstreams   dto.HealthStatus `json:"upstreams"`
}

// HealthCheck returns a handler that reports application and upstream
// provider health. service may be nil during partial startup.
func HealthCheck(cfg config.Config, service GradingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}
		if service != nil {
			payload.Upstreams = service.HealthCheck(c.Context())
			payload.Status = payload.Upstreams.Status
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
