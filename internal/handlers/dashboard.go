package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/maintdb/internal/cache"
	"github.com/localnerve/maintdb/internal/config"
	"github.com/localnerve/maintdb/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DashboardHandler handles the home summary and health routes
type DashboardHandler struct {
	DB     *gorm.DB
	Cache  *cache.QueryCache
	Logger *zap.Logger
	Config *config.Config
}

// GetDashboard handles GET /api/dashboard
// @Summary Dashboard counts
// @Description Maintenances in progress and completed, and requests per status
// @Tags Dashboard
// @Produce json
// @Success 200 {object} services.Dashboard
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	result, err := cache.Fetch(c.UserContext(), h.Cache, cache.Key{Entity: cache.Dashboard},
		func(ctx context.Context) (*services.Dashboard, error) {
			return services.GetDashboard(ctx, h.DB)
		})
	if err != nil {
		return respondError(c, h.Logger, err, "getDashboard")
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// GetHealth handles GET /api/health
// @Summary Health check
// @Tags Dashboard
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *DashboardHandler) GetHealth(c *fiber.Ctx) error {
	result := services.HealthCheck(c.UserContext(), h.Config, h.DB, h.Logger)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
