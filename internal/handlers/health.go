package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/rediswatch/internal/models"
)

// Health reports the monitor itself as healthy along with how many of the
// registered targets answered their last collection.
func (h *Handler) Health(c *fiber.Ctx) error {
	entries := h.registry.Entries()
	available := 0
	for _, e := range entries {
		if e.Available() {
			available++
		}
	}
	return c.JSON(models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
		Targets:   len(entries),
		Available: available,
	})
}

// NotFound answers unmatched routes
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
