package handlers

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/registry"
)

// ListTargets returns every registered address
func (h *Handler) ListTargets(c *fiber.Ctx) error {
	return h.list(c, h.registry.Entries())
}

// ListNodes returns the Redis node targets
func (h *Handler) ListNodes(c *fiber.Ctx) error {
	return h.list(c, h.registry.Nodes())
}

// ListProxies returns the proxy targets
func (h *Handler) ListProxies(c *fiber.Ctx) error {
	return h.list(c, h.registry.Proxies())
}

// GetNode returns one Redis node by address
func (h *Handler) GetNode(c *fiber.Ctx) error {
	return h.get(c, models.RoleNode)
}

// GetProxy returns one proxy by address
func (h *Handler) GetProxy(c *fiber.Ctx) error {
	return h.get(c, models.RoleProxy)
}

// list renders entries, optionally filtered by ?available=true|false
func (h *Handler) list(c *fiber.Ctx, entries []*registry.Entry) error {
	filter := c.Query("available")
	var want bool
	if filter != "" {
		v, err := strconv.ParseBool(filter)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "available must be true or false")
		}
		want = v
	}

	targets := make([]models.TargetState, 0, len(entries))
	for _, entry := range entries {
		if filter != "" && entry.Available() != want {
			continue
		}
		targets = append(targets, stateOf(entry))
	}

	return c.JSON(models.TargetListResponse{
		Targets: targets,
		Total:   len(targets),
	})
}

func (h *Handler) get(c *fiber.Ctx, role models.Role) error {
	addr, err := url.PathUnescape(c.Params("addr"))
	if err != nil || addr == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid address")
	}

	entry, ok := h.registry.Get(addr)
	if !ok || entry.Target().Role != role {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "TARGET_NOT_FOUND",
				Message: string(role) + " " + addr + " is not monitored",
				Path:    c.Path(),
			},
		})
	}
	return c.JSON(stateOf(entry))
}
