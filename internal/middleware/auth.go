package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/rediswatch/internal/config"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
)

// MinAPIKeyLength is the minimum required length for API keys
const MinAPIKeyLength = 32

// ValidateAPIKey checks if an API key meets the length requirement
func ValidateAPIKey(key string) bool {
	return len(key) >= MinAPIKeyLength && strings.TrimSpace(key) != ""
}

// APIKeyAuth guards the reporting API. Keys are read from X-API-Key or
// from Authorization, with or without a Bearer prefix. Configured keys
// shorter than MinAPIKeyLength are ignored.
func APIKeyAuth(logger *logging.Logger, cfg config.AuthConfig) fiber.Handler {
	if !cfg.Enabled {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	keys := make(map[string]struct{}, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		if !ValidateAPIKey(key) {
			logger.Warn("Ignoring API key below minimum length",
				"key_prefix", maskAPIKey(key),
				"min_required", MinAPIKeyLength)
			continue
		}
		keys[key] = struct{}{}
	}
	if len(keys) == 0 {
		logger.Error("Auth enabled but no usable API key configured, every request will be rejected")
	}

	return func(c *fiber.Ctx) error {
		key := extractAPIKey(c)
		if key == "" {
			logger.Warn("API key missing", "path", c.Path(), "ip", c.IP())
			return unauthorized(c, "API key is required. Provide it via X-API-Key header or Authorization header.")
		}
		if _, ok := keys[key]; !ok {
			logger.Warn("Invalid API key",
				"path", c.Path(),
				"ip", c.IP(),
				"api_key_prefix", maskAPIKey(key))
			return unauthorized(c, "Invalid API key.")
		}
		return c.Next()
	}
}

func extractAPIKey(c *fiber.Ctx) string {
	if key := c.Get("X-API-Key"); key != "" {
		return key
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return auth
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    ErrorCode(fiber.StatusUnauthorized),
			Message: message,
			Path:    c.Path(),
		},
	})
}

// maskAPIKey keeps only the first 4 characters for logs
func maskAPIKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
