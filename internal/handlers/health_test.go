package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Health(t *testing.T) {
	handler := New(logging.NewNop(), registry.New())

	app := fiber.New()
	app.Get("/health", handler.Health)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var healthResp models.HealthResponse
	require.NoError(t, json.Unmarshal(body, &healthResp))
	assert.Equal(t, "healthy", healthResp.Status)
	assert.Equal(t, Version, healthResp.Version)
	assert.NotEmpty(t, healthResp.Timestamp)
}

func TestHandler_HealthCountsTargets(t *testing.T) {
	reg := registry.New()
	reg.Add(models.Target{Addr: "10.0.0.1:7000", Role: models.RoleNode})
	reg.Add(models.Target{Addr: "10.0.0.1:7001", Role: models.RoleNode})
	e, _ := reg.Get("10.0.0.1:7000")
	e.MarkAvailable()

	app := fiber.New()
	app.Get("/health", New(logging.NewNop(), reg).Health)

	var health models.HealthResponse
	require.Equal(t, fiber.StatusOK, doJSON(t, app, "/health", &health))
	assert.Equal(t, 2, health.Targets)
	assert.Equal(t, 1, health.Available)
}

func TestHandler_NotFound(t *testing.T) {
	handler := New(logging.NewNop(), registry.New())

	app := fiber.New()
	app.Use(handler.NotFound)

	resp, err := app.Test(httptest.NewRequest("GET", "/nonexistent", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Error.Code)
	assert.Equal(t, "Route not found", errResp.Error.Message)
	assert.Equal(t, "/nonexistent", errResp.Error.Path)
}
