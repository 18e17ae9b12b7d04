package router

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/soltixdb/rediswatch/internal/config"
	"github.com/soltixdb/rediswatch/internal/handlers"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/middleware"
	"github.com/soltixdb/rediswatch/internal/registry"
)

// Setup configures all routes and middlewares. metrics may be nil, in
// which case /metrics is not served.
func Setup(app *fiber.App, logger *logging.Logger, reg *registry.Registry, metrics http.Handler, cfg config.Config) *handlers.Handler {
	h := handlers.New(logger, reg)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, logging.DefaultMiddlewareConfig()))

	// Unauthenticated so probes and scrapers need no key
	app.Get("/health", h.Health)
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	v1 := app.Group("/api/v1", middleware.APIKeyAuth(logger, cfg.Auth))

	v1.Get("/targets", h.ListTargets)
	v1.Get("/nodes", h.ListNodes)
	v1.Get("/nodes/:addr", h.GetNode)
	v1.Get("/proxies", h.ListProxies)
	v1.Get("/proxies/:addr", h.GetProxy)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates the reporting API app
func New(logger *logging.Logger, reg *registry.Registry, metrics http.Handler, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "rediswatch",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, reg, metrics, cfg)

	return app
}
