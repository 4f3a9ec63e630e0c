package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"exchange/src/config"
	"exchange/src/handlers"
	"exchange/src/metrics"
	"exchange/src/middleware"
)

// SetupRoutes registers the API. m may be nil, in which case the Prometheus
// endpoint is not mounted.
func SetupRoutes(app *fiber.App, orderHandler *handlers.OrderHandler, cfg config.ServerConfig, m *metrics.Metrics) *middleware.ServiceAvailability {
	serviceAvailability := middleware.NewServiceAvailability(cfg.MaxConcurrentRequests, cfg.MaintenanceMode)
	app.Use(serviceAvailability.Middleware())
	if cfg.RequestLogging {
		app.Use(middleware.RequestLogger())
	}

	api := app.Group("/api/v1")

	if !cfg.RateLimitDisabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
		api.Use(rateLimiter.Middleware())
	}

	api.Post("/orders", orderHandler.SubmitOrder)
	api.Get("/orders/:id", orderHandler.GetOrderStatus)
	api.Get("/orderbook/:asset", orderHandler.GetOrderBook)
	api.Get("/traders", orderHandler.ListTraders)
	api.Get("/traders/:name", orderHandler.GetTrader)

	app.Get("/health", orderHandler.HealthCheck)
	app.Get("/metrics", orderHandler.Metrics)
	if m != nil {
		app.Get("/metrics/prometheus", adaptor.HTTPHandler(m.Handler()))
	}

	return serviceAvailability
}
