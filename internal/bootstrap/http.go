package bootstrap

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/batch-trace/internal/handler"
	"github.com/kursadbilgin/batch-trace/internal/observability"
	"github.com/kursadbilgin/batch-trace/internal/transport"
)

// NewHTTPApp builds the fiber app serving health, metrics and the dashboard
// routes.
func (a *App) NewHTTPApp() (*fiber.App, error) {
	server := fiber.New(fiber.Config{
		AppName:               "batch-trace",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(a.Logger),
	})

	server.Use(observability.RequestContextMiddleware())
	server.Use(a.Metrics.HTTPMiddleware(transport.StatusFromError))

	handler.RegisterHealthRoutes(server, map[string]handler.Pinger{
		a.Config.StoreDriver: a.Store,
	})
	server.Get("/metrics", adaptor.HTTPHandler(a.Metrics.Handler()))

	if err := handler.RegisterRoutes(server, a.Services()); err != nil {
		return nil, err
	}
	return server, nil
}
