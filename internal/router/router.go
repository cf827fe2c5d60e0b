package router

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/handlers"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/metrics"
	"github.com/demandcast/demandcast/internal/middleware"
	"github.com/demandcast/demandcast/internal/services"
)

// Setup configures all routes and middlewares. m may be nil when metrics are disabled.
func Setup(app *fiber.App, logger *logging.Logger, forecastService *services.ForecastService, m *metrics.Metrics, cfg config.Config) *handlers.Handler {
	h := handlers.New(logger, forecastService)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))

	logCfg := logging.DefaultMiddlewareConfig()
	if cfg.Metrics.Path != "" {
		logCfg.SkipPaths = append(logCfg.SkipPaths, cfg.Metrics.Path)
	}
	app.Use(logging.FiberMiddlewareWithConfig(logger, logCfg))

	app.Get("/health", h.Health)
	if m != nil && cfg.Metrics.Enabled {
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(m.Handler()))
	}

	v1 := app.Group("/v1")

	// Forecast Routes
	v1.Post("/forecast", h.Forecast)
	v1.Post("/forecast/csv", h.ForecastCSV)
	v1.Post("/forecast/chart", h.ForecastChart)
	v1.Post("/forecast/batch", h.ForecastBatch)
	v1.Post("/forecast/groups", h.Groups)

	// Discovery Routes
	v1.Get("/methods", h.Methods)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, forecastService *services.ForecastService, m *metrics.Metrics, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "demandcast",
		DisableStartupMessage: true,
		BodyLimit:             cfg.Server.BodyLimit,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, forecastService, m, cfg)

	return app
}
