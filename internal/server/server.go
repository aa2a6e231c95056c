package server

import (
	"time"

	"finagent-be/internal/bootstrap"
	"finagent-be/internal/config"
	"finagent-be/internal/pkg/metrics"
	"finagent-be/internal/pkg/serverutils"
	"finagent-be/internal/websocket"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "finagent-be",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: serverutils.FiberErrorHandler,
		// turns can run up to the turn timeout plus the fallback timeout
		WriteTimeout: cfg.Rag.TurnTimeout + cfg.Rag.FallbackTimeout + 10*time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.App.CorsAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())
	app.Use(requestMetrics(container.Metrics))

	app.Use(serverutils.ErrorHandlerMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(container.Gatherer, promhttp.HandlerOpts{})))

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.container.Logger.Info("SERVER", "Server is running", map[string]interface{}{
		"address": "http://localhost:" + s.cfg.App.Port,
	})
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(10 * time.Second)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api/v1")

	c.SystemController.RegisterRoutes(api)
	c.ChatController.RegisterRoutes(api)
	c.SQLController.RegisterRoutes(api)

	websocket.RegisterRoutes(app, c.WebSocketHub, c.ChatService, c.Logger)
}

func requestMetrics(collector *metrics.Collector) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		collector.RecordHTTPRequest(ctx.Method(), ctx.Route().Path, status, time.Since(start))
		return err
	}
}
