// Package server exposes the engine to the UI layer over HTTP: list views,
// dashboard rollups, and dependency graphs.
package server

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/buildcrew/sitetrack/internal/metrics"
	"github.com/buildcrew/sitetrack/internal/requestid"
)

// Config holds configuration for the HTTP facade.
type Config struct {
	ListenAddr  string
	CORSOrigins string
}

// Server is the HTTP facade Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	logger   zerolog.Logger
	config   Config
}

// New creates and configures the HTTP facade.
func New(cfg Config, handlers *Handlers, m *metrics.Metrics, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:      app,
		handlers: handlers,
		logger:   logger.With().Str("component", "server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, m, logger)
	s.setupRoutes(handlers, m)

	return s
}

func (s *Server) setupMiddleware(cfg Config, m *metrics.Metrics, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware. A caller-supplied X-Request-ID is kept so the
	// UI layer's trace IDs line up with ours.
	s.app.Use(func(c *fiber.Ctx) error {
		reqID := requestid.Ensure(c.Get(requestid.Header))
		c.SetUserContext(requestid.WithRequestID(c.UserContext(), reqID))
		c.Set(requestid.Header, reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, OPTIONS",
		}))
	}

	// Request logging and per-route counters
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		err := c.Next()
		if path == "/healthz" || path == "/metrics" {
			return err
		}

		status := c.Response().StatusCode()
		if m != nil {
			m.RecordRequest(c.Route().Path, strconv.Itoa(status))
		}
		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Int("status", status).
			Str("request_id", requestid.FromContext(c.UserContext())).
			Msg("api request")
		return err
	})
}

func (s *Server) setupRoutes(h *Handlers, m *metrics.Metrics) {
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)

	if m != nil {
		metricsHandler := fasthttpadaptor.NewFastHTTPHandler(m.Handler())
		s.app.Get("/metrics", func(c *fiber.Ctx) error {
			metricsHandler(c.Context())
			return nil
		})
	}

	v1 := s.app.Group("/api/v1")
	v1.Get("/views/tasks", h.TasksView)
	v1.Get("/views/issues", h.IssuesView)
	v1.Get("/projects/:id/graph", h.ProjectGraph)
	v1.Get("/dashboard/projects", h.ProjectDashboard)
	v1.Get("/dashboard/assignees", h.AssigneeDashboard)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info().Str("addr", addr).Msg("HTTP facade starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("HTTP facade shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// ProblemDetail is the error response body.
type ProblemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Msg("unhandled error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "an internal error occurred"
		}

		return c.Status(code).JSON(ProblemDetail{
			Type:   "about:blank",
			Title:  utils.StatusMessage(code),
			Status: code,
			Detail: detail,
		})
	}
}
