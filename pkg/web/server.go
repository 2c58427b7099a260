// Package web serves the voice pipeline HTTP surface: the pipeline
// endpoint, its health probe, and the live event feed.
package web

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/intervox-ai/intervox/pkg/hub"
	"github.com/intervox-ai/intervox/pkg/interview"
	"github.com/intervox-ai/intervox/pkg/pipeline"
)

// Config wires the server's collaborators.
type Config struct {
	// Port to listen on, e.g. "8080".
	Port string

	// Orchestrator runs pipeline requests. Required.
	Orchestrator *pipeline.Orchestrator

	// Transcript is the shared conversation log. Optional.
	Transcript *interview.Transcript

	// Events receives pipeline events for /ws/events. Optional.
	Events *hub.Hub

	Logger *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	app        *fiber.App
	port       string
	orch       *pipeline.Orchestrator
	transcript *interview.Transcript
	events     *hub.Hub
	started    time.Time
	logger     *slog.Logger
}

// NewServer builds the Fiber app and its routes.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		port:       cfg.Port,
		orch:       cfg.Orchestrator,
		transcript: cfg.Transcript,
		events:     cfg.Events,
		started:    time.Now(),
		logger:     logger.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "intervox",
		DisableStartupMessage: true,
		BodyLimit:             32 * 1024 * 1024, // base64 audio clips
	})

	app.Use(cors.New())

	api := app.Group("/api/voice")
	api.Post("/pipeline", s.handlePipeline)
	api.Get("/pipeline", s.handleHealth)

	if s.events != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/events", websocket.New(s.handleEventsWS))
	}

	s.app = app
	return s
}

// Start runs the event hub and listens. Blocks until shutdown.
func (s *Server) Start() error {
	if s.events != nil {
		go s.events.Run()
	}
	s.logger.Info("listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the server and the event hub.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	if s.events != nil {
		s.events.Stop()
	}
	return err
}

// App exposes the Fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// handleEventsWS attaches a websocket client to the event feed.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.events, c)
	client.Run()
}
