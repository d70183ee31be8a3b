// Package api exposes the HTTP surface of the service.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gmsas95/vitalink/internal/assistant"
	"github.com/gmsas95/vitalink/internal/config"
	"github.com/gmsas95/vitalink/internal/health"
	"github.com/gmsas95/vitalink/internal/identity"
	"github.com/gmsas95/vitalink/internal/reminder"
	"github.com/gmsas95/vitalink/internal/reports"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Server handles the HTTP API.
type Server struct {
	app       *fiber.App
	config    *config.Config
	logger    *zap.Logger
	resolver  *identity.Resolver
	healthSvc *health.Service
	reminders *reminder.Service
	extractor *assistant.Extractor
	reports   *reports.Client
}

// New creates an API server wired to the given services.
func New(cfg *config.Config, logger *zap.Logger, healthSvc *health.Service, reminders *reminder.Service, extractor *assistant.Extractor, reportsClient *reports.Client) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    20 * 1024 * 1024, // report uploads
	})

	s := &Server{
		app:       app,
		config:    cfg,
		logger:    logger,
		resolver:  identity.NewResolver(cfg.Security.JWTSecret),
		healthSvc: healthSvc,
		reminders: reminders,
		extractor: extractor,
		reports:   reportsClient,
	}

	s.setupRoutes()
	return s
}

// Start begins listening.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown drains and stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
