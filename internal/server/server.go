// Package server exposes the flows, the session manager and talent sourcing
// over HTTP.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/flows"
	"github.com/spigell/talenthub/internal/session"
	"github.com/spigell/talenthub/internal/storage"
	"github.com/spigell/talenthub/internal/talent"
)

const (
	appName          = "TalentHub API"
	defaultBodyLimit = 16 * 1024 * 1024
)

type Options struct {
	Flows    *flows.Service
	Sessions *session.Registry
	Talent   *talent.Candidates
	// Store archives uploaded documents. Nil disables archiving.
	Store     storage.Store
	Logger    *zap.Logger
	BodyLimit int
}

type Server struct {
	app      *fiber.App
	flows    *flows.Service
	sessions *session.Registry
	talent   *talent.Candidates
	store    storage.Store
	logger   *zap.Logger
	started  time.Time
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Talent == nil {
		opts.Talent = talent.Default()
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = defaultBodyLimit
	}

	s := &Server{
		flows:    opts.Flows,
		sessions: opts.Sessions,
		talent:   opts.Talent,
		store:    opts.Store,
		logger:   opts.Logger.With(zap.String("component", "http")),
		started:  time.Now(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		// Model calls with attachments can take a while.
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    opts.BodyLimit,
		ErrorHandler: s.errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	s.app.Use(s.accessLog)

	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().UTC(),
			"uptime":   time.Since(s.started).Round(time.Second).String(),
			"sessions": s.sessions.Len(),
		})
	})

	auth := api.Group("/auth")
	auth.Post("/login", s.handleLogin)
	auth.Post("/signup", s.handleSignUp)
	auth.Post("/logout", s.requireAuth(), s.handleLogout)

	sess := api.Group("/session", s.requireAuth())
	sess.Get("/", s.handleSession)
	sess.Put("/role", s.handleSetRole)
	sess.Get("/tools", s.handleTools)

	api.Post("/resume/rate", s.requireAuth(), s.requireTool(session.ToolResumeScreening), s.handleFlow(flows.FlowRateResume))
	api.Post("/skills/gap", s.requireAuth(), s.requireTool(session.ToolSkillGap), s.handleFlow(flows.FlowSkillGap))
	api.Post("/wellbeing/suggest", s.requireAuth(), s.requireTool(session.ToolWellness), s.handleFlow(flows.FlowWellbeing))
	api.Post("/appraisal/analyze", s.requireAuth(), s.requireTool(session.ToolAppraisal), s.handleFlow(flows.FlowAppraisal))

	tal := api.Group("/talent", s.requireAuth(), s.requireTool(session.ToolTalentSourcing))
	tal.Get("/candidates", s.handleCandidates)
	tal.Get("/roles", s.handleRoles)
}

// App exposes the underlying fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("server starting", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and closes every session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.sessions.Close()
	return err
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
	}
	s.logger.Debug("request handled",
		zap.String("request_id", requestID(c)),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
	)
	return err
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
