// Package stubserver is a development stand-in for the Fablecraft backend:
// validated creation endpoints that hand out job ids, an in-memory job
// runner stepping through scripted progress, and a websocket stream pushing
// those steps to subscribed sessions. Serves cmd/devserver and the e2e
// suite; it is scaffolding, not a product server.
package stubserver

import (
	"net"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/fablecraft/appcore/internal/model"
	"github.com/fablecraft/appcore/pkg/response"
)

// Options configures a stub server.
type Options struct {
	JWTSecret  string
	StepDelay  time.Duration // pause between scripted job steps
	LogRequest bool          // request logging, on for the standalone devserver
}

// Server is the stub backend.
type Server struct {
	App  *fiber.App
	opts Options

	hub      *Hub
	jobs     *jobStore
	drafts   *draftStore
	validate *validator.Validate
}

// New builds a stub server with its routes registered and the hub running.
func New(opts Options) *Server {
	if opts.StepDelay == 0 {
		opts.StepDelay = 500 * time.Millisecond
	}

	s := &Server{
		opts:     opts,
		hub:      NewHub(),
		jobs:     newJobStore(),
		drafts:   newDraftStore(),
		validate: validator.New(),
	}
	go s.hub.Run()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	if opts.LogRequest {
		app.Use(logger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", authMiddleware(opts.JWTSecret))
	api.Post("/generations", s.handleCreateGeneration)
	api.Post("/books", s.handleCreateBook)
	api.Post("/drafts", s.handleCreateDraft)
	api.Put("/drafts/:draftId", s.handleUpdateDraft)
	api.Get("/jobs/:jobId", s.handleJobStatus)

	app.Use("/ws", authMiddleware(opts.JWTSecret), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/session", websocket.New(func(c *websocket.Conn) {
		s.hub.HandleConnection(c)
	}))

	s.App = app
	return s
}

// Serve blocks serving on the given listener. Tests use a 127.0.0.1:0
// listener to get a free port.
func (s *Server) Serve(ln net.Listener) error {
	return s.App.Listener(ln)
}

// Start blocks serving on the given address.
func (s *Server) Start(addr string) error {
	return s.App.Listen(addr)
}

// Shutdown stops the HTTP server.
func (s *Server) Shutdown() error {
	return s.App.ShutdownWithTimeout(5 * time.Second)
}

// Hub exposes the push hub, for direct event injection in tests.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) handleCreateGeneration(c *fiber.Ctx) error {
	var req model.GenerationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := s.validate.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	jobID := uuid.New().String()
	job := s.jobs.create(jobID, model.JobKindImage)
	go s.runImageJob(jobID, &req)

	return response.Accepted(c, model.CreateJobResponse{
		JobID:             jobID,
		Kind:              model.JobKindImage,
		Status:            job.Status,
		EstimatedDuration: 30,
		CreatedAt:         job.CreatedAt,
	})
}

func (s *Server) handleCreateBook(c *fiber.Ctx) error {
	var req model.BookGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := s.validate.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	draft, ok := s.drafts.get(req.DraftID)
	if !ok {
		return response.NotFound(c, "Draft not found")
	}

	jobID := uuid.New().String()
	job := s.jobs.create(jobID, model.JobKindBook)
	go s.runBookJob(jobID, draft)

	return response.Accepted(c, model.CreateJobResponse{
		JobID:             jobID,
		Kind:              model.JobKindBook,
		Status:            job.Status,
		EstimatedDuration: 120,
		CreatedAt:         job.CreatedAt,
	})
}

func (s *Server) handleCreateDraft(c *fiber.Ctx) error {
	var req model.DraftRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := s.validate.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	return response.Created(c, s.drafts.create(&req))
}

func (s *Server) handleUpdateDraft(c *fiber.Ctx) error {
	draftID := c.Params("draftId")

	var req model.DraftUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := s.validate.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	draft, ok := s.drafts.update(draftID, &req)
	if !ok {
		return response.NotFound(c, "Draft not found")
	}
	return response.OK(c, draft)
}

func (s *Server) handleJobStatus(c *fiber.Ctx) error {
	status, ok := s.jobs.statusResponse(c.Params("jobId"))
	if !ok {
		return response.NotFound(c, "Job not found")
	}
	return response.OK(c, status)
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
