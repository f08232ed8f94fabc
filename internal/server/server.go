package server

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"thaitanloi365/picture-protector/protector"
)

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	log        *logrus.Logger
	middleware *middleware
	validator  *validator.Validate
	store      *protector.Store
	sharer     protector.Sharer
	handlers   []handler
	maxUpload  int64
	timeout    time.Duration
	quality    int
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{
		maxUpload: 20 * 1024 * 1024,
		timeout:   30 * time.Second,
		quality:   100,
	}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if server.sharer == nil {
		return nil, fmt.Errorf("sharer is required")
	}
	if server.validator == nil {
		server.validator = validator.New(validator.WithRequiredStructEnabled())
	}
	if server.middleware == nil {
		server.middleware = newMiddleware(server.log, rate.Inf, 0)
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithStore(store *protector.Store) ServerOption {
	return func(s *Server) error {
		s.store = store
		return nil
	}
}

func WithSharer(sharer protector.Sharer) ServerOption {
	return func(s *Server) error {
		s.sharer = sharer
		return nil
	}
}

// WithMiddleware enables request ids, access logging and a per-IP limit of
// reqRate requests per second. A non-positive reqRate disables limiting.
func WithMiddleware(reqRate float64, burst int) ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		limit := rate.Limit(reqRate)
		if reqRate <= 0 {
			limit = rate.Inf
		}
		s.middleware = newMiddleware(s.log, limit, burst)
		return nil
	}
}

func WithLimits(maxUploadMB int, timeout time.Duration) ServerOption {
	return func(s *Server) error {
		if maxUploadMB > 0 {
			s.maxUpload = int64(maxUploadMB) * 1024 * 1024
		}
		if timeout > 0 {
			s.timeout = timeout
		}
		return nil
	}
}

func WithJPEGQuality(quality int) ServerOption {
	return func(s *Server) error {
		s.quality = quality
		return nil
	}
}

// RegisterHandler mounts the middleware chain, the health check and the
// photo API under /api/v1.
func (s *Server) RegisterHandler() {
	s.engine.Use(recover.New(recover.Config{EnableStackTrace: true}))
	s.engine.Use(s.middleware.RequestID())
	s.engine.Use(s.middleware.AccessLog())
	s.engine.Use(s.middleware.RateLimit())

	photoHandlers := NewPhotoHandler(s.log, s.validator, s.store, s.sharer, s.maxUpload, s.timeout, s.quality)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, photoHandlers)

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}
}

func (s *Server) Run(port string) error {
	if port == "" {
		port = "3000"
	}
	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.engine.ShutdownWithContext(ctx)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message":  "Server is Healthy!",
			"sessions": s.store.Len(),
		})
	})
}
