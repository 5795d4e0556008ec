package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// FiberServer serves the document with Fiber
type FiberServer struct {
	app   *fiber.App
	store *Store
}

// NewFiberServer creates a Fiber server with the document routes mounted
func NewFiberServer(store *Store) *FiberServer {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(recover.New())

	s := &FiberServer{app: app, store: store}
	app.Get(JSONPath, s.document(false))
	app.Get(YAMLPath, s.document(true))
	app.Get(HealthPath, s.health)
	return s
}

func (s *FiberServer) document(yaml bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, contentType, ok := s.store.document(yaml)
		if !ok {
			return c.Status(fiber.StatusServiceUnavailable).JSON(notBuilt)
		}
		c.Set(fiber.HeaderContentType, contentType)
		return c.Status(fiber.StatusOK).Send(body)
	}
}

func (s *FiberServer) health(c *fiber.Ctx) error {
	code, body := s.store.health()
	return c.Status(code).JSON(body)
}

// Start starts the server
func (s *FiberServer) Start(addr string) error {
	return s.app.Listen(addr)
}

// Stop stops the server
func (s *FiberServer) Stop(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// Name returns the adapter name
func (s *FiberServer) Name() string {
	return "Fiber"
}
