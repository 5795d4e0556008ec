package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// EchoServer serves the document with Echo v4
type EchoServer struct {
	engine *echo.Echo
	store  *Store
}

// NewEchoServer creates an Echo server with the document routes mounted
func NewEchoServer(store *Store) *EchoServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &EchoServer{engine: e, store: store}
	e.GET(JSONPath, s.document(false))
	e.GET(YAMLPath, s.document(true))
	e.GET(HealthPath, s.health)
	return s
}

func (s *EchoServer) document(yaml bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, contentType, ok := s.store.document(yaml)
		if !ok {
			return c.JSON(http.StatusServiceUnavailable, notBuilt)
		}
		return c.Blob(http.StatusOK, contentType, body)
	}
}

func (s *EchoServer) health(c echo.Context) error {
	code, body := s.store.health()
	return c.JSON(code, body)
}

// Start starts the server
func (s *EchoServer) Start(addr string) error {
	return s.engine.Start(addr)
}

// Stop stops the server
func (s *EchoServer) Stop(ctx context.Context) error {
	return s.engine.Shutdown(ctx)
}

// Name returns the adapter name
func (s *EchoServer) Name() string {
	return "Echo"
}
