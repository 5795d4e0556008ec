package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinServer serves the document with Gin
type GinServer struct {
	engine *gin.Engine
	store  *Store
	server *http.Server
}

// NewGinServer creates a Gin server with the document routes mounted
func NewGinServer(store *Store) *GinServer {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &GinServer{engine: engine, store: store, server: &http.Server{Handler: engine}}
	engine.GET(JSONPath, s.document(false))
	engine.GET(YAMLPath, s.document(true))
	engine.GET(HealthPath, s.health)
	return s
}

func (s *GinServer) document(yaml bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, contentType, ok := s.store.document(yaml)
		if !ok {
			c.JSON(http.StatusServiceUnavailable, notBuilt)
			return
		}
		c.Data(http.StatusOK, contentType, body)
	}
}

func (s *GinServer) health(c *gin.Context) {
	code, body := s.store.health()
	c.JSON(code, body)
}

// Start starts the server
func (s *GinServer) Start(addr string) error {
	s.server.Addr = addr
	return s.server.ListenAndServe()
}

// Stop stops the server
func (s *GinServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Name returns the adapter name
func (s *GinServer) Name() string {
	return "Gin"
}
