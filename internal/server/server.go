// Package server serves the latest built document over HTTP. The same three
// routes are mounted on whichever web framework the user picked.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/toyz/spectra/internal/emit"
	"github.com/toyz/spectra/internal/ir"
)

// Routes served by every adapter
const (
	JSONPath   = "/openapi.json"
	YAMLPath   = "/openapi.yaml"
	HealthPath = "/healthz"
)

// Content types
const (
	ContentTypeJSON = "application/json"
	ContentTypeYAML = "application/yaml"
)

// Server is implemented by each framework adapter
type Server interface {
	Start(addr string) error
	Stop(ctx context.Context) error
	Name() string
}

// Snapshot is one rendered document
type Snapshot struct {
	RunID     string
	JSON      []byte
	YAML      []byte
	Endpoints int
	BuiltAt   time.Time
}

// Store holds the latest snapshot. Watch-mode rebuilds replace it while
// requests are being served.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Publish renders the document and makes it the served snapshot
func (s *Store) Publish(runID string, doc *ir.Document) error {
	jsonData, err := emit.Render(doc, emit.FormatJSON)
	if err != nil {
		return err
	}
	yamlData, err := emit.Render(doc, emit.FormatYAML)
	if err != nil {
		return err
	}
	s.current.Store(&Snapshot{
		RunID:     runID,
		JSON:      jsonData,
		YAML:      yamlData,
		Endpoints: doc.EndpointCount(),
		BuiltAt:   time.Now().UTC(),
	})
	return nil
}

// Current returns the served snapshot, or nil before the first Publish
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Health is the body of the health route
type Health struct {
	Status    string `json:"status"`
	RunID     string `json:"runId,omitempty"`
	Endpoints int    `json:"endpoints"`
	BuiltAt   string `json:"builtAt,omitempty"`
}

// document picks the body for a document route. The boolean is false while
// nothing has been published yet.
func (s *Store) document(yaml bool) ([]byte, string, bool) {
	snap := s.Current()
	if snap == nil {
		return nil, "", false
	}
	if yaml {
		return snap.YAML, ContentTypeYAML, true
	}
	return snap.JSON, ContentTypeJSON, true
}

func (s *Store) health() (int, Health) {
	snap := s.Current()
	if snap == nil {
		return http.StatusServiceUnavailable, Health{Status: "building"}
	}
	return http.StatusOK, Health{
		Status:    "ok",
		RunID:     snap.RunID,
		Endpoints: snap.Endpoints,
		BuiltAt:   snap.BuiltAt.Format(time.RFC3339),
	}
}

// New creates the adapter for framework
func New(framework string, store *Store) (Server, error) {
	switch framework {
	case "echo":
		return NewEchoServer(store), nil
	case "gin":
		return NewGinServer(store), nil
	case "fiber":
		return NewFiberServer(store), nil
	}
	return nil, fmt.Errorf("unsupported framework: %s", framework)
}

var notBuilt = map[string]string{"error": "document has not been built yet"}
