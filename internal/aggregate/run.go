// Package aggregate merges canonical endpoints, schemas and security schemes
// from every analyzed file into one document. Merging is first-seen-wins:
// the earliest contribution is kept and a differing later one is recorded as
// a conflict.
package aggregate

import (
	stderrors "errors"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/toyz/spectra/internal/errors"
	"github.com/toyz/spectra/internal/ir"
	"github.com/toyz/spectra/internal/normalize"
)

// ErrSealed is returned when a run is modified after Build
var ErrSealed = stderrors.New("aggregate run is sealed")

// Conflict kinds
const (
	KindEndpoint       = "endpoint"
	KindSchema         = "schema"
	KindSecurityScheme = "security scheme"
)

// Conflict records two differing definitions for the same key
type Conflict struct {
	Kind   string
	Key    string
	First  ir.Location
	Second ir.Location
}

// Err renders the conflict as a diagnostic
func (c Conflict) Err() errors.SpectraError {
	return errors.NewConflict(c.Kind, c.Key, sourceLocation(c.First), sourceLocation(c.Second))
}

type pathEntry struct {
	path       string
	operations []ir.Endpoint
}

// Run is the explicit context of one aggregation. It is safe for concurrent
// use, but discovery order is the order of Add calls, so callers that need a
// deterministic document must add sequentially.
type Run struct {
	ID   string
	info ir.Info

	mu        sync.Mutex
	sealed    bool
	paths     []*pathEntry
	pathIndex map[string]*pathEntry
	schemas   []ir.Schema
	schemaAt  map[string]int
	schemes   []ir.SecurityScheme
	schemeAt  map[string]int
	conflicts []Conflict
}

// NewRun creates an empty run for a document with the given header
func NewRun(info ir.Info) *Run {
	return &Run{
		ID:        uuid.NewString(),
		info:      info,
		pathIndex: make(map[string]*pathEntry),
		schemaAt:  make(map[string]int),
		schemeAt:  make(map[string]int),
	}
}

// Add merges one endpoint. An identical endpoint for the same method and path
// is a no-op; a differing one is dropped and recorded as a conflict.
func (r *Run) Add(ep ir.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}

	entry, ok := r.pathIndex[ep.Path]
	if !ok {
		entry = &pathEntry{path: ep.Path}
		r.pathIndex[ep.Path] = entry
		r.paths = append(r.paths, entry)
	}
	for _, existing := range entry.operations {
		if existing.Method != ep.Method {
			continue
		}
		if !sameEndpoint(existing, ep) {
			r.conflicts = append(r.conflicts, Conflict{
				Kind:   KindEndpoint,
				Key:    ep.Key(),
				First:  existing.Source,
				Second: ep.Source,
			})
		}
		return nil
	}
	entry.operations = append(entry.operations, ep)
	return nil
}

// AddSchema merges one component schema by name
func (r *Run) AddSchema(s ir.Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}

	if i, ok := r.schemaAt[s.Name]; ok {
		if !r.schemas[i].SameShape(s) {
			r.conflicts = append(r.conflicts, Conflict{
				Kind:   KindSchema,
				Key:    s.Name,
				First:  r.schemas[i].Source,
				Second: s.Source,
			})
		}
		return nil
	}
	r.schemaAt[s.Name] = len(r.schemas)
	r.schemas = append(r.schemas, s)
	return nil
}

// AddSecurityScheme merges one security scheme by name
func (r *Run) AddSecurityScheme(s ir.SecurityScheme) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}

	if i, ok := r.schemeAt[s.Name]; ok {
		if !sameScheme(r.schemes[i], s) {
			r.conflicts = append(r.conflicts, Conflict{
				Kind:   KindSecurityScheme,
				Key:    s.Name,
				First:  r.schemes[i].Source,
				Second: s.Source,
			})
		}
		return nil
	}
	r.schemeAt[s.Name] = len(r.schemes)
	r.schemes = append(r.schemes, s)
	return nil
}

// Conflicts returns the conflicts recorded so far
func (r *Run) Conflicts() []Conflict {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Conflict, len(r.conflicts))
	copy(out, r.conflicts)
	return out
}

// Build seals the run and assembles the document. References to schemas no
// file defined fall back to the type their front-end chose, and requirements
// naming an undeclared scheme get a placeholder bearer scheme. Both cases are
// reported as warnings.
func (r *Run) Build() (*ir.Document, []Conflict, []errors.SpectraError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true

	var warnings []errors.SpectraError
	known := func(name string) bool {
		_, ok := r.schemaAt[name]
		return ok
	}
	reported := make(map[string]bool)
	resolve := func(t ir.Type, loc ir.Location) ir.Type {
		out, dropped := t.Resolve(known)
		for _, name := range dropped {
			if reported[name] {
				continue
			}
			reported[name] = true
			warnings = append(warnings, errors.NewAmbiguousFact(loc.File, loc.Line,
				"schema '%s' is referenced but never defined, using its fallback type", name))
		}
		return out
	}

	paths := make([]ir.PathItem, 0, len(r.paths))
	for _, entry := range r.paths {
		item := ir.PathItem{Path: entry.path, Operations: make([]ir.Endpoint, 0, len(entry.operations))}
		for _, ep := range entry.operations {
			item.Operations = append(item.Operations, resolveEndpoint(ep, resolve))
		}
		paths = append(paths, item)
	}

	schemas := make([]ir.Schema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out := s
		out.Properties = make([]ir.Property, len(s.Properties))
		for i, p := range s.Properties {
			out.Properties[i] = ir.Property{Name: p.Name, Type: resolve(p.Type, s.Source)}
		}
		schemas = append(schemas, out)
	}

	schemes := make([]ir.SecurityScheme, len(r.schemes))
	copy(schemes, r.schemes)
	defined := make(map[string]bool, len(schemes))
	for _, s := range schemes {
		defined[s.Name] = true
	}
	for _, item := range paths {
		for _, ep := range item.Operations {
			for _, req := range ep.Security {
				if defined[req.Scheme] {
					continue
				}
				defined[req.Scheme] = true
				schemes = append(schemes, normalize.PlaceholderScheme(req.Scheme))
				warnings = append(warnings, errors.NewAmbiguousFact(ep.Source.File, ep.Source.Line,
					"security scheme '%s' is required but never declared, defining it as http bearer", req.Scheme))
			}
		}
	}

	conflicts := make([]Conflict, len(r.conflicts))
	copy(conflicts, r.conflicts)

	return ir.NewDocument(r.info, paths, schemas, schemes), conflicts, warnings
}

func resolveEndpoint(ep ir.Endpoint, resolve func(ir.Type, ir.Location) ir.Type) ir.Endpoint {
	out := ep
	if len(ep.Parameters) > 0 {
		out.Parameters = make([]ir.Parameter, len(ep.Parameters))
		for i, p := range ep.Parameters {
			p.Schema = resolve(p.Schema, ep.Source)
			out.Parameters[i] = p
		}
	}
	if ep.RequestBody != nil {
		body := *ep.RequestBody
		body.Schema = resolve(body.Schema, ep.Source)
		out.RequestBody = &body
	}
	if len(ep.Responses) > 0 {
		out.Responses = make([]ir.Response, len(ep.Responses))
		for i, resp := range ep.Responses {
			if resp.Schema != nil {
				schema := resolve(*resp.Schema, ep.Source)
				resp.Schema = &schema
			}
			out.Responses[i] = resp
		}
	}
	return out
}

// sameEndpoint compares everything except where the endpoint was declared
func sameEndpoint(a, b ir.Endpoint) bool {
	a.Source, b.Source = ir.Location{}, ir.Location{}
	return reflect.DeepEqual(a, b)
}

func sameScheme(a, b ir.SecurityScheme) bool {
	a.Source, b.Source = ir.Location{}, ir.Location{}
	return a == b
}

func sourceLocation(loc ir.Location) errors.SourceLocation {
	return errors.SourceLocation{File: loc.File, Line: loc.Line}
}
