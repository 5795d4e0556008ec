// Package ir holds the canonical, framework-agnostic representation every
// front-end converges to.
package ir

import (
	"fmt"
	"strings"
)

// Methods lists the accepted HTTP methods in canonical order
var Methods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD", "TRACE"}

// IsMethod reports whether m is an accepted upper-case HTTP method
func IsMethod(m string) bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// Parameter locations
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InCookie = "cookie"
)

// Primitive type names
const (
	String  = "string"
	Integer = "integer"
	Number  = "number"
	Boolean = "boolean"
)

// TypeKind distinguishes the shapes a Type can take
type TypeKind int

const (
	KindPrimitive TypeKind = iota
	KindArray
	KindRef
	KindObject
	KindNullable
)

// Type is the schema model shared by every front-end. A ref carries the
// fallback its front-end wants when the referenced schema never shows up.
type Type struct {
	Kind      TypeKind
	Primitive string
	Format    string
	Items     *Type
	Ref       string
	Fallback  *Type
}

// Prim builds a primitive type
func Prim(name string) Type {
	return Type{Kind: KindPrimitive, Primitive: name}
}

// PrimFormat builds a primitive type with a format hint
func PrimFormat(name, format string) Type {
	return Type{Kind: KindPrimitive, Primitive: name, Format: format}
}

// ArrayOf builds an array type
func ArrayOf(item Type) Type {
	return Type{Kind: KindArray, Items: &item}
}

// NullableOf wraps a type as nullable. Wrapping twice is a no-op.
func NullableOf(inner Type) Type {
	if inner.Kind == KindNullable {
		return inner
	}
	return Type{Kind: KindNullable, Items: &inner}
}

// RefTo builds a reference to a named schema
func RefTo(name string, fallback Type) Type {
	return Type{Kind: KindRef, Ref: name, Fallback: &fallback}
}

// AnyObject is the free-form object type
func AnyObject() Type {
	return Type{Kind: KindObject}
}

// String renders the type compactly, mostly for diagnostics and tests
func (t Type) String() string {
	switch t.Kind {
	case KindPrimitive:
		if t.Format != "" {
			return t.Primitive + "(" + t.Format + ")"
		}
		return t.Primitive
	case KindArray:
		return "array<" + t.Items.String() + ">"
	case KindRef:
		return "#" + t.Ref
	case KindNullable:
		return t.Items.String() + "?"
	default:
		return "object"
	}
}

// Equal compares two types structurally
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind || t.Primitive != o.Primitive || t.Format != o.Format || t.Ref != o.Ref {
		return false
	}
	if (t.Items == nil) != (o.Items == nil) {
		return false
	}
	if t.Items != nil && !t.Items.Equal(*o.Items) {
		return false
	}
	return true
}

// Refs returns every schema name referenced by the type
func (t Type) Refs() []string {
	switch t.Kind {
	case KindRef:
		return []string{t.Ref}
	case KindArray, KindNullable:
		return t.Items.Refs()
	}
	return nil
}

// Resolve replaces references for which known returns false with their
// fallback. It returns the rewritten type and the names that were dropped.
func (t Type) Resolve(known func(string) bool) (Type, []string) {
	switch t.Kind {
	case KindRef:
		if known(t.Ref) {
			return t, nil
		}
		if t.Fallback == nil {
			return AnyObject(), []string{t.Ref}
		}
		return *t.Fallback, []string{t.Ref}
	case KindArray, KindNullable:
		inner, dropped := t.Items.Resolve(known)
		out := t
		out.Items = &inner
		return out, dropped
	}
	return t, nil
}

// Location identifies where a fact was declared
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.Line == 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Parameter is a canonical operation parameter
type Parameter struct {
	Name     string
	In       string
	Required bool
	Schema   Type
	Default  string
}

// Body is a canonical request body
type Body struct {
	Required    bool
	ContentType string
	Schema      Type
}

// Response is a canonical response descriptor keyed by status
type Response struct {
	Status      string
	Description string
	// ContentType of the response body; empty means application/json
	ContentType string
	Schema      *Type
}

// SecurityRequirement names a scheme and the scopes it needs
type SecurityRequirement struct {
	Scheme string
	Scopes []string
}

// Endpoint is one (method, path) surface point
type Endpoint struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Parameters  []Parameter
	RequestBody *Body
	Responses   []Response
	Security    []SecurityRequirement
	Deprecated  bool
	Source      Location
}

// Key returns the "METHOD path" identity of the endpoint
func (e Endpoint) Key() string {
	return e.Method + " " + e.Path
}

// Refs returns every schema name the endpoint references
func (e Endpoint) Refs() []string {
	var refs []string
	for _, p := range e.Parameters {
		refs = append(refs, p.Schema.Refs()...)
	}
	if e.RequestBody != nil {
		refs = append(refs, e.RequestBody.Schema.Refs()...)
	}
	for _, r := range e.Responses {
		if r.Schema != nil {
			refs = append(refs, r.Schema.Refs()...)
		}
	}
	return refs
}

// Property is one ordered schema property
type Property struct {
	Name string
	Type Type
}

// Schema is a named structural type
type Schema struct {
	Name       string
	Properties []Property
	Required   []string
	Source     Location
}

// SameShape compares two schemas ignoring their source location
func (s Schema) SameShape(o Schema) bool {
	if s.Name != o.Name || len(s.Properties) != len(o.Properties) || len(s.Required) != len(o.Required) {
		return false
	}
	for i := range s.Properties {
		if s.Properties[i].Name != o.Properties[i].Name || !s.Properties[i].Type.Equal(o.Properties[i].Type) {
			return false
		}
	}
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	for _, r := range o.Required {
		if !required[r] {
			return false
		}
	}
	return true
}

// SecurityScheme is a named authentication scheme
type SecurityScheme struct {
	Name     string
	Type     string // http | apiKey | oauth2
	Scheme   string // bearer | basic for http
	In       string // header | query | cookie for apiKey
	KeyName  string
	TokenURL string
	Source   Location
}

// Info is the document header
type Info struct {
	Title       string
	Version     string
	Description string
}

// PathItem groups the operations of one path in discovery order
type PathItem struct {
	Path       string
	Operations []Endpoint
}

// Document is the unified, read-only result of one run
type Document struct {
	info            Info
	paths           []PathItem
	schemas         []Schema
	securitySchemes []SecurityScheme
}

// NewDocument assembles a document. The slices are owned by the document.
func NewDocument(info Info, paths []PathItem, schemas []Schema, schemes []SecurityScheme) *Document {
	return &Document{info: info, paths: paths, schemas: schemas, securitySchemes: schemes}
}

// Info returns the document header
func (d *Document) Info() Info { return d.info }

// Paths returns a copy of the path items in discovery order
func (d *Document) Paths() []PathItem {
	out := make([]PathItem, len(d.paths))
	copy(out, d.paths)
	return out
}

// Schemas returns a copy of the component schemas in discovery order
func (d *Document) Schemas() []Schema {
	out := make([]Schema, len(d.schemas))
	copy(out, d.schemas)
	return out
}

// SecuritySchemes returns a copy of the security schemes in discovery order
func (d *Document) SecuritySchemes() []SecurityScheme {
	out := make([]SecurityScheme, len(d.securitySchemes))
	copy(out, d.securitySchemes)
	return out
}

// EndpointCount returns the number of (path, method) entries
func (d *Document) EndpointCount() int {
	n := 0
	for _, p := range d.paths {
		n += len(p.Operations)
	}
	return n
}

// Lookup finds an endpoint by method and canonical path
func (d *Document) Lookup(method, path string) (Endpoint, bool) {
	method = strings.ToUpper(method)
	for _, p := range d.paths {
		if p.Path != path {
			continue
		}
		for _, op := range p.Operations {
			if op.Method == method {
				return op, true
			}
		}
	}
	return Endpoint{}, false
}

// Schema finds a component schema by name
func (d *Document) Schema(name string) (Schema, bool) {
	for _, s := range d.schemas {
		if s.Name == name {
			return s, true
		}
	}
	return Schema{}, false
}
