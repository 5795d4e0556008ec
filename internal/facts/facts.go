// Package facts defines the raw, idiom-specific facts front-ends produce for
// one file, before any normalization.
package facts

import (
	"github.com/toyz/spectra/internal/errors"
	"github.com/toyz/spectra/internal/ir"
)

// Location hints a front-end may attach to a parameter
const (
	HintPath   = "path"
	HintQuery  = "query"
	HintHeader = "header"
	HintCookie = "cookie"
	HintBody   = "body"
)

// RouteFact is one route registration as the front-end saw it
type RouteFact struct {
	Method         string
	RawPath        string
	BasePath       string
	Location       ir.Location
	Scope          string // receiver variable or class the route was registered on
	EnclosingClass string
	Handler        string
	Args           Args

	Params      []ParameterFact
	Summary     string
	Description string
	Tags        []string
	OperationID string
	Status      string
	Response    *ir.Type
	Security    []SecurityFact
	Deprecated  bool
}

// ParameterFact is one handler argument
type ParameterFact struct {
	Name           string
	LocationHint   string
	TypeText       string
	Type           ir.Type
	HasDefault     bool
	DefaultLiteral string
	// Required overrides the default-based rule when a front-end has an
	// explicit required flag (e.g. required=false on an annotation).
	Required *bool
}

// IsRequired applies the explicit flag first, then the default-based rule
func (p ParameterFact) IsRequired() bool {
	if p.Required != nil {
		return *p.Required
	}
	return !p.HasDefault
}

// FieldFact is one declared field of a structural type
type FieldFact struct {
	Name     string
	TypeText string
	Type     ir.Type
	Required bool
}

// SchemaFact is a structural type flagged by an ecosystem marker
type SchemaFact struct {
	TypeName string
	Location ir.Location
	Fields   []FieldFact
}

// SecurityFact is a security requirement attached to a route
type SecurityFact struct {
	Scheme string
	Scopes []string
}

// SecuritySchemeFact is an authentication scheme declared in source
type SecuritySchemeFact struct {
	Name     string
	Kind     string // http | apiKey | oauth2
	Scheme   string
	In       string
	KeyName  string
	TokenURL string
	Location ir.Location
}

// FileFacts is the private result set of analyzing a single file. It only
// reaches shared state once analysis of the whole file succeeded.
type FileFacts struct {
	Path            string
	Front           string
	Routes          []RouteFact
	Schemas         []SchemaFact
	SecuritySchemes []SecuritySchemeFact
	Diagnostics     []errors.SpectraError
}

// NewFileFacts creates an empty result set for path
func NewFileFacts(path, front string) *FileFacts {
	return &FileFacts{Path: path, Front: front}
}

// Note records a recoverable diagnostic
func (f *FileFacts) Note(err errors.SpectraError) {
	f.Diagnostics = append(f.Diagnostics, err)
}

// Empty reports whether the file contributed nothing
func (f *FileFacts) Empty() bool {
	return len(f.Routes) == 0 && len(f.Schemas) == 0 && len(f.SecuritySchemes) == 0
}
