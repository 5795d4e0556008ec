// Package normalize turns idiom-specific facts into canonical IR. Every
// function here is pure: the same facts always yield the same IR.
package normalize

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/toyz/spectra/internal/errors"
	"github.com/toyz/spectra/internal/facts"
	"github.com/toyz/spectra/internal/ir"
)

// DefaultResponseDescription describes the synthesized 200 response
const DefaultResponseDescription = "Successful Response"

// DefaultContentType is the media type used for bodies and responses
const DefaultContentType = "application/json"

// mediaConstants maps Spring MediaType constant names to media types
var mediaConstants = map[string]string{
	"ALL":                         "*/*",
	"APPLICATION_JSON":            "application/json",
	"APPLICATION_XML":             "application/xml",
	"APPLICATION_FORM_URLENCODED": "application/x-www-form-urlencoded",
	"APPLICATION_OCTET_STREAM":    "application/octet-stream",
	"APPLICATION_PDF":             "application/pdf",
	"APPLICATION_PROBLEM_JSON":    "application/problem+json",
	"APPLICATION_NDJSON":          "application/x-ndjson",
	"MULTIPART_FORM_DATA":         "multipart/form-data",
	"TEXT_PLAIN":                  "text/plain",
	"TEXT_HTML":                   "text/html",
	"TEXT_XML":                    "text/xml",
	"TEXT_EVENT_STREAM":           "text/event-stream",
}

// converterTypes types path parameters synthesized from a placeholder
var converterTypes = map[string]ir.Type{
	"int":   ir.Prim(ir.Integer),
	"float": ir.Prim(ir.Number),
	"uuid":  ir.PrimFormat(ir.String, "uuid"),
}

// Endpoints converts one route fact into canonical endpoints. A fact with a
// verb outside the accepted set yields no endpoint and a diagnostic.
func Endpoints(rf facts.RouteFact) ([]ir.Endpoint, []errors.SpectraError) {
	var diags []errors.SpectraError
	loc := rf.Location

	method := strings.ToUpper(strings.TrimSpace(rf.Method))
	if !ir.IsMethod(method) {
		diags = append(diags, errors.NewUnsupportedConstruct(loc.File, loc.Line, "unsupported HTTP method '%s'", rf.Method))
		return nil, diags
	}

	raw := ir.JoinPath(rf.BasePath, rf.RawPath)
	path := ir.NormalizePath(raw)

	ep := ir.Endpoint{
		Method:      method,
		Path:        path,
		OperationID: rf.OperationID,
		Summary:     rf.Summary,
		Description: rf.Description,
		Tags:        cloneStrings(rf.Tags),
		Deprecated:  rf.Deprecated,
		Source:      loc,
	}

	named := make(map[string]bool, len(rf.Params))
	for _, pf := range rf.Params {
		if pf.LocationHint == facts.HintBody {
			if ep.RequestBody != nil {
				diags = append(diags, errors.NewAmbiguousFact(loc.File, loc.Line,
					"%s %s declares a second body '%s', keeping the first", method, path, pf.Name))
				continue
			}
			contentType := mediaType(rf.Args.Get("consumes"))
			if contentType == "" {
				contentType = DefaultContentType
			}
			ep.RequestBody = &ir.Body{
				Required:    pf.Required == nil || *pf.Required,
				ContentType: contentType,
				Schema:      pf.Type,
			}
			continue
		}

		if named[pf.Name] {
			diags = append(diags, errors.NewAmbiguousFact(loc.File, loc.Line,
				"%s %s declares parameter '%s' twice, keeping the first", method, path, pf.Name))
			continue
		}
		named[pf.Name] = true

		in := location(pf, path)
		if pf.LocationHint == facts.HintPath && in != ir.InPath {
			diags = append(diags, errors.NewAmbiguousFact(loc.File, loc.Line,
				"path parameter '%s' is not a placeholder of %s, treating it as query", pf.Name, path))
		}
		ep.Parameters = append(ep.Parameters, ir.Parameter{
			Name:     pf.Name,
			In:       in,
			Required: in == ir.InPath || pf.IsRequired(),
			Schema:   pf.Type,
			Default:  pf.DefaultLiteral,
		})
	}

	for _, ph := range ir.PathPlaceholders(raw) {
		if named[ph.Name] {
			continue
		}
		named[ph.Name] = true
		schema := ir.Prim(ir.String)
		if t, ok := converterTypes[ph.Converter]; ok {
			schema = t
		}
		ep.Parameters = append(ep.Parameters, ir.Parameter{
			Name:     ph.Name,
			In:       ir.InPath,
			Required: true,
			Schema:   schema,
		})
	}

	if ep.OperationID == "" {
		ep.OperationID = OperationID(method, path)
	}
	if ep.Summary == "" {
		ep.Summary = method + " " + path
	}
	ep.Responses = []ir.Response{response(rf)}

	for _, sec := range rf.Security {
		ep.Security = append(ep.Security, ir.SecurityRequirement{
			Scheme: sec.Scheme,
			Scopes: cloneStrings(sec.Scopes),
		})
	}
	return []ir.Endpoint{ep}, diags
}

// OperationID derives the identifier used when a route supplies none
func OperationID(method, path string) string {
	return strings.ToLower(method) + strings.ReplaceAll(path, "/", "-")
}

// location decides where a parameter lives. Placeholders of the canonical
// path win; header and cookie hints are kept; everything else is query.
func location(pf facts.ParameterFact, path string) string {
	if ir.HasPlaceholder(path, pf.Name) {
		return ir.InPath
	}
	switch pf.LocationHint {
	case facts.HintHeader:
		return ir.InHeader
	case facts.HintCookie:
		return ir.InCookie
	}
	return ir.InQuery
}

func response(rf facts.RouteFact) ir.Response {
	status := strings.TrimSpace(rf.Status)
	if status == "" {
		status = "200"
	}
	resp := ir.Response{
		Status:      status,
		Description: statusDescription(status),
		ContentType: mediaType(rf.Args.Get("produces")),
	}
	if d, ok := rf.Args.Get("response_description").Text(); ok && strings.TrimSpace(d) != "" {
		resp.Description = d
	}
	if rf.Response != nil && status != "204" {
		schema := *rf.Response
		resp.Schema = &schema
	}
	return resp
}

func statusDescription(status string) string {
	if status == "200" {
		return DefaultResponseDescription
	}
	if code, err := strconv.Atoi(status); err == nil {
		if text := http.StatusText(code); text != "" {
			return text
		}
	}
	return "Response"
}

// mediaType reads the first media type of a consumes or produces argument,
// either a literal, a literal list or MediaType constants. Anything else
// yields "".
func mediaType(arg facts.KeywordArg) string {
	if list, ok := arg.Strings(); ok {
		if len(list) == 0 {
			return ""
		}
		return strings.TrimSpace(list[0])
	}
	if arg.Kind != facts.KeywordExpr {
		return ""
	}
	first, _, _ := strings.Cut(strings.Trim(strings.TrimSpace(arg.Raw), "{}"), ",")
	name := strings.TrimSpace(first)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return mediaConstants[strings.TrimSuffix(name, "_VALUE")]
}

// Schema converts a structural type into a component schema. Field order
// is kept; a repeated field name keeps its first declaration.
func Schema(sf facts.SchemaFact) ir.Schema {
	s := ir.Schema{Name: sf.TypeName, Source: sf.Location}
	seen := make(map[string]bool, len(sf.Fields))
	for _, f := range sf.Fields {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		s.Properties = append(s.Properties, ir.Property{Name: f.Name, Type: f.Type})
		if f.Required {
			s.Required = append(s.Required, f.Name)
		}
	}
	return s
}

// SecurityScheme converts a declared authentication scheme, filling the
// defaults each kind needs to be valid
func SecurityScheme(f facts.SecuritySchemeFact) (ir.SecurityScheme, errors.SpectraError) {
	s := ir.SecurityScheme{
		Name:     f.Name,
		Type:     f.Kind,
		Scheme:   strings.ToLower(f.Scheme),
		In:       strings.ToLower(f.In),
		KeyName:  f.KeyName,
		TokenURL: f.TokenURL,
		Source:   f.Location,
	}
	switch f.Kind {
	case "http":
		if s.Scheme == "" {
			s.Scheme = "bearer"
		}
		s.In, s.KeyName, s.TokenURL = "", "", ""
	case "apiKey":
		if s.In == "" {
			s.In = ir.InHeader
		}
		if s.KeyName == "" {
			s.KeyName = f.Name
		}
		s.Scheme, s.TokenURL = "", ""
	case "oauth2":
		if s.TokenURL == "" {
			s.TokenURL = "/token"
		}
		s.Scheme, s.In, s.KeyName = "", "", ""
	default:
		return ir.SecurityScheme{}, errors.NewUnsupportedConstruct(f.Location.File, f.Location.Line,
			"security scheme '%s' has unsupported kind '%s'", f.Name, f.Kind)
	}
	return s, nil
}

// PlaceholderScheme is the bearer scheme defined for requirements that name
// a scheme no source declared
func PlaceholderScheme(name string) ir.SecurityScheme {
	return ir.SecurityScheme{Name: name, Type: "http", Scheme: "bearer"}
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
