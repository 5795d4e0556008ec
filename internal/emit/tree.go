// Package emit renders a unified document as an OpenAPI 3.0.0 description.
// The document is first built as an ordered yaml.Node tree so both encodings
// keep discovery order for paths, methods and schema properties.
package emit

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/toyz/spectra/internal/ir"
	"github.com/toyz/spectra/internal/normalize"
)

// OpenAPIVersion is the version string written to every document
const OpenAPIVersion = "3.0.0"

const schemaRefPrefix = "#/components/schemas/"

// Build converts the document into an ordered mapping node
func Build(doc *ir.Document) *yaml.Node {
	root := mapping()

	info := doc.Info()
	infoNode := mapping()
	put(infoNode, "title", str(info.Title))
	put(infoNode, "version", str(info.Version))
	put(infoNode, "description", str(info.Description))

	put(root, "openapi", str(OpenAPIVersion))
	put(root, "info", infoNode)

	paths := mapping()
	for _, item := range doc.Paths() {
		pathNode := mapping()
		for _, op := range item.Operations {
			put(pathNode, strings.ToLower(op.Method), operation(op))
		}
		put(paths, item.Path, pathNode)
	}
	put(root, "paths", paths)

	components := mapping()
	schemas := mapping()
	for _, s := range doc.Schemas() {
		put(schemas, s.Name, componentSchema(s))
	}
	put(components, "schemas", schemas)

	if schemes := doc.SecuritySchemes(); len(schemes) > 0 {
		node := mapping()
		for _, s := range schemes {
			put(node, s.Name, securityScheme(s))
		}
		put(components, "securitySchemes", node)
	}
	put(root, "components", components)

	return root
}

func operation(ep ir.Endpoint) *yaml.Node {
	op := mapping()
	put(op, "summary", str(ep.Summary))
	put(op, "description", str(ep.Description))
	put(op, "operationId", str(ep.OperationID))

	if len(ep.Parameters) > 0 {
		params := sequence()
		for _, p := range ep.Parameters {
			params.Content = append(params.Content, parameter(p))
		}
		put(op, "parameters", params)
	}

	if ep.RequestBody != nil {
		body := mapping()
		put(body, "content", content(ep.RequestBody.ContentType, ep.RequestBody.Schema))
		put(body, "required", boolean(ep.RequestBody.Required))
		put(op, "requestBody", body)
	}

	responses := mapping()
	for _, r := range ep.Responses {
		resp := mapping()
		put(resp, "description", str(r.Description))
		if r.Schema != nil {
			put(resp, "content", content(r.ContentType, *r.Schema))
		}
		put(responses, r.Status, resp)
	}
	put(op, "responses", responses)

	if len(ep.Tags) > 0 {
		tags := sequence()
		for _, t := range ep.Tags {
			tags.Content = append(tags.Content, str(t))
		}
		put(op, "tags", tags)
	}

	if len(ep.Security) > 0 {
		security := sequence()
		for _, req := range ep.Security {
			scopes := sequence()
			for _, s := range req.Scopes {
				scopes.Content = append(scopes.Content, str(s))
			}
			entry := mapping()
			put(entry, req.Scheme, scopes)
			security.Content = append(security.Content, entry)
		}
		put(op, "security", security)
	}

	if ep.Deprecated {
		put(op, "deprecated", boolean(true))
	}
	return op
}

func parameter(p ir.Parameter) *yaml.Node {
	node := mapping()
	put(node, "name", str(p.Name))
	put(node, "in", str(p.In))
	put(node, "required", boolean(p.Required))
	schema := schemaNode(p.Schema)
	if def := defaultNode(p.Schema, p.Default); def != nil && schema.Kind == yaml.MappingNode && lookup(schema, "$ref") == nil {
		put(schema, "default", def)
	}
	put(node, "schema", schema)
	return node
}

func content(mediaType string, t ir.Type) *yaml.Node {
	if mediaType == "" {
		mediaType = normalize.DefaultContentType
	}
	media := mapping()
	put(media, "schema", schemaNode(t))
	node := mapping()
	put(node, mediaType, media)
	return node
}

// schemaNode renders a type as a schema object. OpenAPI 3.0 forbids siblings
// next to $ref, so a nullable reference is wrapped in allOf.
func schemaNode(t ir.Type) *yaml.Node {
	node := mapping()
	switch t.Kind {
	case ir.KindPrimitive:
		put(node, "type", str(t.Primitive))
		if t.Format != "" {
			put(node, "format", str(t.Format))
		}
	case ir.KindArray:
		put(node, "type", str("array"))
		put(node, "items", schemaNode(*t.Items))
	case ir.KindRef:
		put(node, "$ref", str(schemaRefPrefix+t.Ref))
	case ir.KindNullable:
		inner := schemaNode(*t.Items)
		if lookup(inner, "$ref") != nil {
			all := sequence()
			all.Content = append(all.Content, inner)
			put(node, "allOf", all)
		} else {
			node = inner
		}
		put(node, "nullable", boolean(true))
	default:
		put(node, "type", str("object"))
	}
	return node
}

func componentSchema(s ir.Schema) *yaml.Node {
	node := mapping()
	put(node, "type", str("object"))
	props := mapping()
	for _, p := range s.Properties {
		put(props, p.Name, schemaNode(p.Type))
	}
	put(node, "properties", props)
	if len(s.Required) > 0 {
		req := sequence()
		for _, r := range s.Required {
			req.Content = append(req.Content, str(r))
		}
		put(node, "required", req)
	}
	return node
}

func securityScheme(s ir.SecurityScheme) *yaml.Node {
	node := mapping()
	put(node, "type", str(s.Type))
	switch s.Type {
	case "http":
		put(node, "scheme", str(s.Scheme))
		if s.Scheme == "bearer" {
			put(node, "bearerFormat", str("JWT"))
		}
	case "apiKey":
		put(node, "in", str(s.In))
		put(node, "name", str(s.KeyName))
	case "oauth2":
		password := mapping()
		put(password, "tokenUrl", str(s.TokenURL))
		put(password, "scopes", mapping())
		flows := mapping()
		put(flows, "password", password)
		put(node, "flows", flows)
	}
	return node
}

// defaultNode converts a captured default literal into a typed value. Values
// that do not fit the schema type are left out, and so are NaN and the
// infinities, which JSON cannot represent.
func defaultNode(t ir.Type, literal string) *yaml.Node {
	literal = strings.TrimSpace(literal)
	if t.Kind == ir.KindNullable {
		t = *t.Items
	}
	if literal == "" || literal == "None" || literal == "null" || t.Kind != ir.KindPrimitive {
		return nil
	}

	switch t.Primitive {
	case ir.Integer:
		if n, err := strconv.ParseInt(literal, 10, 64); err == nil {
			return scalar("!!int", strconv.FormatInt(n, 10))
		}
	case ir.Number:
		if f, err := strconv.ParseFloat(literal, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return scalar("!!float", strconv.FormatFloat(f, 'g', -1, 64))
		}
	case ir.Boolean:
		switch literal {
		case "True", "true":
			return boolean(true)
		case "False", "false":
			return boolean(false)
		}
	case ir.String:
		if len(literal) >= 2 && (literal[0] == '"' || literal[0] == '\'') && literal[len(literal)-1] == literal[0] {
			return str(literal[1 : len(literal)-1])
		}
		return str(literal)
	}
	return nil
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func sequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func str(value string) *yaml.Node {
	return scalar("!!str", value)
}

func boolean(v bool) *yaml.Node {
	return scalar("!!bool", strconv.FormatBool(v))
}

func put(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, str(key), value)
}

// lookup returns the value stored under key in a mapping node
func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
