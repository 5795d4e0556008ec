package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/toyz/spectra/internal/errors"
	"github.com/toyz/spectra/internal/ir"
)

var testInfo = ir.Info{Title: "Widgets", Version: "1.2.0", Description: "Widget service"}

func sampleDocument() *ir.Document {
	widget := ir.RefTo("Widget", ir.AnyObject())
	list := ir.ArrayOf(widget)

	paths := []ir.PathItem{
		{
			Path: "/widgets",
			Operations: []ir.Endpoint{
				{
					Method:      "POST",
					Path:        "/widgets",
					OperationID: "post-widgets",
					Summary:     "POST /widgets",
					Tags:        []string{"widgets"},
					RequestBody: &ir.Body{Required: true, ContentType: "application/json", Schema: widget},
					Responses:   []ir.Response{{Status: "201", Description: "Created", ContentType: "application/xml", Schema: &widget}},
					Security:    []ir.SecurityRequirement{{Scheme: "oauth", Scopes: []string{"write"}}},
				},
				{
					Method:      "GET",
					Path:        "/widgets",
					OperationID: "get-widgets",
					Summary:     "List widgets",
					Description: "Lists every widget.",
					Parameters: []ir.Parameter{
						{Name: "limit", In: ir.InQuery, Schema: ir.Prim(ir.Integer), Default: "10"},
						{Name: "X-Trace", In: ir.InHeader, Schema: ir.NullableOf(ir.Prim(ir.String))},
					},
					Responses:  []ir.Response{{Status: "200", Description: "Successful Response", Schema: &list}},
					Deprecated: true,
				},
			},
		},
		{
			Path: "/widgets/{id}",
			Operations: []ir.Endpoint{{
				Method:      "DELETE",
				Path:        "/widgets/{id}",
				OperationID: "delete-widgets-{id}",
				Summary:     "DELETE /widgets/{id}",
				Parameters:  []ir.Parameter{{Name: "id", In: ir.InPath, Required: true, Schema: ir.PrimFormat(ir.String, "uuid")}},
				Responses:   []ir.Response{{Status: "204", Description: "No Content"}},
				Security:    []ir.SecurityRequirement{{Scheme: "key"}},
			}},
		},
	}
	schemas := []ir.Schema{{
		Name: "Widget",
		Properties: []ir.Property{
			{Name: "zeta", Type: ir.Prim(ir.String)},
			{Name: "alpha", Type: ir.PrimFormat(ir.Integer, "int64")},
			{Name: "parent", Type: ir.NullableOf(widget)},
		},
		Required: []string{"zeta"},
	}}
	schemes := []ir.SecurityScheme{
		{Name: "oauth", Type: "oauth2", TokenURL: "/token"},
		{Name: "key", Type: "apiKey", In: "header", KeyName: "X-API-Key"},
		{Name: "bearer", Type: "http", Scheme: "bearer"},
	}
	return ir.NewDocument(testInfo, paths, schemas, schemes)
}

func TestEncodeJSON_EmptyDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, ir.NewDocument(testInfo, nil, nil, nil)))

	expected := `{
  "openapi": "3.0.0",
  "info": {
    "title": "Widgets",
    "version": "1.2.0",
    "description": "Widget service"
  },
  "paths": {},
  "components": {
    "schemas": {}
  }
}
`
	assert.Equal(t, expected, buf.String())
}

func TestEncodeJSON_KeepsDiscoveryOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, sampleDocument()))
	out := buf.String()

	assert.True(t, json.Valid(buf.Bytes()))
	before := func(a, b string) {
		t.Helper()
		ia, ib := strings.Index(out, a), strings.Index(out, b)
		require.NotEqual(t, -1, ia, a)
		require.NotEqual(t, -1, ib, b)
		assert.Less(t, ia, ib, "%s before %s", a, b)
	}
	before(`"/widgets"`, `"/widgets/{id}"`)
	before(`"post"`, `"get"`)
	before(`"zeta"`, `"alpha"`)
	before(`"operationId"`, `"requestBody"`)
	before(`"requestBody"`, `"responses"`)
	before(`"responses"`, `"tags"`)
}

func TestBuild_OperationShape(t *testing.T) {
	var decoded map[string]any
	data, err := Render(sampleDocument(), FormatJSON)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))

	paths := decoded["paths"].(map[string]any)
	get := paths["/widgets"].(map[string]any)["get"].(map[string]any)
	assert.Equal(t, true, get["deprecated"])
	assert.Equal(t, "Lists every widget.", get["description"])

	params := get["parameters"].([]any)
	require.Len(t, params, 2)
	limit := params[0].(map[string]any)
	assert.Equal(t, "query", limit["in"])
	assert.Equal(t, false, limit["required"])
	assert.Equal(t, map[string]any{"type": "integer", "default": float64(10)}, limit["schema"])
	trace := params[1].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "nullable": true}, trace["schema"])

	post := paths["/widgets"].(map[string]any)["post"].(map[string]any)
	body := post["requestBody"].(map[string]any)
	assert.Equal(t, true, body["required"])
	assert.Equal(t, map[string]any{"application/json": map[string]any{
		"schema": map[string]any{"$ref": "#/components/schemas/Widget"},
	}}, body["content"])
	created := post["responses"].(map[string]any)["201"].(map[string]any)
	assert.Contains(t, created["content"], "application/xml")
	list := get["responses"].(map[string]any)["200"].(map[string]any)
	assert.Contains(t, list["content"], "application/json")
	assert.Equal(t, []any{map[string]any{"oauth": []any{"write"}}}, post["security"])
	_, hasDeprecated := post["deprecated"]
	assert.False(t, hasDeprecated)

	del := paths["/widgets/{id}"].(map[string]any)["delete"].(map[string]any)
	noContent := del["responses"].(map[string]any)["204"].(map[string]any)
	assert.Equal(t, map[string]any{"description": "No Content"}, noContent)
	assert.Equal(t, []any{map[string]any{"key": []any{}}}, del["security"])
}

func TestBuild_Components(t *testing.T) {
	var decoded map[string]any
	data, err := Render(sampleDocument(), FormatJSON)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))

	components := decoded["components"].(map[string]any)
	widget := components["schemas"].(map[string]any)["Widget"].(map[string]any)
	assert.Equal(t, "object", widget["type"])
	assert.Equal(t, []any{"zeta"}, widget["required"])
	parent := widget["properties"].(map[string]any)["parent"]
	assert.Equal(t, map[string]any{
		"allOf":    []any{map[string]any{"$ref": "#/components/schemas/Widget"}},
		"nullable": true,
	}, parent)

	schemes := components["securitySchemes"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "apiKey", "in": "header", "name": "X-API-Key"}, schemes["key"])
	assert.Equal(t, map[string]any{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"}, schemes["bearer"])
	assert.Equal(t, map[string]any{
		"type": "oauth2",
		"flows": map[string]any{"password": map[string]any{
			"tokenUrl": "/token",
			"scopes":   map[string]any{},
		}},
	}, schemes["oauth"])
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeYAML(&buf, sampleDocument()))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "3.0.0", decoded["openapi"])

	responses := decoded["paths"].(map[string]any)["/widgets"].(map[string]any)["post"].(map[string]any)["responses"].(map[string]any)
	_, ok := responses["201"]
	assert.True(t, ok, "status codes stay string keys")
}

func TestEncode_UnknownFormat(t *testing.T) {
	_, err := Render(sampleDocument(), "xml")
	require.Error(t, err)
	assert.Equal(t, errors.EmitErrorCode, errors.CodeOf(err))
}

func TestDefaultNode(t *testing.T) {
	testCases := []struct {
		name     string
		t        ir.Type
		literal  string
		expected *yaml.Node
	}{
		{"integer", ir.Prim(ir.Integer), "10", scalar("!!int", "10")},
		{"bad integer", ir.Prim(ir.Integer), "settings.LIMIT", nil},
		{"number", ir.Prim(ir.Number), "0.50", scalar("!!float", "0.5")},
		{"nan", ir.Prim(ir.Number), "NaN", nil},
		{"infinity", ir.Prim(ir.Number), "Infinity", nil},
		{"negative inf", ir.Prim(ir.Number), "-inf", nil},
		{"python bool", ir.Prim(ir.Boolean), "True", boolean(true)},
		{"java bool", ir.Prim(ir.Boolean), "false", boolean(false)},
		{"quoted string", ir.Prim(ir.String), `"abc"`, str("abc")},
		{"single quoted", ir.Prim(ir.String), `'abc'`, str("abc")},
		{"bare string", ir.Prim(ir.String), "asc", str("asc")},
		{"nullable none", ir.NullableOf(ir.Prim(ir.String)), "None", nil},
		{"nullable int", ir.NullableOf(ir.Prim(ir.Integer)), "3", scalar("!!int", "3")},
		{"array", ir.ArrayOf(ir.Prim(ir.String)), "[]", nil},
		{"empty", ir.Prim(ir.String), "", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, defaultNode(tc.t, tc.literal))
		})
	}
}

func TestEncodeJSON_NonFiniteDefaultsStayValid(t *testing.T) {
	doc := ir.NewDocument(testInfo, []ir.PathItem{{
		Path: "/ratios",
		Operations: []ir.Endpoint{{
			Method:      "GET",
			Path:        "/ratios",
			OperationID: "get-ratios",
			Summary:     "GET /ratios",
			Parameters: []ir.Parameter{
				{Name: "ratio", In: ir.InQuery, Schema: ir.Prim(ir.Number), Default: "NaN"},
				{Name: "ceiling", In: ir.InQuery, Schema: ir.Prim(ir.Number), Default: "inf"},
				{Name: "scale", In: ir.InQuery, Schema: ir.Prim(ir.Number), Default: "1.5"},
			},
			Responses: []ir.Response{{Status: "200", Description: "Successful Response"}},
		}},
	}}, nil, nil)

	data, err := Render(doc, FormatJSON)
	require.NoError(t, err)
	require.True(t, json.Valid(data), string(data))

	var decoded struct {
		Paths map[string]map[string]struct {
			Parameters []struct {
				Name   string         `json:"name"`
				Schema map[string]any `json:"schema"`
			} `json:"parameters"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	params := decoded.Paths["/ratios"]["get"].Parameters
	require.Len(t, params, 3)
	assert.NotContains(t, params[0].Schema, "default")
	assert.NotContains(t, params[1].Schema, "default")
	assert.Equal(t, 1.5, params[2].Schema["default"])
	require.NoError(t, Validate(context.Background(), data))
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, ValidateDocument(ctx, sampleDocument()))
	require.NoError(t, ValidateDocument(ctx, ir.NewDocument(testInfo, nil, nil, nil)))

	yamlData, err := Render(sampleDocument(), FormatYAML)
	require.NoError(t, err)
	require.NoError(t, Validate(ctx, yamlData))

	err = Validate(ctx, []byte(`{"openapi": "3.0.0", "info": {"title": "x", "version": "1"}, "paths": {"/a/{id}": {"get": {"responses": {"200": {"description": "ok"}}}}}}`))
	require.Error(t, err)
	assert.Equal(t, errors.EmitErrorCode, errors.CodeOf(err))

	err = Validate(ctx, []byte("{not json"))
	require.Error(t, err)
}
