package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/spectra/internal/errors"
	"github.com/toyz/spectra/internal/facts"
	"github.com/toyz/spectra/internal/ir"
)

const controllerSource = `package com.example.demo;

import org.springframework.web.bind.annotation.*;

/**
 * Widget endpoints.
 */
@RestController
@RequestMapping("/api/v1")
@Tag(name = "widgets")
public class WidgetController {

    /**
     * List widgets. Returns every widget.
     *
     * @param limit max results
     * @return widgets
     */
    @GetMapping("/widgets")
    public List<Widget> list(@RequestParam(defaultValue = "10") int limit) {
        return service.list(limit);
    }

    @GetMapping(value = "/widgets/{id}")
    public ResponseEntity<Widget> get(@PathVariable("id") Long widgetId,
                                      @RequestHeader(name = "X-Trace", required = false) String trace,
                                      HttpServletRequest request) {
        return ResponseEntity.ok(service.get(widgetId));
    }

    @PostMapping(path = "/widgets", consumes = "application/json")
    @ResponseStatus(HttpStatus.CREATED)
    @Operation(summary = "Create a widget", operationId = "createWidget")
    @SecurityRequirement(name = "bearerAuth")
    public Widget create(@Valid @RequestBody Widget widget) {
        return service.save(widget);
    }

    @RequestMapping(value = "/widgets/{id}", method = {RequestMethod.PUT, RequestMethod.PATCH})
    public void update(@PathVariable Long id, @RequestBody Widget widget) {
        // "@GetMapping" in a comment is ignored {
    }

    @Deprecated
    @DeleteMapping("/widgets/{id}")
    void delete(@PathVariable Long id) {
        String s = "}";
    }
}
`

const modelSource = `package com.example.demo.model;

@Entity
@Data
public class Widget {
    public static final String KIND = "widget";

    @Id
    private Long id;
    @NotBlank
    private String name;
    private int count;
    private List<String> tags = new ArrayList<>();
    private Optional<BigDecimal> price;

    public String label() {
        return name + ";";
    }
}

public record Point(int x, @NotNull Integer y, String label) {}
`

func analyze(t *testing.T, src string) *facts.FileFacts {
	t.Helper()
	out, err := New().Analyze([]byte(src), "src/main/java/Demo.java")
	require.NoError(t, err)
	require.NotNil(t, out)
	return out
}

func hasCode(diags []errors.SpectraError, code errors.ErrorCode) bool {
	for _, d := range diags {
		if d.ErrorCode() == code {
			return true
		}
	}
	return false
}

func TestAnalyzer_ControllerRoutes(t *testing.T) {
	out := analyze(t, controllerSource)
	require.Len(t, out.Routes, 6)

	type want struct {
		method, path, handler string
		line                  int
	}
	expected := []want{
		{"GET", "/widgets", "list", 19},
		{"GET", "/widgets/{id}", "get", 24},
		{"POST", "/widgets", "create", 31},
		{"PUT", "/widgets/{id}", "update", 39},
		{"PATCH", "/widgets/{id}", "update", 39},
		{"DELETE", "/widgets/{id}", "delete", 45},
	}
	for i, w := range expected {
		r := out.Routes[i]
		assert.Equal(t, w.method, r.Method, "route %d", i)
		assert.Equal(t, w.path, r.RawPath, "route %d", i)
		assert.Equal(t, w.handler, r.Handler, "route %d", i)
		assert.Equal(t, w.line, r.Location.Line, "route %d", i)
		assert.Equal(t, "/api/v1", r.BasePath, "route %d", i)
		assert.Equal(t, "WidgetController", r.EnclosingClass, "route %d", i)
		assert.Equal(t, []string{"widgets"}, r.Tags, "route %d", i)
	}
}

func TestAnalyzer_JavadocAndParameters(t *testing.T) {
	out := analyze(t, controllerSource)
	list := out.Routes[0]

	assert.Equal(t, "List widgets.", list.Summary)
	assert.Equal(t, "List widgets. Returns every widget.", list.Description)
	require.NotNil(t, list.Response)
	assert.True(t, list.Response.Equal(ir.ArrayOf(ir.RefTo("Widget", ir.AnyObject()))))

	require.Len(t, list.Params, 1)
	limit := list.Params[0]
	assert.Equal(t, "limit", limit.Name)
	assert.Equal(t, facts.HintQuery, limit.LocationHint)
	assert.True(t, limit.HasDefault)
	assert.Equal(t, "10", limit.DefaultLiteral)
	assert.False(t, limit.IsRequired())
	assert.True(t, limit.Type.Equal(ir.PrimFormat(ir.Integer, "int32")))

	get := out.Routes[1]
	require.Len(t, get.Params, 2, "the servlet request is filtered out")
	assert.Equal(t, "id", get.Params[0].Name)
	assert.Equal(t, facts.HintPath, get.Params[0].LocationHint)
	assert.True(t, get.Params[0].IsRequired())
	assert.True(t, get.Params[0].Type.Equal(ir.PrimFormat(ir.Integer, "int64")))
	assert.Equal(t, "X-Trace", get.Params[1].Name)
	assert.Equal(t, facts.HintHeader, get.Params[1].LocationHint)
	assert.False(t, get.Params[1].IsRequired())
	require.NotNil(t, get.Response)
	assert.Equal(t, "Widget", get.Response.Ref, "ResponseEntity is unwrapped")
	assert.Empty(t, get.Summary)
}

func TestAnalyzer_OperationMetadata(t *testing.T) {
	out := analyze(t, controllerSource)
	create := out.Routes[2]

	assert.Equal(t, "Create a widget", create.Summary)
	assert.Equal(t, "createWidget", create.OperationID)
	assert.Equal(t, "201", create.Status)
	assert.Equal(t, []facts.SecurityFact{{Scheme: "bearerAuth"}}, create.Security)

	path, ok := create.Args.Get("path").Text()
	require.True(t, ok)
	assert.Equal(t, "/widgets", path)

	require.Len(t, create.Params, 1)
	assert.Equal(t, facts.HintBody, create.Params[0].LocationHint)
	assert.Equal(t, "Widget", create.Params[0].Type.Ref)

	update := out.Routes[3]
	assert.Nil(t, update.Response, "void handlers have no response content")

	del := out.Routes[5]
	assert.True(t, del.Deprecated)
	assert.False(t, out.Routes[0].Deprecated)
}

func TestAnalyzer_Schemas(t *testing.T) {
	out := analyze(t, modelSource)
	require.Len(t, out.Schemas, 2)

	widget := out.Schemas[0]
	assert.Equal(t, "Widget", widget.TypeName)
	assert.Equal(t, 5, widget.Location.Line)

	var names []string
	required := map[string]bool{}
	for _, f := range widget.Fields {
		names = append(names, f.Name)
		required[f.Name] = f.Required
	}
	assert.Equal(t, []string{"id", "name", "count", "tags", "price"}, names, "static fields and methods are skipped")
	assert.Equal(t, map[string]bool{"id": true, "name": true, "count": true, "tags": false, "price": false}, required)
	assert.True(t, widget.Fields[3].Type.Equal(ir.ArrayOf(ir.Prim(ir.String))))
	assert.True(t, widget.Fields[4].Type.Equal(ir.NullableOf(ir.PrimFormat(ir.Number, "double"))))

	point := out.Schemas[1]
	assert.Equal(t, "Point", point.TypeName)
	require.Len(t, point.Fields, 3)
	assert.Equal(t, "x", point.Fields[0].Name)
	assert.True(t, point.Fields[0].Required)
	assert.True(t, point.Fields[1].Required)
	assert.False(t, point.Fields[2].Required)
}

func TestAnalyzer_SchemaFieldsWithBraceInitializers(t *testing.T) {
	src := `@Data
public class Settings {
    private int[] xs = new int[]{1, 2};
    private Runnable hook = () -> { System.out.println("x;"); };
    private Comparator<String> order = new Comparator<>() {
        public int compare(String a, String b) { return 0; }
    };

    @JsonProperty(value = "flag")
    public boolean isFlag() {
        return count >= 0;
    }

    private String name;
    @NotNull
    private Integer count;
}
`
	out := analyze(t, src)
	require.Len(t, out.Schemas, 1)

	var names []string
	for _, f := range out.Schemas[0].Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"xs", "hook", "order", "name", "count"}, names)
	assert.True(t, out.Schemas[0].Fields[0].Type.Equal(ir.ArrayOf(ir.PrimFormat(ir.Integer, "int32"))))
	assert.True(t, out.Schemas[0].Fields[4].Required)
}

func TestAnalyzer_SecuritySchemes(t *testing.T) {
	src := `@Configuration
@SecurityScheme(name = "bearerAuth", type = SecuritySchemeType.HTTP, scheme = "bearer", bearerFormat = "JWT")
@SecurityScheme(name = "apiKey", type = SecuritySchemeType.APIKEY, in = SecuritySchemeIn.QUERY, paramName = "key")
@SecurityScheme(name = "oauth", type = SecuritySchemeType.OAUTH2,
    flows = @OAuthFlows(password = @OAuthFlow(tokenUrl = "/token")))
public class OpenApiConfig {}
`
	out := analyze(t, src)
	require.Len(t, out.SecuritySchemes, 3)

	assert.Equal(t, "bearerAuth", out.SecuritySchemes[0].Name)
	assert.Equal(t, "http", out.SecuritySchemes[0].Kind)
	assert.Equal(t, "bearer", out.SecuritySchemes[0].Scheme)

	assert.Equal(t, "apiKey", out.SecuritySchemes[1].Kind)
	assert.Equal(t, "query", out.SecuritySchemes[1].In)
	assert.Equal(t, "key", out.SecuritySchemes[1].KeyName)

	assert.Equal(t, "oauth2", out.SecuritySchemes[2].Kind)
	assert.Equal(t, "/token", out.SecuritySchemes[2].TokenURL)
	assert.Equal(t, 4, out.SecuritySchemes[2].Location.Line)
}

func TestAnalyzer_SyntaxErrors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		line int
	}{
		{"unclosed brace", "class A {\n  void f() {\n}\n", 1},
		{"stray brace", "class A {\n}\n}\n", 3},
		{"unterminated comment", "class A {}\n/* open\n", 2},
		{"unterminated string", "class A {\n  String s = \"oops;\n}\n", 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := New().Analyze([]byte(tc.src), "Broken.java")
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, errors.SyntaxErrorCode, errors.CodeOf(err))

			var se errors.SpectraError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.line, se.Location().Line)
		})
	}
}

func TestAnalyzer_BracesInLiteralsAndComments(t *testing.T) {
	src := `@RestController
class Braces {
    // }
    /* { */
    @GetMapping("/{id}")
    String get(@PathVariable String id) { return "}}"; }
}
`
	out := analyze(t, src)
	require.Len(t, out.Routes, 1)
	assert.Equal(t, "/{id}", out.Routes[0].RawPath)
	assert.Empty(t, out.Routes[0].BasePath)
}

func TestAnalyzer_AmbiguousMappings(t *testing.T) {
	src := `@RestController
class Ambiguous {
    @GetMapping(Paths.WIDGETS)
    public String constant() { return ""; }

    @RequestMapping(
        produces = "a",
        consumes = "b",
        headers = "c",
        params = "d",
        value = "/late")
    public String late() { return ""; }

    @GetMapping("/far")











    public String far() { return ""; }

    @RequestMapping(value = "/multi", method = RequestMethod.GET)
    @PutMapping("/ignored")
    public String multi() { return ""; }
}
`
	out := analyze(t, src)
	require.Len(t, out.Routes, 2)

	assert.Equal(t, "late", out.Routes[0].Handler)
	assert.Equal(t, "", out.Routes[0].RawPath, "path beyond the window falls back to the empty path")
	assert.Equal(t, "GET", out.Routes[0].Method)

	assert.Equal(t, "multi", out.Routes[1].Handler)
	assert.Equal(t, "/multi", out.Routes[1].RawPath)

	assert.True(t, hasCode(out.Diagnostics, errors.AmbiguousFactErrorCode))
	assert.True(t, hasCode(out.Diagnostics, errors.UnsupportedConstructErrorCode))
}

func TestAnalyzer_RequestMappingDefaultsToGet(t *testing.T) {
	src := `@Controller
@RequestMapping(path = {"/v2", "/v2-legacy"})
public class Legacy {
    @RequestMapping({"/a", "/b"})
    public Map<String, Object> both() { return null; }

    @Hidden
    @GetMapping("/internal")
    public String internal() { return ""; }
}
`
	out := analyze(t, src)
	require.Len(t, out.Routes, 2)
	for i, p := range []string{"/a", "/b"} {
		assert.Equal(t, "GET", out.Routes[i].Method)
		assert.Equal(t, p, out.Routes[i].RawPath)
		assert.Equal(t, "/v2", out.Routes[i].BasePath)
		require.NotNil(t, out.Routes[i].Response)
		assert.True(t, out.Routes[i].Response.Equal(ir.AnyObject()))
	}
	assert.True(t, hasCode(out.Diagnostics, errors.AmbiguousFactErrorCode), "several class base paths")
}

func TestAnalyzer_EmptyFile(t *testing.T) {
	out := analyze(t, "")
	assert.True(t, out.Empty())
	assert.Empty(t, out.Diagnostics)
}
