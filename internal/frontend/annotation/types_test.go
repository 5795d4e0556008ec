package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/spectra/internal/ir"
)

func TestResolveType(t *testing.T) {
	widget := ir.RefTo("Widget", ir.AnyObject())

	testCases := []struct {
		text     string
		expected ir.Type
	}{
		{"String", ir.Prim(ir.String)},
		{"char", ir.Prim(ir.String)},
		{"java.util.UUID", ir.PrimFormat(ir.String, "uuid")},
		{"LocalDate", ir.PrimFormat(ir.String, "date")},
		{"Instant", ir.PrimFormat(ir.String, "date-time")},
		{"int", ir.PrimFormat(ir.Integer, "int32")},
		{"Short", ir.PrimFormat(ir.Integer, "int32")},
		{"long", ir.PrimFormat(ir.Integer, "int64")},
		{"BigInteger", ir.PrimFormat(ir.Integer, "int64")},
		{"float", ir.PrimFormat(ir.Number, "float")},
		{"BigDecimal", ir.PrimFormat(ir.Number, "double")},
		{"Boolean", ir.Prim(ir.Boolean)},
		{"Map<String, Object>", ir.AnyObject()},
		{"JsonNode", ir.AnyObject()},
		{"List<Widget>", ir.ArrayOf(widget)},
		{"Set<Long>", ir.ArrayOf(ir.PrimFormat(ir.Integer, "int64"))},
		{"Flux<Widget>", ir.ArrayOf(widget)},
		{"List", ir.ArrayOf(ir.AnyObject())},
		{"List<? extends Widget>", ir.ArrayOf(widget)},
		{"List<?>", ir.ArrayOf(ir.AnyObject())},
		{"Widget[]", ir.ArrayOf(widget)},
		{"int[][]", ir.ArrayOf(ir.ArrayOf(ir.PrimFormat(ir.Integer, "int32")))},
		{"Optional<String>", ir.NullableOf(ir.Prim(ir.String))},
		{"ResponseEntity<List<Widget>>", ir.ArrayOf(widget)},
		{"Mono<ResponseEntity<Widget>>", widget},
		{"CompletableFuture<Widget>", widget},
		{"ResponseEntity<?>", ir.AnyObject()},
		{"com.example.Widget", widget},
		{"lowercase", ir.AnyObject()},
		{"HttpServletRequest", ir.AnyObject()},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			jt, err := typeParser.ParseString("", tc.text)
			require.NoError(t, err)
			got, ok := resolveType(jt)
			require.True(t, ok)
			assert.True(t, got.Equal(tc.expected), "got %s, want %s", got, tc.expected)
		})
	}
}

func TestResolveType_Void(t *testing.T) {
	for _, text := range []string{"void", "Void", "ResponseEntity<Void>", "Mono<Void>"} {
		jt, err := typeParser.ParseString("", text)
		require.NoError(t, err)
		_, ok := resolveType(jt)
		assert.False(t, ok, text)
	}
}

func TestResolveType_RefFallbackIsObject(t *testing.T) {
	jt, err := typeParser.ParseString("", "Widget")
	require.NoError(t, err)
	got, _ := resolveType(jt)
	require.NotNil(t, got.Fallback)
	assert.True(t, got.Fallback.Equal(ir.AnyObject()))
}

func TestJavaType_String(t *testing.T) {
	jt, err := typeParser.ParseString("", "Map< String , List<? extends Widget> >[]")
	require.NoError(t, err)
	assert.Equal(t, "Map<String, List<? extends Widget>>[]", jt.String())
}

func TestParamsParser(t *testing.T) {
	list, err := paramsParser.ParseString("", `@PathVariable("id") final Long id,
		@RequestParam(value = "tags", required = false) List<String> tags, String... rest`)
	require.NoError(t, err)
	require.Len(t, list.Params, 3)

	assert.Equal(t, "PathVariable", list.Params[0].Annotations[0].simpleName())
	assert.Equal(t, "id", list.Params[0].Name)
	assert.Equal(t, "Long", list.Params[0].Type.simpleName())

	required := list.Params[1].Annotations[0].value("required")
	require.NotNil(t, required)
	v, ok := required.Value.boolean()
	require.True(t, ok)
	assert.False(t, v)

	assert.True(t, list.Params[2].Varargs)
}

func TestElementValue_Literals(t *testing.T) {
	a, err := annotationParser.ParseString("", `@RequestMapping(value = "/a" + "/b", path = {"/x", "/y"}, method = {RequestMethod.GET, POST})`)
	require.NoError(t, err)

	v, ok := a.value("value").Value.literal()
	require.True(t, ok)
	assert.Equal(t, "/a/b", v)

	items, ok := a.value("path").Value.literals()
	require.True(t, ok)
	assert.Equal(t, []string{"/x", "/y"}, items)

	refs, ok := a.value("method").Value.refs()
	require.True(t, ok)
	assert.Equal(t, []string{"GET", "POST"}, refs)

	_, ok = a.value("method").Value.literals()
	assert.False(t, ok)
}

func TestSource_Masking(t *testing.T) {
	src, err := newSource("String s = \"{ // }\"; // { \nchar c = '}'; /* } */")
	require.NoError(t, err)

	assert.Equal(t, len(src.text), len(src.code))
	assert.Equal(t, len(src.text), len(src.blank))
	assert.Contains(t, src.code, `"{ // }"`, "comments are blanked, literals kept")
	assert.NotContains(t, src.code, "/*")
	assert.NotContains(t, src.blank, "{")
	assert.NotContains(t, src.blank, "}")
	assert.Equal(t, 2, src.lineAt(len(src.text)-1))
}

func TestParseJavadoc(t *testing.T) {
	doc := `/**
     * Fetch a widget by id. Falls back to the cache.
     * <p>
     * Uses {@code WidgetService}.
     *
     * @param id the widget id
     *        spanning two lines
     * @return the widget
     */`
	summary, description := parseJavadoc(doc)
	assert.Equal(t, "Fetch a widget by id.", summary)
	assert.Equal(t, "Fetch a widget by id. Falls back to the cache.\n\nUses WidgetService.", description)
}
