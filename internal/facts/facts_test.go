package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	name string
	exts []string
}

func (s stubAnalyzer) Name() string         { return s.name }
func (s stubAnalyzer) Extensions() []string { return s.exts }
func (s stubAnalyzer) Analyze(content []byte, path string) (*FileFacts, error) {
	return NewFileFacts(path, s.name), nil
}

func TestKeywordArg_Accessors(t *testing.T) {
	lit := LiteralArg("/items", `"/items"`)
	s, ok := lit.Text()
	require.True(t, ok)
	assert.Equal(t, "/items", s)

	items, ok := lit.Strings()
	require.True(t, ok)
	assert.Equal(t, []string{"/items"}, items)

	list := ListArg([]string{"GET", "POST"}, `["GET", "POST"]`)
	_, ok = list.Text()
	assert.False(t, ok)
	items, ok = list.Strings()
	require.True(t, ok)
	assert.Equal(t, []string{"GET", "POST"}, items)

	expr := ExprArg("METHODS")
	assert.True(t, expr.Present())
	_, ok = expr.Strings()
	assert.False(t, ok)

	assert.False(t, Absent.Present())
	assert.Equal(t, "absent", Absent.Kind.String())
}

func TestKeywordArg_Bool(t *testing.T) {
	testCases := []struct {
		name   string
		arg    KeywordArg
		value  bool
		parsed bool
	}{
		{"python true", ExprArg("True"), true, true},
		{"java false", ExprArg("false"), false, true},
		{"quoted literal", LiteralArg("true", `"true"`), true, true},
		{"other expr", ExprArg("flag"), false, false},
		{"absent", Absent, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, ok := tc.arg.Bool()
			assert.Equal(t, tc.parsed, ok)
			assert.Equal(t, tc.value, v)
		})
	}
}

func TestArgs_First(t *testing.T) {
	args := Args{"path": LiteralArg("/a", `"/a"`)}
	v, _ := args.First("value", "path").Text()
	assert.Equal(t, "/a", v)
	assert.False(t, args.First("missing").Present())

	var nilArgs Args
	assert.False(t, nilArgs.Get("x").Present())
}

func TestParameterFact_IsRequired(t *testing.T) {
	no := false
	assert.True(t, ParameterFact{Name: "q"}.IsRequired())
	assert.False(t, ParameterFact{Name: "q", HasDefault: true}.IsRequired())
	assert.False(t, ParameterFact{Name: "q", Required: &no}.IsRequired())
}

func TestRegistry_Dispatch(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubAnalyzer{name: "decorator", exts: []string{".py"}}))
	require.NoError(t, r.Register(stubAnalyzer{name: "annotation", exts: []string{"java"}}))

	a, ok := r.ForPath("src/app/main.py")
	require.True(t, ok)
	assert.Equal(t, "decorator", a.Name())

	a, ok = r.ForPath("src/Widget.JAVA")
	require.True(t, ok)
	assert.Equal(t, "annotation", a.Name())

	_, ok = r.ForPath("README.md")
	assert.False(t, ok)

	assert.Equal(t, []string{".java", ".py"}, r.Extensions())
	assert.Len(t, r.Analyzers(), 2)
}

func TestRegistry_RejectsDuplicateExtension(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubAnalyzer{name: "first", exts: []string{".py"}}))

	err := r.Register(stubAnalyzer{name: "second", exts: []string{".pyi", ".py"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already handled by first")

	// nothing from the rejected analyzer was registered
	_, ok := r.ForPath("stub.pyi")
	assert.False(t, ok)
	assert.Len(t, r.Analyzers(), 1)
}

func TestFileFacts_Empty(t *testing.T) {
	f := NewFileFacts("a.py", "decorator")
	assert.True(t, f.Empty())
	f.Routes = append(f.Routes, RouteFact{Method: "GET"})
	assert.False(t, f.Empty())
}
