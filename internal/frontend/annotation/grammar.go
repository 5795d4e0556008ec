package annotation

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// javaLexer tokenizes annotation uses, parameter lists and type references.
// It is never run over a whole file.
var javaLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*(?:[^*]|\*+[^*/])*\*+/`},
	{Name: "TextBlock", Pattern: `"""(?:\\.|[^\\])*?"""`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\\n])*"`},
	{Name: "Char", Pattern: `'(?:\\.|[^'\\\n])+'`},
	{Name: "Number", Pattern: `0[xXbB][0-9a-fA-F_]+[lL]?|\d[\d_]*(?:\.\d+)?(?:[eE][-+]?\d+)?[lLfFdD]?`},
	{Name: "Ident", Pattern: `[\p{L}_$][\p{L}\p{N}_$]*`},
	{Name: "Ellipsis", Pattern: `\.\.\.`},
	{Name: "Punct", Pattern: `[@(),=<>\[\]{}.?&:;+\-*/!|~^%]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// annotationExpr is one annotation use: `@Name`, `@a.b.Name(...)`
type annotationExpr struct {
	Pos  lexer.Position
	Name []string         `parser:"'@' @Ident ( '.' @Ident )*"`
	Call bool             `parser:"( @'('"`
	Args []*annotationArg `parser:"  ( @@ ( ',' @@ )* )? ')' )?"`
}

// annotationArg is a `key = value` pair or the single shorthand value
type annotationArg struct {
	Pos   lexer.Position
	Key   string        `parser:"( @Ident '=' )?"`
	Value *elementValue `parser:"@@"`
}

type elementValue struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	Array      bool            `parser:"(   @'{'"`
	Items      []*elementValue `parser:"    ( @@ ( ',' @@ )* )? '}'"`
	Annotation *annotationExpr `parser:"  | @@"`
	Terms      []*term         `parser:"  | @@ ( '+' @@ )* )"`
}

type term struct {
	String *string       `parser:"  @( String | TextBlock )"`
	Char   *string       `parser:"| @Char"`
	Number *string       `parser:"| @( '-'? Number )"`
	Ref    []string      `parser:"| @Ident ( '.' @Ident )*"`
	Group  *elementValue `parser:"| '(' @@ ')'"`
}

// paramList is the text between a method's (or record's) parentheses
type paramList struct {
	Params []*param `parser:"( @@ ( ',' @@ )* )?"`
}

type param struct {
	Pos         lexer.Position
	Annotations []*annotationExpr `parser:"( @@ | 'final' )*"`
	Type        *javaType         `parser:"@@"`
	Varargs     bool              `parser:"@Ellipsis?"`
	Name        string            `parser:"@Ident"`
	Dims        []string          `parser:"( @'[' ']' )*"`
}

// javaType is a type reference as written in a declaration
type javaType struct {
	Annotations []*annotationExpr `parser:"@@*"`
	Name        []string          `parser:"@Ident ( '.' @Ident )*"`
	Args        []*typeArg        `parser:"( '<' ( @@ ( ',' @@ )* )? '>' )?"`
	Dims        []string          `parser:"( @'[' ']' )*"`
}

type typeArg struct {
	Wildcard bool      `parser:"(   @'?'"`
	Relation string    `parser:"    ( @( 'extends' | 'super' )"`
	Bound    *javaType `parser:"      @@ )?"`
	Type     *javaType `parser:"  | @@ )"`
}

func buildParser[G any]() *participle.Parser[G] {
	return participle.MustBuild[G](
		participle.Lexer(javaLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(4),
	)
}

var (
	annotationParser = buildParser[annotationExpr]()
	paramsParser     = buildParser[paramList]()
	typeParser       = buildParser[javaType]()
)

// simpleName is the last segment of a possibly qualified name
func (a *annotationExpr) simpleName() string {
	if a == nil || len(a.Name) == 0 {
		return ""
	}
	return a.Name[len(a.Name)-1]
}

// value returns the first argument stored under one of keys. The unnamed
// shorthand argument counts as `value`.
func (a *annotationExpr) value(keys ...string) *annotationArg {
	if a == nil {
		return nil
	}
	for _, k := range keys {
		for _, arg := range a.Args {
			name := arg.Key
			if name == "" {
				name = "value"
			}
			if name == k {
				return arg
			}
		}
	}
	return nil
}

// walk visits a and every annotation nested in its arguments
func (a *annotationExpr) walk(fn func(*annotationExpr)) {
	if a == nil {
		return
	}
	fn(a)
	for _, arg := range a.Args {
		arg.Value.walkAnnotations(fn)
	}
}

func (v *elementValue) walkAnnotations(fn func(*annotationExpr)) {
	if v == nil {
		return
	}
	if v.Annotation != nil {
		v.Annotation.walk(fn)
	}
	for _, it := range v.Items {
		it.walkAnnotations(fn)
	}
	for _, t := range v.Terms {
		t.Group.walkAnnotations(fn)
	}
}

func (v *elementValue) raw(src string) string {
	if v == nil || v.EndPos.Offset > len(src) {
		return ""
	}
	return strings.TrimSpace(src[v.Pos.Offset:v.EndPos.Offset])
}

// literal folds a string constant expression such as "/a" + "/b"
func (v *elementValue) literal() (string, bool) {
	if v == nil || len(v.Terms) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, t := range v.Terms {
		switch {
		case t.String != nil:
			b.WriteString(unquote(*t.String))
		case t.Group != nil:
			s, ok := t.Group.literal()
			if !ok {
				return "", false
			}
			b.WriteString(s)
		default:
			return "", false
		}
	}
	return b.String(), true
}

// literals returns the string items of a literal or an array of literals
func (v *elementValue) literals() ([]string, bool) {
	if v == nil {
		return nil, false
	}
	if !v.Array {
		s, ok := v.literal()
		if !ok {
			return nil, false
		}
		return []string{s}, true
	}
	out := make([]string, 0, len(v.Items))
	for _, it := range v.Items {
		s, ok := it.literal()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// refs returns the simple names of constant references, either a single
// `RequestMethod.GET` or a `{...}` list of them
func (v *elementValue) refs() ([]string, bool) {
	if v == nil {
		return nil, false
	}
	items := []*elementValue{v}
	if v.Array {
		items = v.Items
	}
	var out []string
	for _, it := range items {
		if len(it.Terms) != 1 || len(it.Terms[0].Ref) == 0 {
			return nil, false
		}
		ref := it.Terms[0].Ref
		out = append(out, ref[len(ref)-1])
	}
	return out, true
}

// boolean reads a `true`/`false` constant
func (v *elementValue) boolean() (bool, bool) {
	names, ok := v.refs()
	if !ok || len(names) != 1 || v.Array {
		return false, false
	}
	switch names[0] {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// simpleName is the last segment of the type name
func (t *javaType) simpleName() string {
	if t == nil || len(t.Name) == 0 {
		return ""
	}
	return t.Name[len(t.Name)-1]
}

func (t *javaType) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.Name, "."))
	if len(t.Args) > 0 {
		b.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.String())
		}
		b.WriteByte('>')
	}
	for range t.Dims {
		b.WriteString("[]")
	}
	return b.String()
}

func (a *typeArg) String() string {
	switch {
	case a.Type != nil:
		return a.Type.String()
	case a.Bound != nil:
		return "? " + a.Relation + " " + a.Bound.String()
	}
	return "?"
}

// unquote decodes a Java string or text block literal
func unquote(lit string) string {
	if strings.HasPrefix(lit, `"""`) && strings.HasSuffix(lit, `"""`) && len(lit) >= 6 {
		body := strings.TrimPrefix(lit[3:len(lit)-3], "\n")
		return dedent(body)
	}
	if s, err := strconv.Unquote(lit); err == nil {
		return s
	}
	return strings.Trim(lit, `"`)
}

func dedent(body string) string {
	lines := strings.Split(body, "\n")
	margin := -1
	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		indent := len(ln) - len(strings.TrimLeft(ln, " \t"))
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	for i, ln := range lines {
		if len(ln) >= margin && margin > 0 {
			lines[i] = ln[margin:]
		}
	}
	return strings.Join(lines, "\n")
}
