package decorator

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// pythonLexer tokenizes whole source files and single logical lines alike
var pythonLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "String", Pattern: `(?i:[rbuf]{0,2})(?:"""(?:(?s:\\.)|[^\\])*?"""|'''(?:(?s:\\.)|[^\\])*?'''|"(?:\\.|[^"\\\n])*"|'(?:\\.|[^'\\\n])*')`},
	{Name: "Number", Pattern: `0[xXoObB][0-9a-fA-F_]+|(?:\d[\d_]*)?\.?\d[\d_]*(?:[eE][-+]?\d+)?[jJ]?`},
	{Name: "Ellipsis", Pattern: `\.\.\.`},
	{Name: "Name", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Op", Pattern: `\*\*=?|//=?|<<=?|>>=?|:=|[-+*/%&|^<>!=]=|[-+*/%&|^~<>]`},
	{Name: "Punct", Pattern: `[()\[\]{},:;.=@]`},
	{Name: "Continuation", Pattern: `\\\r?\n`},
	{Name: "Newline", Pattern: `\r?\n`},
	{Name: "Whitespace", Pattern: `[ \t\f\r]+`},
})

// expr is a permissive expression: a run of atoms and operators. It is only
// ever inspected for the shapes route registration cares about.
type expr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Parts  []*exprPart `parser:"@@+"`
}

type exprPart struct {
	Op   string `parser:"  @Op"`
	Atom *atom  `parser:"| @@"`
}

type atom struct {
	Pos      lexer.Position
	Strings  []string   `parser:"(   @String+"`
	Number   string     `parser:"  | @Number"`
	Ellipsis bool       `parser:"  | @Ellipsis"`
	Lambda   *lambda    `parser:"  | @@"`
	Name     string     `parser:"  | @Name"`
	Open     string     `parser:"  | @( '(' | '[' | '{' )"`
	Items    []*arg     `parser:"    ( @@ ( ',' @@ )* ','? )? ( ')' | ']' | '}' ) )"`
	Trailers []*trailer `parser:"@@*"`
}

type trailer struct {
	Attr  string `parser:"  '.' @Name"`
	Call  bool   `parser:"| ( @'('"`
	Args  []*arg `parser:"    ( @@ ( ',' @@ )* ','? )? ')' )"`
	Index bool   `parser:"| ( @'['"`
	Items []*arg `parser:"    ( @@ ( ',' @@ )* ','? )? ']' )"`
}

// lambda is only kept so headers carrying one still parse
type lambda struct {
	Params []*lambdaParam `parser:"'lambda' ( @@ ( ',' @@ )* ','? )? ':'"`
	Body   *expr          `parser:"@@"`
}

type lambdaParam struct {
	Star    string `parser:"(   @( '**' | '*' | '/' )"`
	Name    string `parser:"    @Name?"`
	Bare    string `parser:"  | @Name )"`
	Default *expr  `parser:"( '=' @@ )?"`
}

// arg is one call argument, collection item, dict entry or slice. A slice
// with an omitted start such as x[:2] has no Value.
type arg struct {
	Pos     lexer.Position
	Star    string `parser:"@( '**' | '*' )?"`
	Keyword string `parser:"( @Name '=' )?"`
	Value   *expr  `parser:"(   @@"`
	DictVal *expr  `parser:"    ( ':' @@?"`
	Step    *expr  `parser:"      ( ':' @@? )? )?"`
	Upper   *expr  `parser:"  | ':' @@?"`
	Stride  *expr  `parser:"    ( ':' @@? )? )"`
}

type decoratorLine struct {
	Target *atom `parser:"'@' @@"`
}

type defHeader struct {
	Async   bool     `parser:"( @'async' )?"`
	Name    string   `parser:"'def' @Name"`
	Params  []*param `parser:"'(' ( @@ ( ',' @@ )* ','? )? ')'"`
	Returns *expr    `parser:"( '->' @@ )? ':'"`
}

type param struct {
	Pos     lexer.Position
	Star    string `parser:"(   @( '**' | '*' | '/' )"`
	Name    string `parser:"    @Name?"`
	Bare    string `parser:"  | @Name )"`
	Annot   *expr  `parser:"( ':' @@ )?"`
	Default *expr  `parser:"( '=' @@ )?"`
}

func (p *param) name() string {
	if p.Bare != "" {
		return p.Bare
	}
	return p.Name
}

type classHeader struct {
	Name  string `parser:"'class' @Name"`
	Bases []*arg `parser:"( '(' ( @@ ( ',' @@ )* ','? )? ')' )? ':'"`
}

type assignment struct {
	Target string `parser:"@Name"`
	Annot  *expr  `parser:"( ':' @@ )?"`
	Value  *expr  `parser:"( '=' @@ )?"`
}

func buildParser[G any]() *participle.Parser[G] {
	return participle.MustBuild[G](
		participle.Lexer(pythonLexer),
		participle.Elide("Whitespace", "Comment", "Newline", "Continuation"),
		participle.UseLookahead(4),
	)
}

var (
	decoratorParser  = buildParser[decoratorLine]()
	defParser        = buildParser[defHeader]()
	classParser      = buildParser[classHeader]()
	assignmentParser = buildParser[assignment]()
)

// raw returns the source text an expression was parsed from
func (e *expr) raw(src string) string {
	if e == nil {
		return ""
	}
	start, end := e.Pos.Offset, e.EndPos.Offset
	if end <= start || end > len(src) {
		end = len(src)
	}
	if start < 0 || start > end {
		return ""
	}
	return strings.TrimSpace(src[start:end])
}

// single returns the lone atom of an expression that has no operators
func (e *expr) single() *atom {
	if e == nil || len(e.Parts) != 1 || e.Parts[0].Atom == nil {
		return nil
	}
	return e.Parts[0].Atom
}

// alternatives splits an expression on top-level '|' operators
func (e *expr) alternatives() []*expr {
	if e == nil {
		return nil
	}
	var out []*expr
	current := &expr{Pos: e.Pos, EndPos: e.EndPos}
	for _, p := range e.Parts {
		if p.Op == "|" {
			out = append(out, current)
			current = &expr{Pos: e.Pos, EndPos: e.EndPos}
			continue
		}
		current.Parts = append(current.Parts, p)
	}
	return append(out, current)
}

// dotted returns the leading dotted name of an atom and the trailers that
// follow it, e.g. `app.get` and the call trailer for `app.get("/x")`.
func (a *atom) dotted() (string, []*trailer) {
	if a == nil || a.Name == "" {
		return "", nil
	}
	name := a.Name
	i := 0
	for ; i < len(a.Trailers) && a.Trailers[i].Attr != ""; i++ {
		name += "." + a.Trailers[i].Attr
	}
	return name, a.Trailers[i:]
}

// call splits `recv.member(args)` into its dotted callee and call trailer
func (a *atom) call() (string, *trailer) {
	name, rest := a.dotted()
	if name == "" || len(rest) == 0 || !rest[0].Call {
		return "", nil
	}
	return name, rest[0]
}

// isName reports whether the atom is exactly the bare identifier n
func (a *atom) isName(n string) bool {
	return a != nil && a.Name == n && len(a.Trailers) == 0
}

func lastSegment(dotted string) string {
	if i := strings.LastIndex(dotted, "."); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}

func receiverOf(dotted string) string {
	if i := strings.LastIndex(dotted, "."); i >= 0 {
		return dotted[:i]
	}
	return ""
}

// positional returns the positional arguments of a call in order
func (t *trailer) positional() []*arg {
	var out []*arg
	for _, a := range t.Args {
		if a.Keyword == "" && a.Star == "" {
			out = append(out, a)
		}
	}
	return out
}

// keyword returns the named keyword argument of a call
func (t *trailer) keyword(name string) *arg {
	for _, a := range t.Args {
		if a.Keyword == name {
			return a
		}
	}
	return nil
}
