// Package decorator extracts route registrations from decorator-style Python
// web frameworks (FastAPI-like verb decorators and Flask-like route decorators).
package decorator

import (
	"regexp"
	"slices"
	"strings"

	"github.com/toyz/spectra/internal/errors"
	"github.com/toyz/spectra/internal/facts"
	"github.com/toyz/spectra/internal/ir"
)

// Name identifies this front-end in diagnostics
const Name = "decorator"

var verbs = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true,
	"patch": true, "options": true, "head": true, "trace": true,
}

// routeMembers register one route per entry of their methods list
var routeMembers = map[string]bool{"route": true, "api_route": true}

// unsupportedMembers are registration forms that are recognized but skipped
var unsupportedMembers = map[string]bool{
	"websocket": true, "websocket_route": true, "api_websocket_route": true,
	"add_url_rule": true, "add_api_route": true, "add_api_websocket_route": true,
	"add_resource": true,
}

// routerFactories create objects routes can be registered on, mapped to the
// keyword carrying their base path
var routerFactories = map[string]string{
	"APIRouter":    "prefix",
	"Blueprint":    "url_prefix",
	"APIBlueprint": "url_prefix",
	"Flask":        "",
	"Quart":        "",
	"APIFlask":     "",
	"FastAPI":      "",
}

var schemaBases = map[string]bool{"BaseModel": true, "SQLModel": true, "Schema": true}

// paramMarkers are default-value calls that pin a parameter location
var paramMarkers = map[string]string{
	"Path":   facts.HintPath,
	"Query":  facts.HintQuery,
	"Header": facts.HintHeader,
	"Cookie": facts.HintCookie,
	"Body":   facts.HintBody,
	"Form":   facts.HintBody,
	"File":   facts.HintBody,
}

var statusConstant = regexp.MustCompile(`HTTP_(\d{3})`)

// Analyzer is the decorator-idiom front-end
type Analyzer struct{}

// New creates a decorator-idiom analyzer
func New() *Analyzer {
	return &Analyzer{}
}

// Name returns the front-end name
func (a *Analyzer) Name() string { return Name }

// Extensions returns the file extensions this front-end handles
func (a *Analyzer) Extensions() []string { return []string{".py"} }

// Analyze extracts route, schema and security-scheme facts from one file. A
// file that cannot be parsed yields a SyntaxError and no facts.
func (a *Analyzer) Analyze(content []byte, path string) (*facts.FileFacts, error) {
	lines, err := splitLines(path, string(content))
	if err != nil {
		if se, ok := err.(*syntaxErr); ok {
			return nil, errors.NewSyntaxError(path, se.line, "%s", se.msg)
		}
		return nil, errors.WrapSyntaxError(Name, path, err)
	}

	st := &fileState{
		path:          path,
		out:           facts.NewFileFacts(path, Name),
		lines:         lines,
		routers:       make(map[string]router),
		schemes:       make(map[string]bool),
		deps:          make(map[string][]facts.SecurityFact),
		schemaClasses: make(map[string]int),
	}
	if err := st.run(); err != nil {
		return nil, err
	}
	return st.out, nil
}

type router struct {
	prefix string
	tags   []string
}

type classScope struct {
	name       string
	indent     int
	bodyIndent int
	prefix     string
	tags       []string
	schema     int
}

type pendingDecorator struct {
	target *atom
	line   int
	src    string
}

type fileState struct {
	path          string
	out           *facts.FileFacts
	lines         []logicalLine
	routers       map[string]router
	schemes       map[string]bool
	deps          map[string][]facts.SecurityFact
	schemaClasses map[string]int
	classes       []*classScope
	pending       []pendingDecorator
}

func (st *fileState) run() error {
	for i, ln := range st.lines {
		for len(st.classes) > 0 && ln.Indent <= st.classes[len(st.classes)-1].indent {
			st.classes = st.classes[:len(st.classes)-1]
		}
		if cls := st.class(); cls != nil && cls.bodyIndent < 0 {
			cls.bodyIndent = ln.Indent
		}

		switch {
		case ln.startsWith("@"):
			text := ln.Text()
			d, err := decoratorParser.ParseString("", text)
			if err != nil {
				return errors.NewSyntaxError(st.path, ln.Line, "malformed decorator: %v", err)
			}
			st.pending = append(st.pending, pendingDecorator{target: d.Target, line: ln.Line, src: text})
		case ln.startsWith("def"), ln.startsWith("async", "def"):
			if err := st.function(i); err != nil {
				return err
			}
			st.pending = nil
		case ln.startsWith("class"):
			if err := st.classDef(ln); err != nil {
				return err
			}
			st.pending = nil
		default:
			st.pending = nil
			st.statement(ln)
		}
	}
	return nil
}

func (st *fileState) class() *classScope {
	if len(st.classes) == 0 {
		return nil
	}
	return st.classes[len(st.classes)-1]
}

func (st *fileState) loc(line int) ir.Location {
	return ir.Location{File: st.path, Line: line}
}

func (st *fileState) note(err errors.SpectraError) {
	st.out.Note(err)
}

// function handles a def header together with the decorators stacked on it
func (st *fileState) function(i int) error {
	ln := st.lines[i]
	end := ln.headerEnd()
	if end < 0 {
		return errors.NewSyntaxError(st.path, ln.Line, "function definition without ':'")
	}
	header := ln.textUntil(end + 1)
	def, err := defParser.ParseString("", header)
	if err != nil {
		return errors.NewSyntaxError(st.path, ln.Line, "malformed function definition: %v", err)
	}

	doc := st.docstring(i, end)

	for _, dec := range st.pending {
		st.routes(dec, def, header, doc)
	}

	// functions that require a security scheme make every route depending on
	// them inherit the requirement
	_, security := st.parameters(def, header, "")
	if len(security) > 0 {
		st.deps[def.Name] = security
	}
	return nil
}

// docstring returns the string literal that opens a function body
func (st *fileState) docstring(i, headerEnd int) string {
	ln := st.lines[i]
	var tok string
	if headerEnd+1 < len(ln.Tokens) {
		body := ln.Tokens[headerEnd+1:]
		if body[0].Type != tokString {
			return ""
		}
		tok = body[0].Value
	} else if i+1 < len(st.lines) {
		next := st.lines[i+1]
		if next.Indent <= ln.Indent || len(next.Tokens) != 1 || next.Tokens[0].Type != tokString {
			return ""
		}
		tok = next.Tokens[0].Value
	}
	if tok == "" {
		return ""
	}
	text, ok := unquote(tok)
	if !ok {
		return ""
	}
	return cleanDoc(text)
}

// routes turns one decorator into zero or more route facts
func (st *fileState) routes(dec pendingDecorator, def *defHeader, header, doc string) {
	callee, call := dec.target.call()
	if call == nil {
		return
	}
	member := lastSegment(callee)
	receiver := receiverOf(callee)

	var methods []string
	switch {
	case verbs[member]:
		methods = []string{strings.ToUpper(member)}
	case routeMembers[member]:
		// methods come from the keyword list below
	case unsupportedMembers[member]:
		st.note(errors.NewUnsupportedConstruct(st.path, dec.line, "registration form '%s' is not supported", callee))
		return
	default:
		return
	}

	args := keywordArgs(call, dec.src)
	if include, ok := args.Get("include_in_schema").Bool(); ok && !include {
		return
	}

	var pathExpr *expr
	if pos := call.positional(); len(pos) > 0 {
		pathExpr = pos[0].Value
	} else if k := call.keyword("path"); k != nil {
		pathExpr = k.Value
	} else if k := call.keyword("rule"); k != nil {
		pathExpr = k.Value
	}
	if pathExpr == nil {
		st.note(errors.NewAmbiguousFact(st.path, dec.line, "route '%s' has no path; skipped", def.Name))
		return
	}
	rawPath, ok := keywordArg(pathExpr, dec.src).Text()
	if !ok {
		st.note(errors.NewAmbiguousFact(st.path, dec.line, "route path '%s' of '%s' is not a string literal; skipped",
			pathExpr.raw(dec.src), def.Name))
		return
	}

	if methods == nil {
		m := args.Get("methods")
		list, ok := m.Strings()
		switch {
		case !m.Present():
			methods = []string{"GET"}
		case ok:
			methods = list
		default:
			st.note(errors.NewAmbiguousFact(st.path, dec.line, "methods '%s' of '%s' is not a literal list; defaulting to GET",
				m.Raw, def.Name))
			methods = []string{"GET"}
		}
	}

	base := st.routers[receiver]
	var classPrefix, enclosing string
	tags := appendUnique(nil, base.tags...)
	if cls := st.class(); cls != nil {
		enclosing = cls.name
		classPrefix = cls.prefix
		tags = appendUnique(tags, cls.tags...)
	}
	if list, ok := args.Get("tags").Strings(); ok {
		tags = appendUnique(tags, list...)
	}

	params, security := st.parameters(def, header, rawPath)
	security = append(security, st.dependencySecurity(call, dec.src)...)

	summary, description := docParts(doc)
	if s, ok := args.Get("summary").Text(); ok {
		summary = s
	}
	if d, ok := args.Get("description").Text(); ok {
		description = d
	}

	fact := facts.RouteFact{
		RawPath:        rawPath,
		BasePath:       ir.JoinPath(base.prefix, classPrefix),
		Location:       st.loc(dec.line),
		Scope:          receiver,
		EnclosingClass: enclosing,
		Handler:        def.Name,
		Args:           args,
		Params:         params,
		Summary:        summary,
		Description:    description,
		Tags:           tags,
		Security:       security,
		Response:       st.responseType(call, def),
	}
	if id, ok := args.Get("operation_id").Text(); ok {
		fact.OperationID = id
	}
	if status := args.Get("status_code"); status.Present() {
		if s, ok := status.Text(); ok {
			fact.Status = s
		} else if m := statusConstant.FindStringSubmatch(status.Raw); m != nil {
			fact.Status = m[1]
		}
	}
	if dep, ok := args.Get("deprecated").Bool(); ok {
		fact.Deprecated = dep
	}

	for _, m := range methods {
		f := fact
		f.Method = m
		st.out.Routes = append(st.out.Routes, f)
	}
}

// responseType prefers an explicit response_model over the return annotation
func (st *fileState) responseType(call *trailer, def *defHeader) *ir.Type {
	e := def.Returns
	if k := call.keyword("response_model"); k != nil {
		e = k.Value
	}
	if e == nil || e.single().isName("None") {
		return nil
	}
	ann := resolveType(e)
	if carrierTypes[ann.Name] || strings.HasSuffix(ann.Name, "Response") {
		return nil
	}
	t := ann.Type
	return &t
}

// parameters builds parameter facts for a handler. Arguments injected through
// a dependency marker are dropped; the ones naming a security scheme come back
// as security requirements instead.
func (st *fileState) parameters(def *defHeader, src, rawPath string) ([]facts.ParameterFact, []facts.SecurityFact) {
	converters := make(map[string]string)
	for _, ph := range ir.PathPlaceholders(rawPath) {
		converters[ph.Name] = ph.Converter
	}

	var (
		params   []facts.ParameterFact
		security []facts.SecurityFact
	)
	for _, p := range def.Params {
		name := p.name()
		if p.Star != "" || name == "" || name == "self" || name == "cls" {
			continue
		}

		ann := resolveType(p.Annot)
		if carrierTypes[ann.Name] {
			continue
		}

		markers := ann.Markers
		var defaultCall *trailer
		if d := p.Default.single(); d != nil {
			if callee, call := d.call(); call != nil {
				markers = append(markers, d)
				if _, ok := paramMarkers[lastSegment(callee)]; ok {
					defaultCall = call
				}
			}
		}

		location := ""
		injected := false
		var markerCall *trailer
		for _, m := range markers {
			callee, call := m.call()
			kind := lastSegment(callee)
			if hint, ok := paramMarkers[kind]; ok {
				location = hint
				markerCall = call
				continue
			}
			if kind == "Depends" || kind == "Security" {
				injected = true
				security = append(security, st.markerSecurity(m, src)...)
			}
		}
		if injected {
			continue
		}

		pf := facts.ParameterFact{
			Name:     name,
			TypeText: p.Annot.raw(src),
			Type:     ann.Type,
		}
		switch {
		case defaultCall != nil:
			if d := markerDefault(defaultCall); d != nil {
				pf.HasDefault = true
				pf.DefaultLiteral = d.raw(src)
			}
		case p.Default != nil:
			pf.HasDefault = true
			pf.DefaultLiteral = p.Default.raw(src)
		}

		if markerCall != nil {
			if alias, ok := keywordArg(argValue(markerCall.keyword("alias")), src).Text(); ok {
				pf.Name = alias
			} else if location == facts.HintHeader {
				convert, set := keywordArg(argValue(markerCall.keyword("convert_underscores")), src).Bool()
				if !set || convert {
					pf.Name = strings.ReplaceAll(name, "_", "-")
				}
			}
		}

		conv, isPlaceholder := converters[name]
		if location == "" {
			switch {
			case isPlaceholder:
				location = facts.HintPath
			case len(ann.Type.Refs()) > 0:
				location = facts.HintBody
			default:
				location = facts.HintQuery
			}
		}
		if t, ok := converterTypes[conv]; ok && isPlaceholder {
			pf.Type = t
		}
		pf.LocationHint = location
		params = append(params, pf)
	}
	return params, security
}

// markerSecurity resolves Depends(x) / Security(x, scopes=[...]) against the
// security schemes and dependency functions seen so far
func (st *fileState) markerSecurity(m *atom, src string) []facts.SecurityFact {
	callee, call := m.call()
	var dep *expr
	if pos := call.positional(); len(pos) > 0 {
		dep = pos[0].Value
	} else if k := call.keyword("dependency"); k != nil {
		dep = k.Value
	}
	target, rest := dep.single().dotted()
	if target == "" || len(rest) > 0 {
		return nil
	}

	var scopes []string
	if lastSegment(callee) == "Security" {
		scopes, _ = keywordArg(argValue(call.keyword("scopes")), src).Strings()
	}

	if st.schemes[target] {
		return []facts.SecurityFact{{Scheme: target, Scopes: scopes}}
	}
	inherited := st.deps[target]
	if len(inherited) == 0 {
		return nil
	}
	out := make([]facts.SecurityFact, len(inherited))
	for i, s := range inherited {
		out[i] = facts.SecurityFact{Scheme: s.Scheme, Scopes: append(append([]string(nil), s.Scopes...), scopes...)}
	}
	return out
}

// dependencySecurity reads the dependencies=[Depends(x), ...] route keyword
func (st *fileState) dependencySecurity(call *trailer, src string) []facts.SecurityFact {
	k := call.keyword("dependencies")
	if k == nil {
		return nil
	}
	list := k.Value.single()
	if list == nil || list.Open == "" {
		return nil
	}
	var out []facts.SecurityFact
	for _, item := range list.Items {
		if m := item.Value.single(); m != nil {
			if _, c := m.call(); c != nil {
				out = append(out, st.markerSecurity(m, src)...)
			}
		}
	}
	return out
}

// classDef opens a class scope and registers model classes as schemas
func (st *fileState) classDef(ln logicalLine) error {
	end := ln.headerEnd()
	if end < 0 {
		return errors.NewSyntaxError(st.path, ln.Line, "class definition without ':'")
	}
	ch, err := classParser.ParseString("", ln.textUntil(end+1))
	if err != nil {
		return errors.NewSyntaxError(st.path, ln.Line, "malformed class definition: %v", err)
	}

	scope := &classScope{name: ch.Name, indent: ln.Indent, bodyIndent: -1, schema: -1}
	isModel := false
	for _, d := range st.pending {
		name, _ := d.target.dotted()
		if lastSegment(name) == "dataclass" {
			isModel = true
			continue
		}
		if _, call := d.target.call(); call != nil {
			args := keywordArgs(call, d.src)
			if p, ok := args.First("prefix", "url_prefix").Text(); ok {
				scope.prefix = p
			}
			if tags, ok := args.Get("tags").Strings(); ok {
				scope.tags = tags
			}
		}
	}

	var inherited []facts.FieldFact
	for _, b := range ch.Bases {
		if b.Keyword != "" || b.Star != "" {
			continue
		}
		base, _ := b.Value.single().dotted()
		seg := lastSegment(base)
		if schemaBases[seg] {
			isModel = true
		}
		if idx, ok := st.schemaClasses[seg]; ok {
			isModel = true
			inherited = append(inherited, st.out.Schemas[idx].Fields...)
		}
	}

	if isModel {
		st.out.Schemas = append(st.out.Schemas, facts.SchemaFact{
			TypeName: ch.Name,
			Location: st.loc(ln.Line),
			Fields:   append([]facts.FieldFact(nil), inherited...),
		})
		scope.schema = len(st.out.Schemas) - 1
		st.schemaClasses[ch.Name] = scope.schema
	}
	st.classes = append(st.classes, scope)
	return nil
}

// statement handles assignments and call statements outside decorators
func (st *fileState) statement(ln logicalLine) {
	if len(ln.Tokens) >= 3 && ln.Tokens[1].Value == "." {
		for i := 2; i+1 < len(ln.Tokens); i += 2 {
			if ln.Tokens[i+1].Value == "(" {
				if unsupportedMembers[ln.Tokens[i].Value] {
					st.note(errors.NewUnsupportedConstruct(st.path, ln.Line, "registration form '%s' is not supported", ln.Tokens[i].Value))
				}
				break
			}
			if ln.Tokens[i+1].Value != "." {
				break
			}
		}
		return
	}

	if len(ln.Tokens) < 2 || ln.Tokens[0].Type != tokName {
		return
	}
	if v := ln.Tokens[1].Value; v != "=" && v != ":" {
		return
	}
	text := ln.Text()
	as, err := assignmentParser.ParseString("", text)
	if err != nil {
		// arbitrary statements are not headers; they never fail the file
		return
	}

	if cls := st.class(); cls != nil {
		if cls.schema >= 0 && ln.Indent == cls.bodyIndent && as.Annot != nil {
			st.field(cls, as, text)
		}
		return
	}
	st.binding(as, text, ln.Line)
}

// binding records routers and security schemes bound to a variable
func (st *fileState) binding(as *assignment, src string, line int) {
	callee, call := as.Value.single().call()
	if call == nil {
		return
	}
	kind := lastSegment(callee)
	args := keywordArgs(call, src)

	if key, ok := routerFactories[kind]; ok {
		r := router{}
		if key != "" {
			r.prefix, _ = args.Get(key).Text()
		}
		r.tags, _ = args.Get("tags").Strings()
		st.routers[as.Target] = r
		return
	}

	scheme := facts.SecuritySchemeFact{Name: as.Target, Location: st.loc(line)}
	switch kind {
	case "OAuth2PasswordBearer", "OAuth2AuthorizationCodeBearer":
		scheme.Kind = "oauth2"
		scheme.TokenURL, _ = args.First("tokenUrl", "token_url").Text()
	case "HTTPBearer":
		scheme.Kind, scheme.Scheme = "http", "bearer"
	case "HTTPBasic":
		scheme.Kind, scheme.Scheme = "http", "basic"
	case "HTTPDigest":
		scheme.Kind, scheme.Scheme = "http", "digest"
	case "APIKeyHeader", "APIKeyQuery", "APIKeyCookie":
		scheme.Kind = "apiKey"
		scheme.In = strings.ToLower(strings.TrimPrefix(kind, "APIKey"))
		scheme.KeyName, _ = args.Get("name").Text()
	default:
		return
	}
	st.schemes[as.Target] = true
	st.out.SecuritySchemes = append(st.out.SecuritySchemes, scheme)
}

// field appends one annotated model field, replacing an inherited one of the
// same name in place
func (st *fileState) field(cls *classScope, as *assignment, src string) {
	if strings.HasPrefix(as.Target, "_") {
		return
	}
	if base, _ := as.Annot.single().dotted(); lastSegment(base) == "ClassVar" {
		return
	}

	ann := resolveType(as.Annot)
	name := as.Target
	hasDefault := as.Value != nil
	if callee, call := as.Value.single().call(); call != nil && lastSegment(callee) == "Field" {
		hasDefault = markerDefault(call) != nil
		if alias, ok := keywordArg(argValue(call.keyword("alias")), src).Text(); ok {
			name = alias
		}
	}

	f := facts.FieldFact{
		Name:     name,
		TypeText: as.Annot.raw(src),
		Type:     ann.Type,
		Required: !hasDefault && ann.Type.Kind != ir.KindNullable,
	}
	schema := &st.out.Schemas[cls.schema]
	for i := range schema.Fields {
		if schema.Fields[i].Name == f.Name {
			schema.Fields[i] = f
			return
		}
	}
	schema.Fields = append(schema.Fields, f)
}

// markerDefault returns the default carried by a marker call such as
// Query(None) or Field(default=1). An ellipsis means "no default".
func markerDefault(call *trailer) *expr {
	if k := call.keyword("default"); k != nil {
		if isEllipsis(k.Value) {
			return nil
		}
		return k.Value
	}
	if k := call.keyword("default_factory"); k != nil {
		return k.Value
	}
	if pos := call.positional(); len(pos) > 0 && !isEllipsis(pos[0].Value) {
		return pos[0].Value
	}
	return nil
}

func isEllipsis(e *expr) bool {
	a := e.single()
	return a != nil && a.Ellipsis && len(a.Trailers) == 0
}

func argValue(a *arg) *expr {
	if a == nil {
		return nil
	}
	return a.Value
}

// keywordArgs resolves every keyword argument of a call once
func keywordArgs(call *trailer, src string) facts.Args {
	args := make(facts.Args)
	for _, a := range call.Args {
		if a.Keyword != "" {
			args[a.Keyword] = keywordArg(a.Value, src)
		}
	}
	return args
}

// keywordArg classifies an argument value as literal, literal list or
// arbitrary expression
func keywordArg(e *expr, src string) facts.KeywordArg {
	if e == nil {
		return facts.Absent
	}
	raw := e.raw(src)
	a := e.single()
	if a == nil || len(a.Trailers) > 0 {
		return facts.ExprArg(raw)
	}
	switch {
	case len(a.Strings) > 0:
		if s, ok := literalString(a); ok {
			return facts.LiteralArg(s, raw)
		}
	case a.Number != "":
		return facts.LiteralArg(a.Number, raw)
	case a.Open != "":
		items := make([]string, 0, len(a.Items))
		for _, it := range a.Items {
			if it.Keyword != "" || it.Star != "" || it.DictVal != nil {
				return facts.ExprArg(raw)
			}
			s, ok := literalString(it.Value.single())
			if !ok {
				return facts.ExprArg(raw)
			}
			items = append(items, s)
		}
		return facts.ListArg(items, raw)
	}
	return facts.ExprArg(raw)
}

// literalString joins implicitly concatenated string literals
func literalString(a *atom) (string, bool) {
	if a == nil || len(a.Strings) == 0 || len(a.Trailers) > 0 {
		return "", false
	}
	var b strings.Builder
	for _, s := range a.Strings {
		v, ok := unquote(s)
		if !ok {
			return "", false
		}
		b.WriteString(v)
	}
	return b.String(), true
}

// docParts splits a cleaned docstring into summary and description
func docParts(doc string) (summary, description string) {
	if doc == "" {
		return "", ""
	}
	summary, _, _ = strings.Cut(doc, "\n")
	return strings.TrimSpace(summary), doc
}

// appendUnique appends the items not already in list, keeping first-seen order
func appendUnique(list []string, items ...string) []string {
	for _, it := range items {
		if !slices.Contains(list, it) {
			list = append(list, it)
		}
	}
	return list
}
