// Package annotation extracts controller routes from annotation-driven Java
// sources such as Spring @RestController classes.
package annotation

import (
	"regexp"
	"strings"

	"github.com/toyz/spectra/internal/errors"
	"github.com/toyz/spectra/internal/facts"
	"github.com/toyz/spectra/internal/ir"
)

// Name identifies this front-end in diagnostics
const Name = "annotation"

const (
	// pathWindow bounds how far below a mapping annotation its path may sit
	pathWindow = 5
	// signatureWindow bounds how far below a mapping annotation the handler
	// declaration may start
	signatureWindow = 10
)

// mappingVerbs maps route annotations to their verb. RequestMapping reads
// the verb from its method argument.
var mappingVerbs = map[string]string{
	"GetMapping":     "GET",
	"PostMapping":    "POST",
	"PutMapping":     "PUT",
	"DeleteMapping":  "DELETE",
	"PatchMapping":   "PATCH",
	"RequestMapping": "",
}

// paramAnnotations pin the location of a handler argument
var paramAnnotations = map[string]string{
	"PathVariable":  facts.HintPath,
	"RequestParam":  facts.HintQuery,
	"RequestHeader": facts.HintHeader,
	"CookieValue":   facts.HintCookie,
	"RequestBody":   facts.HintBody,
	"RequestPart":   facts.HintBody,
}

var schemaMarkers = map[string]bool{
	"Entity": true, "Data": true, "Value": true, "Table": true,
	"Embeddable": true, "Document": true, "Schema": true,
}

var requiredMarkers = map[string]bool{
	"NotNull": true, "NotBlank": true, "NotEmpty": true, "Id": true, "NonNull": true,
}

var httpStatuses = map[string]string{
	"OK":                    "200",
	"CREATED":               "201",
	"ACCEPTED":              "202",
	"NO_CONTENT":            "204",
	"MOVED_PERMANENTLY":     "301",
	"FOUND":                 "302",
	"SEE_OTHER":             "303",
	"NOT_MODIFIED":          "304",
	"BAD_REQUEST":           "400",
	"UNAUTHORIZED":          "401",
	"FORBIDDEN":             "403",
	"NOT_FOUND":             "404",
	"METHOD_NOT_ALLOWED":    "405",
	"CONFLICT":              "409",
	"GONE":                  "410",
	"UNPROCESSABLE_ENTITY":  "422",
	"TOO_MANY_REQUESTS":     "429",
	"INTERNAL_SERVER_ERROR": "500",
	"NOT_IMPLEMENTED":       "501",
	"SERVICE_UNAVAILABLE":   "503",
}

var methodModifiers = map[string]bool{
	"public": true, "protected": true, "private": true, "static": true,
	"final": true, "abstract": true, "synchronized": true, "native": true,
	"default": true, "strictfp": true,
}

var (
	annotationUse   = regexp.MustCompile(`@\s*([\p{L}_$][\p{L}\p{N}_$]*(?:\s*\.\s*[\p{L}_$][\p{L}\p{N}_$]*)*)`)
	typeDeclKeyword = regexp.MustCompile(`(?:^|[^.\p{L}\p{N}_$])(class|interface|enum|record)\s+([\p{L}_$][\p{L}\p{N}_$]*)`)
	classHeader     = regexp.MustCompile(`^(?:(?:public|protected|private|static|final|abstract|sealed|non-sealed|strictfp)\s+)*(class|interface|enum|record)\s+([\p{L}_$][\p{L}\p{N}_$]*)`)
	inlineUse       = regexp.MustCompile(`@[\p{L}_$][\p{L}\p{N}_$.]*(?:\s*\([^)]*\))?`)
	handlerName     = regexp.MustCompile(`^(.*?)\s*([\p{L}_$][\p{L}\p{N}_$]*)$`)
	fieldDecl       = regexp.MustCompile(`^((?:(?:public|protected|private|static|final|transient|volatile)\s+)*)(.+)\s+([\p{L}_$][\p{L}\p{N}_$]*)((?:\s*\[\s*\])*)$`)
)

// Analyzer is the annotation-idiom front-end
type Analyzer struct{}

// New creates an annotation-idiom analyzer
func New() *Analyzer {
	return &Analyzer{}
}

// Name returns the front-end name
func (a *Analyzer) Name() string { return Name }

// Extensions returns the file extensions this front-end handles
func (a *Analyzer) Extensions() []string { return []string{".java"} }

// Analyze extracts route, schema and security-scheme facts from one file. A
// file with unbalanced braces or unterminated literals yields a SyntaxError
// and no facts.
func (a *Analyzer) Analyze(content []byte, path string) (*facts.FileFacts, error) {
	src, err := newSource(string(content))
	if err != nil {
		if se, ok := err.(*syntaxErr); ok {
			return nil, errors.NewSyntaxError(path, se.line, "%s", se.msg)
		}
		return nil, errors.WrapSyntaxError(Name, path, err)
	}

	st := &fileState{
		path:    path,
		src:     src,
		out:     facts.NewFileFacts(path, Name),
		classAt: make(map[int]*run),
	}
	st.scanAnnotations()
	st.groupRuns()
	st.scanClasses()

	st.securitySchemes()
	for _, r := range st.runs {
		st.routes(r)
	}
	for _, cls := range st.classes {
		if cls.isSchema() {
			st.schema(cls)
		}
	}
	return st.out, nil
}

// use is one annotation occurrence
type use struct {
	name   string
	start  int
	end    int
	line   int
	nested bool // inside parentheses: a parameter or another annotation's argument
	expr   *annotationExpr
	text   string
}

// run is a sequence of top-level annotations separated only by whitespace,
// together with the declaration they annotate
type run struct {
	uses []*use
	decl int
}

func (r *run) find(name string) *use {
	for _, u := range r.uses {
		if u.name == name {
			return u
		}
	}
	return nil
}

func (r *run) has(name string) bool {
	return r != nil && r.find(name) != nil
}

// each visits every annotation of the run, including nested ones
func (r *run) each(fn func(*annotationExpr)) {
	if r == nil {
		return
	}
	for _, u := range r.uses {
		u.expr.walk(fn)
	}
}

type classInfo struct {
	name       string
	kind       string
	line       int
	open       int
	close      int
	components [2]int // record component list bounds, zero when absent
	run        *run
	base       string
	tags       []string
	security   []facts.SecurityFact
	deprecated bool
}

func (c *classInfo) isSchema() bool {
	if c.kind == "record" {
		return true
	}
	if c.kind != "class" || c.run == nil {
		return false
	}
	for _, u := range c.run.uses {
		if schemaMarkers[u.name] {
			return true
		}
	}
	return false
}

type fileState struct {
	path    string
	src     *source
	out     *facts.FileFacts
	uses    []*use
	runs    []*run
	classes []*classInfo
	classAt map[int]*run
}

func (st *fileState) loc(line int) ir.Location {
	return ir.Location{File: st.path, Line: line}
}

func (st *fileState) ambiguous(line int, format string, args ...interface{}) {
	st.out.Note(errors.NewAmbiguousFact(st.path, line, format, args...))
}

func (st *fileState) scanAnnotations() {
	blank := st.src.blank
	depth, pos := 0, 0
	for _, m := range annotationUse.FindAllStringSubmatchIndex(blank, -1) {
		start := m[0]
		for ; pos < start; pos++ {
			switch blank[pos] {
			case '(':
				depth++
			case ')':
				if depth > 0 {
					depth--
				}
			}
		}
		name := strings.Join(strings.Fields(blank[m[2]:m[3]]), "")
		if name == "interface" {
			continue
		}

		end := m[1]
		if next := st.src.skipSpace(end); next < len(blank) && blank[next] == '(' {
			if closing := st.src.matching(next); closing >= 0 {
				end = closing + 1
			}
		}
		u := &use{
			name:   lastSegment(name),
			start:  start,
			end:    end,
			line:   st.src.lineAt(start),
			nested: depth > 0,
			text:   st.src.code[start:end],
		}
		if expr, err := annotationParser.ParseString("", u.text); err == nil {
			u.expr = expr
		}
		st.uses = append(st.uses, u)
	}
}

func (st *fileState) groupRuns() {
	var cur *run
	flush := func() {
		if cur != nil {
			cur.decl = st.src.skipSpace(cur.uses[len(cur.uses)-1].end)
			st.runs = append(st.runs, cur)
		}
	}
	for _, u := range st.uses {
		if u.nested {
			continue
		}
		if cur != nil {
			last := cur.uses[len(cur.uses)-1]
			if u.start < last.end {
				continue
			}
			if strings.TrimSpace(st.src.blank[last.end:u.start]) == "" {
				cur.uses = append(cur.uses, u)
				continue
			}
		}
		flush()
		cur = &run{uses: []*use{u}}
	}
	flush()

	for _, r := range st.runs {
		header := st.src.blank[r.decl:st.src.headerEnd(r.decl)]
		if m := classHeader.FindStringSubmatchIndex(header); m != nil {
			st.classAt[r.decl+m[2]] = r
		}
	}
}

func (st *fileState) scanClasses() {
	blank := st.src.blank
	for _, m := range typeDeclKeyword.FindAllStringSubmatchIndex(blank, -1) {
		nameEnd := m[5]
		open := st.src.headerEnd(nameEnd)
		if open >= len(blank) || blank[open] != '{' {
			continue
		}
		cls := &classInfo{
			name:  blank[m[4]:m[5]],
			kind:  blank[m[2]:m[3]],
			line:  st.src.lineAt(m[2]),
			open:  open,
			close: st.src.matching(open),
			run:   st.classAt[m[2]],
		}
		if cls.close < 0 {
			continue
		}
		if cls.kind == "record" {
			if p := strings.IndexByte(blank[nameEnd:open], '('); p >= 0 {
				p += nameEnd
				if q := st.src.matching(p); q > p {
					cls.components = [2]int{p + 1, q}
				}
			}
		}
		st.classScope(cls)
		st.classes = append(st.classes, cls)
	}
}

// classScope reads the class-level mapping, tags and security
func (st *fileState) classScope(cls *classInfo) {
	r := cls.run
	if r == nil {
		return
	}
	if u := r.find("RequestMapping"); u != nil {
		if paths, ok := st.mappingPaths(u); ok && len(paths) > 0 {
			cls.base = paths[0]
			if len(paths) > 1 {
				st.ambiguous(u.line, "class %s maps several base paths, using '%s'", cls.name, cls.base)
			}
		}
	}
	cls.tags = collectTags(r)
	cls.security = collectSecurity(r)
	cls.deprecated = r.has("Deprecated")
}

// enclosing returns the innermost class whose body contains off
func (st *fileState) enclosing(off int) *classInfo {
	var best *classInfo
	for _, c := range st.classes {
		if c.open < off && off < c.close && (best == nil || c.open > best.open) {
			best = c
		}
	}
	return best
}

// mappingPaths reads the path argument of a mapping annotation. An absent
// path is the empty path; a non-literal one excludes the mapping.
func (st *fileState) mappingPaths(u *use) ([]string, bool) {
	if u.expr == nil {
		st.ambiguous(u.line, "could not read the arguments of @%s", u.name)
		return nil, false
	}
	arg := u.expr.value("value", "path")
	if arg == nil {
		return []string{""}, true
	}
	if arg.Pos.Line-1 >= pathWindow {
		st.ambiguous(u.line, "path of @%s is more than %d lines below the annotation, using ''", u.name, pathWindow)
		return []string{""}, true
	}
	paths, ok := arg.Value.literals()
	if !ok {
		st.ambiguous(u.line, "non-literal path %s in @%s", arg.Value.raw(u.text), u.name)
		return nil, false
	}
	if len(paths) == 0 {
		return []string{""}, true
	}
	return paths, true
}

// mappingMethods returns the verbs a mapping annotation registers
func (st *fileState) mappingMethods(u *use) []string {
	if verb := mappingVerbs[u.name]; verb != "" {
		return []string{verb}
	}
	arg := u.expr.value("method")
	if arg == nil {
		return []string{"GET"}
	}
	names, ok := arg.Value.refs()
	if !ok || len(names) == 0 {
		st.ambiguous(u.line, "non-literal method %s, defaulting to GET", arg.Value.raw(u.text))
		return []string{"GET"}
	}
	var out []string
	for _, n := range names {
		verb := strings.ToUpper(n)
		if !ir.IsMethod(verb) {
			st.out.Note(errors.NewUnsupportedConstruct(st.path, u.line, "unsupported request method '%s'", n))
			continue
		}
		out = append(out, verb)
	}
	return out
}

// handler is the parsed declaration a mapping annotates
type handler struct {
	name     string
	returns  *javaType
	params   []facts.ParameterFact
	resolved bool
}

func (st *fileState) handler(r *run, line int) (*handler, bool) {
	blank := st.src.blank
	end := st.src.headerEnd(r.decl)
	open := strings.IndexByte(blank[r.decl:end], '(')
	if open < 0 {
		st.ambiguous(line, "mapping is not attached to a method")
		return nil, false
	}
	open += r.decl
	closing := st.src.matching(open)
	if closing < 0 {
		st.ambiguous(line, "method parameter list is never closed")
		return nil, false
	}

	header := inlineUse.ReplaceAllString(st.src.code[r.decl:open], " ")
	fields := strings.Fields(header)
	i := 0
	for i < len(fields) && methodModifiers[fields[i]] {
		i++
	}
	rest := strings.Join(fields[i:], " ")
	rest = stripTypeParams(rest)
	m := handlerName.FindStringSubmatch(rest)
	if m == nil || m[1] == "" {
		st.ambiguous(line, "could not read the method signature")
		return nil, false
	}

	h := &handler{name: m[2]}
	if ret, err := typeParser.ParseString("", m[1]); err == nil {
		h.returns = ret
		h.resolved = true
	} else {
		st.ambiguous(line, "could not read return type '%s' of %s", m[1], h.name)
	}

	list, err := paramsParser.ParseString("", st.src.code[open+1:closing])
	if err != nil {
		st.ambiguous(line, "could not read the parameters of %s", h.name)
		return h, true
	}
	for _, p := range list.Params {
		if pf, ok := parameter(p); ok {
			h.params = append(h.params, pf)
		}
	}
	return h, true
}

// stripTypeParams drops the `<T>` of a generic method
func stripTypeParams(s string) string {
	if !strings.HasPrefix(s, "<") {
		return s
	}
	depth := 0
	for i, c := range s {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[i+1:])
			}
		}
	}
	return s
}

func parameter(p *param) (facts.ParameterFact, bool) {
	if isCarrier(p.Type) {
		return facts.ParameterFact{}, false
	}
	typ := *p.Type
	if p.Varargs || len(p.Dims) > 0 {
		typ.Dims = append(append([]string{}, typ.Dims...), "[")
	}
	t, ok := resolveType(&typ)
	if !ok {
		t = defaultType()
	}
	pf := facts.ParameterFact{Name: p.Name, TypeText: typ.String(), Type: t}

	var marker *annotationExpr
	for _, a := range p.Annotations {
		if hint, ok := paramAnnotations[a.simpleName()]; ok {
			marker = a
			pf.LocationHint = hint
			break
		}
	}
	optional := p.Type.simpleName() == "Optional"
	if marker == nil {
		// unannotated simple arguments bind from the query string
		pf.LocationHint = facts.HintQuery
		optional = true
	} else {
		if arg := marker.value("value", "name"); arg != nil {
			if name, ok := arg.Value.literal(); ok && name != "" {
				pf.Name = name
			}
		}
		if arg := marker.value("required"); arg != nil {
			if required, ok := arg.Value.boolean(); ok {
				pf.Required = &required
			}
		}
		if arg := marker.value("defaultValue"); arg != nil {
			if def, ok := arg.Value.literal(); ok {
				pf.HasDefault = true
				pf.DefaultLiteral = def
				optional = true
			}
		}
	}
	if optional && pf.Required == nil {
		no := false
		pf.Required = &no
	}
	return pf, true
}

func (st *fileState) routes(r *run) {
	var mappings []*use
	for _, u := range r.uses {
		if _, ok := mappingVerbs[u.name]; ok {
			mappings = append(mappings, u)
		}
	}
	if len(mappings) == 0 || st.classKeyword(r) >= 0 {
		return
	}
	if len(mappings) > 1 {
		for _, extra := range mappings[1:] {
			st.out.Note(errors.NewUnsupportedConstruct(st.path, extra.line,
				"additional mapping @%s on the same method is ignored", extra.name))
		}
	}
	u := mappings[0]
	if st.src.lineAt(r.decl)-u.line > signatureWindow {
		st.ambiguous(u.line, "no method declaration within %d lines of @%s", signatureWindow, u.name)
		return
	}
	if hidden(r) {
		return
	}

	paths, ok := st.mappingPaths(u)
	if !ok {
		return
	}
	h, ok := st.handler(r, u.line)
	if !ok {
		return
	}

	cls := st.enclosing(r.decl)
	if cls == nil {
		cls = &classInfo{}
	}

	proto := facts.RouteFact{
		BasePath:       cls.base,
		Location:       st.loc(u.line),
		Scope:          cls.name,
		EnclosingClass: cls.name,
		Handler:        h.name,
		Args:           toArgs(u),
		Params:         h.params,
		Tags:           appendUnique(appendUnique(nil, cls.tags...), collectTags(r)...),
		Security:       collectSecurity(r),
		Deprecated:     cls.deprecated || r.has("Deprecated"),
	}
	if len(proto.Security) == 0 {
		proto.Security = cls.security
	}
	if h.resolved {
		if t, ok := resolveType(h.returns); ok {
			proto.Response = &t
		}
	}
	if doc, ok := st.src.javadocBefore(r.uses[0].start); ok {
		proto.Summary, proto.Description = parseJavadoc(doc)
	}
	st.operation(r, &proto)
	st.responseStatus(r, &proto)

	for _, verb := range st.mappingMethods(u) {
		for _, p := range paths {
			fact := proto
			fact.Method = verb
			fact.RawPath = p
			st.out.Routes = append(st.out.Routes, fact)
		}
	}
}

// classKeyword returns the offset of the class keyword the run annotates, or
// -1 when the run annotates something else
func (st *fileState) classKeyword(r *run) int {
	header := st.src.blank[r.decl:st.src.headerEnd(r.decl)]
	if m := classHeader.FindStringSubmatchIndex(header); m != nil {
		return r.decl + m[2]
	}
	return -1
}

// hidden reports whether the handler opted out of the document
func hidden(r *run) bool {
	if r.has("Hidden") {
		return true
	}
	if u := r.find("Operation"); u != nil {
		if arg := u.expr.value("hidden"); arg != nil {
			h, _ := arg.Value.boolean()
			return h
		}
	}
	return false
}

// operation applies @Operation, which overrides the Javadoc
func (st *fileState) operation(r *run, fact *facts.RouteFact) {
	u := r.find("Operation")
	if u == nil || u.expr == nil {
		return
	}
	if arg := u.expr.value("summary"); arg != nil {
		if s, ok := arg.Value.literal(); ok {
			fact.Summary = s
		}
	}
	if arg := u.expr.value("description"); arg != nil {
		if s, ok := arg.Value.literal(); ok {
			fact.Description = s
		}
	}
	if arg := u.expr.value("operationId"); arg != nil {
		if s, ok := arg.Value.literal(); ok {
			fact.OperationID = s
		}
	}
	if arg := u.expr.value("tags"); arg != nil {
		if tags, ok := arg.Value.literals(); ok {
			fact.Tags = appendUnique(fact.Tags, tags...)
		}
	}
	if arg := u.expr.value("deprecated"); arg != nil {
		if dep, ok := arg.Value.boolean(); ok && dep {
			fact.Deprecated = true
		}
	}
}

func (st *fileState) responseStatus(r *run, fact *facts.RouteFact) {
	u := r.find("ResponseStatus")
	if u == nil || u.expr == nil {
		return
	}
	arg := u.expr.value("value", "code")
	if arg == nil {
		return
	}
	names, ok := arg.Value.refs()
	if !ok || len(names) != 1 {
		st.ambiguous(u.line, "non-literal response status %s", arg.Value.raw(u.text))
		return
	}
	status, ok := httpStatuses[names[0]]
	if !ok {
		st.ambiguous(u.line, "unknown response status %s", names[0])
		return
	}
	fact.Status = status
}

func collectTags(r *run) []string {
	var tags []string
	r.each(func(a *annotationExpr) {
		if a.simpleName() != "Tag" {
			return
		}
		if arg := a.value("name"); arg != nil {
			if name, ok := arg.Value.literal(); ok && name != "" {
				tags = appendUnique(tags, name)
			}
		}
	})
	return tags
}

func collectSecurity(r *run) []facts.SecurityFact {
	var out []facts.SecurityFact
	r.each(func(a *annotationExpr) {
		if a.simpleName() != "SecurityRequirement" {
			return
		}
		arg := a.value("name")
		if arg == nil {
			return
		}
		name, ok := arg.Value.literal()
		if !ok || name == "" {
			return
		}
		req := facts.SecurityFact{Scheme: name}
		if scopes := a.value("scopes"); scopes != nil {
			req.Scopes, _ = scopes.Value.literals()
		}
		out = append(out, req)
	})
	return out
}

// securitySchemes reads @SecurityScheme declarations, standalone or grouped
// under @SecuritySchemes
func (st *fileState) securitySchemes() {
	for _, u := range st.uses {
		if u.name != "SecurityScheme" || u.expr == nil {
			continue
		}
		a := u.expr
		name := literalOf(a, "name")
		if name == "" {
			st.ambiguous(u.line, "@SecurityScheme without a literal name")
			continue
		}
		scheme := facts.SecuritySchemeFact{Name: name, Location: st.loc(u.line)}
		switch strings.ToUpper(refOf(a, "type")) {
		case "HTTP":
			scheme.Kind = "http"
			scheme.Scheme = strings.ToLower(literalOf(a, "scheme"))
			if scheme.Scheme == "" {
				scheme.Scheme = "bearer"
			}
		case "APIKEY":
			scheme.Kind = "apiKey"
			scheme.In = strings.ToLower(refOf(a, "in"))
			if scheme.In == "" {
				scheme.In = "header"
			}
			scheme.KeyName = literalOf(a, "paramName")
		case "OAUTH2":
			scheme.Kind = "oauth2"
			a.walk(func(flow *annotationExpr) {
				if url := literalOf(flow, "tokenUrl"); url != "" && scheme.TokenURL == "" {
					scheme.TokenURL = url
				}
			})
		default:
			st.out.Note(errors.NewUnsupportedConstruct(st.path, u.line,
				"security scheme '%s' has an unsupported type", name))
			continue
		}
		st.out.SecuritySchemes = append(st.out.SecuritySchemes, scheme)
	}
}

func literalOf(a *annotationExpr, key string) string {
	if arg := a.value(key); arg != nil {
		s, _ := arg.Value.literal()
		return s
	}
	return ""
}

func refOf(a *annotationExpr, key string) string {
	if arg := a.value(key); arg != nil {
		if names, ok := arg.Value.refs(); ok && len(names) == 1 {
			return names[0]
		}
	}
	return ""
}

func (st *fileState) schema(cls *classInfo) {
	sf := facts.SchemaFact{TypeName: cls.name, Location: st.loc(cls.line)}
	if cls.kind == "record" {
		if cls.components[1] > 0 {
			list, err := paramsParser.ParseString("", st.src.code[cls.components[0]:cls.components[1]])
			if err != nil {
				st.ambiguous(cls.line, "could not read the components of record %s", cls.name)
				return
			}
			for _, p := range list.Params {
				names := make(map[string]bool)
				for _, a := range p.Annotations {
					names[a.simpleName()] = true
				}
				typ := *p.Type
				typ.Dims = append(append([]string{}, typ.Dims...), p.Dims...)
				sf.Fields = append(sf.Fields, field(p.Name, &typ, names))
			}
		}
		st.out.Schemas = append(st.out.Schemas, sf)
		return
	}

	// Members end at a top-level ';' or at the '}' closing a body. Braces
	// opened after a top-level '=' belong to an initializer such as
	// new int[]{1, 2} or a lambda and do not end the member.
	blank := st.src.blank
	depth, parens := 0, 0
	assigned, initializer := false, false
	seg := cls.open + 1
	for i := cls.open + 1; i < cls.close; i++ {
		switch blank[i] {
		case '(':
			parens++
		case ')':
			if parens > 0 {
				parens--
			}
		case '=':
			if depth == 0 && parens == 0 && isAssignment(blank, i) {
				assigned = true
			}
		case '{':
			if parens == 0 {
				if depth == 0 {
					initializer = assigned
				}
				depth++
			}
		case '}':
			if parens == 0 {
				depth--
				if depth == 0 && !initializer {
					seg = i + 1
					assigned = false
				}
			}
		case ';':
			if depth == 0 && parens == 0 {
				if f, ok := st.fieldAt(seg, i); ok {
					sf.Fields = append(sf.Fields, f)
				}
				seg = i + 1
				assigned, initializer = false, false
			}
		}
	}
	st.out.Schemas = append(st.out.Schemas, sf)
}

// isAssignment reports whether the '=' at i is a plain assignment rather
// than part of ==, !=, <= or >=
func isAssignment(text string, i int) bool {
	if i+1 < len(text) && text[i+1] == '=' {
		return false
	}
	return i == 0 || !strings.ContainsRune("=!<>", rune(text[i-1]))
}

// fieldAt reads a `[annotations] [modifiers] Type name [= ...]` member
// declaration spanning [from, to)
func (st *fileState) fieldAt(from, to int) (facts.FieldFact, bool) {
	var b strings.Builder
	markers := make(map[string]bool)
	cursor := from
	for _, u := range st.uses {
		if u.nested || u.start < from || u.start >= to {
			continue
		}
		b.WriteString(st.src.code[cursor:u.start])
		markers[u.name] = true
		cursor = u.end
	}
	if cursor < to {
		b.WriteString(st.src.code[cursor:to])
	}

	text := strings.Join(strings.Fields(b.String()), " ")
	if i := strings.IndexByte(text, '='); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	m := fieldDecl.FindStringSubmatch(text)
	if m == nil || strings.Contains(m[1], "static") {
		return facts.FieldFact{}, false
	}
	typ, err := typeParser.ParseString("", m[2])
	if err != nil {
		return facts.FieldFact{}, false
	}
	if dims := strings.Count(m[4], "["); dims > 0 {
		for d := 0; d < dims; d++ {
			typ.Dims = append(typ.Dims, "[")
		}
	}
	return field(m[3], typ, markers), true
}

func field(name string, typ *javaType, markers map[string]bool) facts.FieldFact {
	t, ok := resolveType(typ)
	if !ok {
		t = defaultType()
	}
	required := len(typ.Dims) == 0 && javaPrimitives[typ.simpleName()]
	for m := range markers {
		if requiredMarkers[m] {
			required = true
		}
	}
	return facts.FieldFact{Name: name, TypeText: typ.String(), Type: t, Required: required}
}

// toArgs exposes a mapping's arguments through the shared keyword model
func toArgs(u *use) facts.Args {
	args := facts.Args{}
	if u.expr == nil {
		return args
	}
	for _, a := range u.expr.Args {
		key := a.Key
		if key == "" {
			key = "value"
		}
		raw := a.Value.raw(u.text)
		switch {
		case !a.Value.Array:
			if s, ok := a.Value.literal(); ok {
				args[key] = facts.LiteralArg(s, raw)
				continue
			}
		default:
			if items, ok := a.Value.literals(); ok {
				args[key] = facts.ListArg(items, raw)
				continue
			}
		}
		args[key] = facts.ExprArg(raw)
	}
	return args
}

func appendUnique(list []string, items ...string) []string {
	for _, it := range items {
		found := false
		for _, have := range list {
			if have == it {
				found = true
				break
			}
		}
		if !found {
			list = append(list, it)
		}
	}
	return list
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
