package annotation

import (
	"unicode"

	"github.com/toyz/spectra/internal/ir"
)

// defaultType is what unresolved types fall back to in this front-end
func defaultType() ir.Type { return ir.AnyObject() }

var primitiveTypes = map[string]ir.Type{
	"String":         ir.Prim(ir.String),
	"CharSequence":   ir.Prim(ir.String),
	"char":           ir.Prim(ir.String),
	"Character":      ir.Prim(ir.String),
	"UUID":           ir.PrimFormat(ir.String, "uuid"),
	"LocalDate":      ir.PrimFormat(ir.String, "date"),
	"LocalDateTime":  ir.PrimFormat(ir.String, "date-time"),
	"OffsetDateTime": ir.PrimFormat(ir.String, "date-time"),
	"ZonedDateTime":  ir.PrimFormat(ir.String, "date-time"),
	"Instant":        ir.PrimFormat(ir.String, "date-time"),
	"Date":           ir.PrimFormat(ir.String, "date-time"),
	"MultipartFile":  ir.PrimFormat(ir.String, "binary"),
	"int":            ir.PrimFormat(ir.Integer, "int32"),
	"Integer":        ir.PrimFormat(ir.Integer, "int32"),
	"short":          ir.PrimFormat(ir.Integer, "int32"),
	"Short":          ir.PrimFormat(ir.Integer, "int32"),
	"byte":           ir.PrimFormat(ir.Integer, "int32"),
	"Byte":           ir.PrimFormat(ir.Integer, "int32"),
	"long":           ir.PrimFormat(ir.Integer, "int64"),
	"Long":           ir.PrimFormat(ir.Integer, "int64"),
	"BigInteger":     ir.PrimFormat(ir.Integer, "int64"),
	"float":          ir.PrimFormat(ir.Number, "float"),
	"Float":          ir.PrimFormat(ir.Number, "float"),
	"double":         ir.PrimFormat(ir.Number, "double"),
	"Double":         ir.PrimFormat(ir.Number, "double"),
	"BigDecimal":     ir.PrimFormat(ir.Number, "double"),
	"boolean":        ir.Prim(ir.Boolean),
	"Boolean":        ir.Prim(ir.Boolean),
	"Map":            ir.AnyObject(),
	"HashMap":        ir.AnyObject(),
	"LinkedHashMap":  ir.AnyObject(),
	"TreeMap":        ir.AnyObject(),
	"MultiValueMap":  ir.AnyObject(),
	"Object":         ir.AnyObject(),
	"JsonNode":       ir.AnyObject(),
	"ObjectNode":     ir.AnyObject(),
}

// javaPrimitives cannot be null, so fields of these types are required
var javaPrimitives = map[string]bool{
	"int": true, "long": true, "short": true, "byte": true,
	"float": true, "double": true, "boolean": true, "char": true,
}

var sequenceTypes = map[string]bool{
	"List": true, "ArrayList": true, "LinkedList": true, "Set": true,
	"HashSet": true, "LinkedHashSet": true, "TreeSet": true, "SortedSet": true,
	"Collection": true, "Iterable": true, "Stream": true, "Flux": true,
}

// wrapperTypes are transport wrappers whose payload is their first argument
var wrapperTypes = map[string]bool{
	"ResponseEntity": true, "HttpEntity": true, "Mono": true,
	"CompletableFuture": true, "CompletionStage": true, "Future": true,
	"DeferredResult": true, "Callable": true, "WebAsyncTask": true,
}

// carrierTypes are injected by the framework and never part of the API surface
var carrierTypes = map[string]bool{
	"HttpServletRequest": true, "HttpServletResponse": true, "Model": true,
	"ModelMap": true, "BindingResult": true, "Principal": true,
	"HttpSession": true, "Authentication": true, "WebRequest": true,
	"ServerHttpRequest": true, "ServerHttpResponse": true, "Locale": true,
	"Errors": true, "ServerWebExchange": true, "UriComponentsBuilder": true,
	"Pageable": true, "Sort": true,
}

// resolveType maps a declared type onto the canonical model. The second
// result is false for void, which means "no content".
func resolveType(t *javaType) (ir.Type, bool) {
	if t == nil {
		return defaultType(), true
	}
	if len(t.Dims) > 0 {
		inner := *t
		inner.Dims = t.Dims[1:]
		item, ok := resolveType(&inner)
		if !ok {
			item = defaultType()
		}
		return ir.ArrayOf(item), true
	}

	name := t.simpleName()
	switch {
	case name == "void" || name == "Void":
		return ir.Type{}, false
	case sequenceTypes[name]:
		item, ok := resolveTypeArg(t, 0)
		if !ok {
			item = defaultType()
		}
		return ir.ArrayOf(item), true
	case name == "Optional":
		item, ok := resolveTypeArg(t, 0)
		if !ok {
			return ir.Type{}, false
		}
		return ir.NullableOf(item), true
	case wrapperTypes[name]:
		return resolveTypeArg(t, 0)
	}
	return namedType(name), true
}

// resolveTypeArg resolves the i-th type argument. Raw and wildcard uses fall
// back to the default type.
func resolveTypeArg(t *javaType, i int) (ir.Type, bool) {
	if i >= len(t.Args) {
		return defaultType(), true
	}
	arg := t.Args[i]
	switch {
	case arg.Type != nil:
		return resolveType(arg.Type)
	case arg.Bound != nil:
		return resolveType(arg.Bound)
	}
	return defaultType(), true
}

// namedType resolves a bare type name through the closed table. Capitalized
// unknown names are taken to be models and referenced by name.
func namedType(name string) ir.Type {
	if t, ok := primitiveTypes[name]; ok {
		return t
	}
	if name == "" || carrierTypes[name] {
		return defaultType()
	}
	if r := []rune(name); unicode.IsUpper(r[0]) {
		return ir.RefTo(name, defaultType())
	}
	return defaultType()
}

// isCarrier reports whether a parameter type is framework plumbing
func isCarrier(t *javaType) bool {
	return t != nil && len(t.Dims) == 0 && carrierTypes[t.simpleName()]
}
