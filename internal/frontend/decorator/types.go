package decorator

import (
	"unicode"

	"github.com/toyz/spectra/internal/ir"
)

// defaultType is what unresolved annotations fall back to in this front-end
func defaultType() ir.Type { return ir.Prim(ir.String) }

var primitiveTypes = map[string]ir.Type{
	"str":       ir.Prim(ir.String),
	"bytes":     ir.Prim(ir.String),
	"int":       ir.Prim(ir.Integer),
	"float":     ir.Prim(ir.Number),
	"Decimal":   ir.Prim(ir.Number),
	"bool":      ir.Prim(ir.Boolean),
	"dict":      ir.AnyObject(),
	"Dict":      ir.AnyObject(),
	"Mapping":   ir.AnyObject(),
	"Any":       ir.AnyObject(),
	"object":    ir.AnyObject(),
	"Json":      ir.AnyObject(),
	"list":      ir.ArrayOf(ir.Prim(ir.String)),
	"List":      ir.ArrayOf(ir.Prim(ir.String)),
	"UUID":      ir.PrimFormat(ir.String, "uuid"),
	"datetime":  ir.PrimFormat(ir.String, "date-time"),
	"date":      ir.PrimFormat(ir.String, "date"),
	"time":      ir.PrimFormat(ir.String, "time"),
	"EmailStr":  ir.PrimFormat(ir.String, "email"),
	"HttpUrl":   ir.PrimFormat(ir.String, "uri"),
	"AnyUrl":    ir.PrimFormat(ir.String, "uri"),
	"SecretStr": ir.PrimFormat(ir.String, "password"),
}

var sequenceTypes = map[string]bool{
	"List": true, "list": true, "Sequence": true, "Set": true, "set": true,
	"FrozenSet": true, "frozenset": true, "Tuple": true, "tuple": true,
	"Iterable": true, "Deque": true, "conlist": true,
}

// converterTypes refines path parameters from placeholder converters
var converterTypes = map[string]ir.Type{
	"int":    ir.Prim(ir.Integer),
	"float":  ir.Prim(ir.Number),
	"string": ir.Prim(ir.String),
	"str":    ir.Prim(ir.String),
	"path":   ir.Prim(ir.String),
	"any":    ir.Prim(ir.String),
	"uuid":   ir.PrimFormat(ir.String, "uuid"),
}

// carrierTypes are injected by the framework and never part of the API surface
var carrierTypes = map[string]bool{
	"Request": true, "Response": true, "BackgroundTasks": true,
	"WebSocket": true, "HTTPConnection": true, "SecurityScopes": true,
	"Session": true, "AsyncSession": true, "Connection": true,
}

// annotation is the resolved view of a type annotation
type annotation struct {
	Type    ir.Type
	Name    string // bare name of the outermost type, for carrier checks
	Markers []*atom
}

// resolveType maps an annotation expression onto the canonical type model
func resolveType(e *expr) annotation {
	if e == nil {
		return annotation{Type: defaultType()}
	}

	alts := e.alternatives()
	if len(alts) > 1 {
		nullable := false
		var chosen *expr
		for _, alt := range alts {
			if a := alt.single(); a.isName("None") {
				nullable = true
				continue
			}
			if chosen == nil {
				chosen = alt
			}
		}
		out := resolveType(chosen)
		if nullable {
			out.Type = ir.NullableOf(out.Type)
		}
		return out
	}

	a := e.single()
	if a == nil {
		return annotation{Type: defaultType()}
	}
	if len(a.Strings) > 0 {
		// forward reference
		if text, ok := unquote(a.Strings[0]); ok {
			return annotation{Type: namedType(lastSegment(text)), Name: lastSegment(text)}
		}
		return annotation{Type: defaultType()}
	}

	dotted, rest := a.dotted()
	if dotted == "" {
		return annotation{Type: defaultType()}
	}
	name := lastSegment(dotted)
	if len(rest) == 0 {
		return annotation{Type: namedType(name), Name: name}
	}
	if !rest[0].Index {
		return annotation{Type: defaultType(), Name: name}
	}

	items := rest[0].Items
	first := func() *expr {
		if len(items) == 0 {
			return nil
		}
		return items[0].Value
	}

	switch {
	case name == "Optional":
		inner := resolveType(first())
		inner.Type = ir.NullableOf(inner.Type)
		return inner
	case name == "Union":
		nullable := false
		var chosen *expr
		for _, it := range items {
			if it.Value.single().isName("None") {
				nullable = true
				continue
			}
			if chosen == nil {
				chosen = it.Value
			}
		}
		inner := resolveType(chosen)
		if nullable {
			inner.Type = ir.NullableOf(inner.Type)
		}
		return inner
	case name == "Annotated":
		inner := resolveType(first())
		for _, it := range items[min(1, len(items)):] {
			if m := it.Value.single(); m != nil {
				if callee, _ := m.call(); callee != "" {
					inner.Markers = append(inner.Markers, m)
				}
			}
		}
		return inner
	case sequenceTypes[name]:
		if len(items) == 0 {
			return annotation{Type: ir.ArrayOf(defaultType()), Name: name}
		}
		item := resolveType(first())
		return annotation{Type: ir.ArrayOf(item.Type), Name: name}
	case name == "Dict" || name == "dict" || name == "Mapping":
		return annotation{Type: ir.AnyObject(), Name: name}
	case name == "Literal":
		return annotation{Type: ir.Prim(ir.String), Name: name}
	}
	return annotation{Type: namedType(name), Name: name}
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
