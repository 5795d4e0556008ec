package facts

import "strings"

// KeywordKind tags the shape of a keyword argument
type KeywordKind int

const (
	KeywordAbsent KeywordKind = iota
	KeywordLiteral
	KeywordList
	KeywordExpr
)

func (k KeywordKind) String() string {
	switch k {
	case KeywordLiteral:
		return "literal"
	case KeywordList:
		return "list"
	case KeywordExpr:
		return "expr"
	default:
		return "absent"
	}
}

// KeywordArg is the resolved value of one keyword argument. It is built once
// while parsing a call; later stages only use the typed accessors.
type KeywordArg struct {
	Kind    KeywordKind
	Literal string   // unquoted value for KeywordLiteral
	List    []string // unquoted literal items for KeywordList
	Raw     string   // source text of the value
}

// Absent is the zero keyword argument
var Absent = KeywordArg{}

// LiteralArg builds a literal keyword argument
func LiteralArg(value, raw string) KeywordArg {
	return KeywordArg{Kind: KeywordLiteral, Literal: value, Raw: raw}
}

// ListArg builds a list keyword argument
func ListArg(items []string, raw string) KeywordArg {
	return KeywordArg{Kind: KeywordList, List: items, Raw: raw}
}

// ExprArg builds a keyword argument whose value is not a literal
func ExprArg(raw string) KeywordArg {
	return KeywordArg{Kind: KeywordExpr, Raw: raw}
}

// Present reports whether the keyword was supplied at all
func (k KeywordArg) Present() bool {
	return k.Kind != KeywordAbsent
}

// Text returns the literal value, if the argument is a literal
func (k KeywordArg) Text() (string, bool) {
	if k.Kind != KeywordLiteral {
		return "", false
	}
	return k.Literal, true
}

// Strings returns the list items. A single literal is promoted to a one
// element list, matching how frameworks accept `methods="GET"`.
func (k KeywordArg) Strings() ([]string, bool) {
	switch k.Kind {
	case KeywordList:
		return k.List, true
	case KeywordLiteral:
		return []string{k.Literal}, true
	}
	return nil, false
}

// Bool interprets literal and bare-expression booleans in either ecosystem's
// spelling.
func (k KeywordArg) Bool() (bool, bool) {
	var v string
	switch k.Kind {
	case KeywordLiteral:
		v = k.Literal
	case KeywordExpr:
		v = k.Raw
	default:
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// Args maps keyword names to their resolved values
type Args map[string]KeywordArg

// Get returns the named argument or Absent
func (a Args) Get(name string) KeywordArg {
	if a == nil {
		return Absent
	}
	if v, ok := a[name]; ok {
		return v
	}
	return Absent
}

// First returns the first present argument among names
func (a Args) First(names ...string) KeywordArg {
	for _, n := range names {
		if v := a.Get(n); v.Present() {
			return v
		}
	}
	return Absent
}
