package ir

import (
	"regexp"
	"strings"
)

var (
	// <name>, <converter:name>, <converter(args):name>
	anglePlaceholder = regexp.MustCompile(`<(?:([A-Za-z_][A-Za-z0-9_]*)(?:\([^)>]*\))?:)?([A-Za-z_][A-Za-z0-9_]*)>`)
	// {name}, {name:converter-or-regex}
	bracePlaceholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(?::([^{}]*))?\}`)
	repeatedSlash    = regexp.MustCompile(`/{2,}`)
)

// Placeholder is one path-embedded parameter in declaration order
type Placeholder struct {
	Name      string
	Converter string // native type hint, empty when the dialect had none
}

// PathPlaceholders returns the placeholders of a path in any supported dialect
func PathPlaceholders(raw string) []Placeholder {
	type hit struct {
		at int
		ph Placeholder
	}
	var hits []hit
	for _, m := range anglePlaceholder.FindAllStringSubmatchIndex(raw, -1) {
		ph := Placeholder{Name: raw[m[4]:m[5]]}
		if m[2] >= 0 {
			ph.Converter = raw[m[2]:m[3]]
		}
		hits = append(hits, hit{at: m[0], ph: ph})
	}
	for _, m := range bracePlaceholder.FindAllStringSubmatchIndex(raw, -1) {
		ph := Placeholder{Name: raw[m[2]:m[3]]}
		if m[4] >= 0 {
			ph.Converter = strings.TrimSpace(raw[m[4]:m[5]])
		}
		hits = append(hits, hit{at: m[0], ph: ph})
	}

	// insertion sort by offset keeps this allocation-free for the usual 0-3 hits
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].at < hits[j-1].at; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	out := make([]Placeholder, 0, len(hits))
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		if seen[h.ph.Name] {
			continue
		}
		seen[h.ph.Name] = true
		out = append(out, h.ph)
	}
	return out
}

// NormalizePath rewrites a path template into the canonical {name} dialect
// with a single leading slash, no doubled slashes and no trailing slash.
// It is idempotent.
func NormalizePath(raw string) string {
	p := strings.TrimSpace(raw)
	p = anglePlaceholder.ReplaceAllString(p, "{$2}")
	p = bracePlaceholder.ReplaceAllString(p, "{$1}")

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = repeatedSlash.ReplaceAllString(p, "/")
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// JoinPath composes base paths left to right with exactly one separating
// slash. Empty segments are ignored.
func JoinPath(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(part)
			continue
		}
		current := strings.TrimRight(b.String(), "/")
		b.Reset()
		b.WriteString(current)
		b.WriteString("/")
		b.WriteString(strings.TrimLeft(part, "/"))
	}
	return repeatedSlash.ReplaceAllString(b.String(), "/")
}

// HasPlaceholder reports whether name is a placeholder of the canonical path
func HasPlaceholder(path, name string) bool {
	return strings.Contains(path, "{"+name+"}")
}
