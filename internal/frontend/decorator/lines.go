package decorator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

var symbols = pythonLexer.Symbols()

var (
	tokString       = symbols["String"]
	tokName         = symbols["Name"]
	tokComment      = symbols["Comment"]
	tokNewline      = symbols["Newline"]
	tokWhitespace   = symbols["Whitespace"]
	tokContinuation = symbols["Continuation"]
)

// logicalLine is one Python statement line with bracket continuations joined
type logicalLine struct {
	Line   int
	Indent int
	Tokens []lexer.Token
	src    string
}

// Text returns the source text spanned by the line's tokens
func (l logicalLine) Text() string {
	return l.textUntil(len(l.Tokens))
}

func (l logicalLine) textUntil(n int) string {
	if n == 0 {
		return ""
	}
	first, last := l.Tokens[0], l.Tokens[n-1]
	return l.src[first.Pos.Offset : last.Pos.Offset+len(last.Value)]
}

func (l logicalLine) startsWith(values ...string) bool {
	if len(l.Tokens) < len(values) {
		return false
	}
	for i, v := range values {
		if l.Tokens[i].Value != v {
			return false
		}
	}
	return true
}

// headerEnd returns the index of the first colon at bracket depth zero
func (l logicalLine) headerEnd() int {
	depth := 0
	for i, t := range l.Tokens {
		switch t.Value {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ":":
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

type syntaxErr struct {
	line int
	msg  string
}

func (e *syntaxErr) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

var closers = map[string]string{")": "(", "]": "[", "}": "{"}

// splitLines lexes src and groups its significant tokens into logical lines
func splitLines(path, src string) ([]logicalLine, error) {
	lx, err := pythonLexer.LexString(path, src)
	if err != nil {
		return nil, err
	}
	tokens, err := lexer.ConsumeAll(lx)
	if err != nil {
		return nil, err
	}

	type open struct {
		value string
		line  int
	}
	var (
		lines   []logicalLine
		current *logicalLine
		stack   []open
	)
	flush := func() {
		if current != nil && len(current.Tokens) > 0 {
			lines = append(lines, *current)
		}
		current = nil
	}

	for _, t := range tokens {
		switch t.Type {
		case lexer.EOF:
			continue
		case tokWhitespace, tokComment, tokContinuation:
			continue
		case tokNewline:
			if len(stack) == 0 {
				flush()
			}
			continue
		}

		switch t.Value {
		case "(", "[", "{":
			stack = append(stack, open{value: t.Value, line: t.Pos.Line})
		case ")", "]", "}":
			if len(stack) == 0 {
				return nil, &syntaxErr{line: t.Pos.Line, msg: fmt.Sprintf("unmatched '%s'", t.Value)}
			}
			top := stack[len(stack)-1]
			if top.value != closers[t.Value] {
				return nil, &syntaxErr{line: t.Pos.Line, msg: fmt.Sprintf("closing '%s' does not match '%s' opened on line %d", t.Value, top.value, top.line)}
			}
			stack = stack[:len(stack)-1]
		}

		if current == nil {
			current = &logicalLine{Line: t.Pos.Line, Indent: t.Pos.Column - 1, src: src}
		}
		current.Tokens = append(current.Tokens, t)
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return nil, &syntaxErr{line: top.line, msg: fmt.Sprintf("'%s' was never closed", top.value)}
	}
	flush()
	return lines, nil
}

// unquote decodes a Python string literal. Formatted strings with
// replacement fields are not literals.
func unquote(tok string) (string, bool) {
	i := 0
	for i < len(tok) && strings.ContainsRune("rRbBuUfF", rune(tok[i])) {
		i++
	}
	prefix := strings.ToLower(tok[:i])
	body := tok[i:]

	var quote string
	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		quote = body[:3]
	case len(body) >= 2:
		quote = body[:1]
	default:
		return "", false
	}
	if len(body) < 2*len(quote) {
		return "", false
	}
	body = body[len(quote) : len(body)-len(quote)]

	if strings.Contains(prefix, "f") && strings.Contains(body, "{") {
		return body, false
	}
	if strings.Contains(prefix, "r") {
		return body, true
	}
	return decodeEscapes(body), true
}

func decodeEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '\n':
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case '\\', '\'', '"':
			b.WriteByte(s[i])
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[s[i]]
			if i+width < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32); err == nil {
					b.WriteRune(rune(v))
					i += width
					continue
				}
			}
			b.WriteByte('\\')
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// cleanDoc strips docstring indentation the way Python's inspect.cleandoc does
func cleanDoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "    "), "\n")
	margin := -1
	for _, l := range lines[1:] {
		stripped := strings.TrimLeft(l, " ")
		if stripped == "" {
			continue
		}
		if indent := len(l) - len(stripped); margin < 0 || indent < margin {
			margin = indent
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if margin > 0 && len(lines[i]) >= margin {
			lines[i] = lines[i][margin:]
		}
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
