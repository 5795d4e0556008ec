package annotation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// syntaxErr is a structural problem found while masking a file
type syntaxErr struct {
	line int
	msg  string
}

func (e *syntaxErr) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

// source holds one file in three byte-aligned renditions: the original text,
// the text with comments blanked, and the text with comments and literal
// contents blanked. Offsets are interchangeable between them.
type source struct {
	text       string
	code       string
	blank      string
	lineStarts []int
}

func newSource(text string) (*source, error) {
	s := &source{text: text, lineStarts: []int{0}}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			s.lineStarts = append(s.lineStarts, i+1)
		}
	}
	if err := s.mask(); err != nil {
		return nil, err
	}
	if err := s.checkBraces(); err != nil {
		return nil, err
	}
	return s, nil
}

// lineAt returns the 1-based line holding offset off
func (s *source) lineAt(off int) int {
	return sort.Search(len(s.lineStarts), func(i int) bool { return s.lineStarts[i] > off })
}

func (s *source) mask() error {
	code := []byte(s.text)
	blank := []byte(s.text)
	text := s.text
	n := len(text)

	wipe := func(buf []byte, from, to int) {
		for i := from; i < to; i++ {
			if buf[i] != '\n' {
				buf[i] = ' '
			}
		}
	}

	for i := 0; i < n; {
		switch {
		case strings.HasPrefix(text[i:], "//"):
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = n - i
			}
			wipe(code, i, i+end)
			wipe(blank, i, i+end)
			i += end
		case strings.HasPrefix(text[i:], "/*"):
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return &syntaxErr{line: s.lineAt(i), msg: "unterminated block comment"}
			}
			stop := i + 2 + end + 2
			wipe(code, i, stop)
			wipe(blank, i, stop)
			i = stop
		case strings.HasPrefix(text[i:], `"""`):
			end := closingQuote(text, i+3, `"""`, true)
			if end < 0 {
				return &syntaxErr{line: s.lineAt(i), msg: "unterminated text block"}
			}
			wipe(blank, i+3, end)
			i = end + 3
		case text[i] == '"' || text[i] == '\'':
			quote := text[i : i+1]
			end := closingQuote(text, i+1, quote, false)
			if end < 0 {
				return &syntaxErr{line: s.lineAt(i), msg: "unterminated literal"}
			}
			wipe(blank, i+1, end)
			i = end + 1
		default:
			i++
		}
	}
	s.code = string(code)
	s.blank = string(blank)
	return nil
}

// closingQuote finds the offset of the quote closing a literal that starts
// at from. Single-line literals may not cross a newline.
func closingQuote(text string, from int, quote string, multiline bool) int {
	for i := from; i < len(text); i++ {
		switch {
		case text[i] == '\\':
			i++
		case text[i] == '\n' && !multiline:
			return -1
		case strings.HasPrefix(text[i:], quote):
			return i
		}
	}
	return -1
}

func (s *source) checkBraces() error {
	var open []int
	for i := 0; i < len(s.blank); i++ {
		switch s.blank[i] {
		case '{':
			open = append(open, i)
		case '}':
			if len(open) == 0 {
				return &syntaxErr{line: s.lineAt(i), msg: "unexpected '}'"}
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		return &syntaxErr{line: s.lineAt(open[0]), msg: "'{' is never closed"}
	}
	return nil
}

// matching returns the offset of the bracket closing the one at open, or -1
func (s *source) matching(open int) int {
	var closer byte
	switch s.blank[open] {
	case '(':
		closer = ')'
	case '{':
		closer = '}'
	case '[':
		closer = ']'
	default:
		return -1
	}
	opener := s.blank[open]
	depth := 0
	for i := open; i < len(s.blank); i++ {
		switch s.blank[i] {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// skipSpace returns the first offset at or after off holding a non-space
// byte in the blanked rendition
func (s *source) skipSpace(off int) int {
	for off < len(s.blank) && isSpace(s.blank[off]) {
		off++
	}
	return off
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

// headerEnd returns the offset of the first `{`, `;` or `=` outside
// parentheses at or after off
func (s *source) headerEnd(off int) int {
	depth := 0
	for i := off; i < len(s.blank); i++ {
		switch s.blank[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '{', ';', '=':
			if depth == 0 {
				return i
			}
		case '}':
			return i
		}
	}
	return len(s.blank)
}

// javadocBefore returns the `/** ... */` block that ends right before off,
// separated from it only by whitespace
func (s *source) javadocBefore(off int) (string, bool) {
	i := off
	for i > 0 && isSpace(s.text[i-1]) {
		i--
	}
	if i < 2 || s.text[i-2:i] != "*/" {
		return "", false
	}
	start := strings.LastIndex(s.text[:i-2], "/*")
	if start < 0 || !strings.HasPrefix(s.text[start:], "/**") {
		return "", false
	}
	return s.text[start:i], true
}

var (
	inlineTag = regexp.MustCompile(`\{@(?:code|link|linkplain|literal|value)\s+([^}]*)\}`)
	htmlTag   = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	sentence  = regexp.MustCompile(`^(.*?\.)(?:\s|$)`)
)

// parseJavadoc returns the first sentence and the full text without block
// tags such as @param or @return
func parseJavadoc(block string) (summary, description string) {
	body := strings.TrimSuffix(strings.TrimPrefix(block, "/**"), "*/")
	var kept []string
	inTag := false
	for _, ln := range strings.Split(body, "\n") {
		ln = strings.TrimSpace(ln)
		ln = strings.TrimSpace(strings.TrimPrefix(ln, "*"))
		if strings.HasPrefix(ln, "@") {
			inTag = true
			continue
		}
		if inTag && ln != "" {
			continue
		}
		inTag = false
		ln = inlineTag.ReplaceAllString(ln, "$1")
		ln = strings.TrimSpace(htmlTag.ReplaceAllString(ln, ""))
		kept = append(kept, ln)
	}
	description = strings.TrimSpace(strings.Join(kept, "\n"))
	if description == "" {
		return "", ""
	}

	first := strings.SplitN(description, "\n\n", 2)[0]
	first = strings.Join(strings.Fields(first), " ")
	if m := sentence.FindStringSubmatch(first); m != nil {
		summary = m[1]
	} else {
		summary = first
	}
	return summary, description
}
