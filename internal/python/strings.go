package python

import (
	"strings"
	"unicode"
)

// stringLiteral decodes the text of a single string literal token,
// including any prefix and quotes. ok is false for byte strings, which
// cannot be docstrings.
func stringLiteral(raw string) (value string, ok bool) {
	prefixEnd := strings.IndexAny(raw, `"'`)
	if prefixEnd < 0 {
		return "", false
	}
	prefix := strings.ToLower(raw[:prefixEnd])
	if strings.Contains(prefix, "b") {
		return "", false
	}
	body := raw[prefixEnd:]

	quote := body[:1]
	if strings.HasPrefix(body, quote+quote+quote) && len(body) >= 6 {
		quote = quote + quote + quote
	}
	if len(body) < 2*len(quote) {
		return "", false
	}
	body = body[len(quote) : len(body)-len(quote)]

	if strings.Contains(prefix, "r") {
		return body, true
	}
	return unescape(body), true
}

var simpleEscapes = map[byte]string{
	'\\': `\`,
	'\'': `'`,
	'"':  `"`,
	'n':  "\n",
	't':  "\t",
	'r':  "\r",
	'a':  "\a",
	'b':  "\b",
	'f':  "\f",
	'v':  "\v",
	'\n': "",
}

// unescape handles the escapes that show up in docstrings. Unknown escapes
// are kept verbatim, as the interpreter does.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		if repl, ok := simpleEscapes[s[i+1]]; ok {
			b.WriteString(repl)
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// cleanDocstring strips the indentation docstrings inherit from the code
// around them: the first line loses its leading whitespace, every other
// line loses the smallest indentation shared by the non-blank lines, and
// blank lines at either end are dropped.
func cleanDocstring(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")

	indent := -1
	for _, line := range lines[1:] {
		stripped := strings.TrimLeftFunc(line, unicode.IsSpace)
		if stripped == "" {
			continue
		}
		if n := len(line) - len(stripped); indent < 0 || n < indent {
			indent = n
		}
	}

	lines[0] = strings.TrimLeftFunc(lines[0], unicode.IsSpace)
	if indent > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= indent {
				lines[i] = lines[i][indent:]
			} else {
				lines[i] = strings.TrimLeftFunc(lines[i], unicode.IsSpace)
			}
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
