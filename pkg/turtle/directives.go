// Package turtle converts triples to and from Turtle text and implements the
// text operations of the append protocol: splitting a document into its
// directives and triples, diffing directive blocks and reassembling chunks.
package turtle

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// IsDirective reports whether line declares a prefix or base.
func IsDirective(line string) bool {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "@prefix") || strings.HasPrefix(line, "@base") {
		return true
	}
	word, _, _ := strings.Cut(line, " ")
	return strings.EqualFold(word, "PREFIX") || strings.EqualFold(word, "BASE")
}

func lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// Split separates a document into its directive lines and the remaining
// triple text. Both halves are CRLF joined; blank lines are dropped from the
// directives and trimmed from the ends of the triples.
func Split(text string) (directives, triples string) {
	var d, t []string
	for _, line := range lines(text) {
		switch {
		case IsDirective(line):
			d = append(d, strings.TrimRight(line, " \t"))
		default:
			t = append(t, line)
		}
	}

	for len(t) > 0 && strings.TrimSpace(t[0]) == "" {
		t = t[1:]
	}
	for len(t) > 0 && strings.TrimSpace(t[len(t)-1]) == "" {
		t = t[:len(t)-1]
	}
	return strings.Join(d, CRLF), strings.Join(t, CRLF)
}

// Difference returns the lines of next that do not appear in prev, in the
// order they appear in next. A prefix line whose name prev already binds is
// left out even when the IRI differs: rebinding it would change the meaning
// of the chunks already written under prev.
func Difference(prev, next string) string {
	seen := make(map[string]bool)
	bound := make(map[string]bool)
	for _, line := range lines(prev) {
		seen[strings.TrimSpace(line)] = true
		if name, _, ok := prefixBinding(line); ok {
			bound[name] = true
		}
	}

	var out []string
	for _, line := range lines(next) {
		key := strings.TrimSpace(line)
		if key == "" || seen[key] {
			continue
		}
		if name, _, ok := prefixBinding(line); ok {
			if bound[name] {
				continue
			}
			bound[name] = true
		}
		seen[key] = true
		out = append(out, line)
	}
	return strings.Join(out, CRLF)
}

// Extend appends diff to directives. An empty diff leaves them unchanged.
func Extend(directives, diff string) string {
	if diff == "" {
		return directives
	}
	if directives == "" {
		return diff
	}
	return directives + CRLF + diff
}

// Assemble builds the externally visible document from the directives and
// chunks in ascending index order.
func Assemble(directives string, chunks []string) string {
	var b strings.Builder
	b.WriteString(directives)
	b.WriteString(CRLF + CRLF)
	for _, chunk := range chunks {
		b.WriteString(chunk)
		b.WriteString(CRLF)
	}
	return b.String()
}

var prefixLine = regexp.MustCompile(`^\s*(?:@prefix|(?i:PREFIX))\s+([A-Za-z][\w.-]*)?:\s*<([^>]*)>`)

// Namespaces returns the prefix bindings declared in text, keyed by prefix
// name ("" for the default prefix).
func Namespaces(text string) map[string]string {
	out := make(map[string]string)
	for _, line := range lines(text) {
		if name, iri, ok := prefixBinding(line); ok {
			out[name] = iri
		}
	}
	return out
}

// PrefixNames returns the prefix names declared in text in declaration
// order, repeats included.
func PrefixNames(text string) []string {
	var out []string
	for _, line := range lines(text) {
		if name, _, ok := prefixBinding(line); ok {
			out = append(out, name)
		}
	}
	return out
}

func prefixBinding(line string) (name, iri string, ok bool) {
	m := prefixLine.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ReadDirectives reads the leading directive block of a document, stopping
// at the first line that is not a directive, a comment or blank.
func ReadDirectives(r io.Reader) (string, error) {
	var d []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r \t")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			continue
		case IsDirective(line):
			d = append(d, line)
		default:
			return strings.Join(d, CRLF), nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading directives: %w", err)
	}
	return strings.Join(d, CRLF), nil
}
