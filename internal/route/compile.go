// Package route matches URL paths against patterns such as /users/:id.
//
// Supported pattern syntax:
//
//	/users/:id      named parameter, one segment
//	/users/:id?     optional parameter
//	/files/:path*   zero or more segments
//	/files/:path+   one or more segments
//	/users/:id(\d+) parameter with a custom pattern
//	/static/*       unnamed splat, keyed "0", "1", ...
package route

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const defaultParamPattern = `[^/#?]+?`

// Options control how a pattern compiles.
type Options struct {
	// End anchors the match at the end of the path. Without it the pattern
	// matches a prefix that ends on a segment boundary.
	End bool

	// Strict makes a trailing slash significant.
	Strict bool

	// Sensitive makes matching case sensitive.
	Sensitive bool
}

// Key is a parameter of a compiled pattern.
type Key struct {
	Name     string
	Optional bool
	Repeat   bool
}

type token struct {
	literal string

	// Parameter fields, used when literal is empty.
	key     Key
	prefix  string
	pattern string
}

func (t token) isParam() bool { return t.key.Name != "" }

// Pattern is a compiled path pattern.
type Pattern struct {
	Source string
	Keys   []Key

	re     *regexp.Regexp
	tokens []token
	params []*regexp.Regexp
}

// Compile compiles pattern with opts.
func Compile(pattern string, opts Options) (*Pattern, error) {
	tokens, err := parse(pattern)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	if !opts.Sensitive {
		b.WriteString("(?i)")
	}
	b.WriteString("^(")

	var keys []Key
	for _, t := range tokens {
		if !t.isParam() {
			b.WriteString(regexp.QuoteMeta(t.literal))
			continue
		}
		keys = append(keys, t.key)
		b.WriteString(paramRegexp(t))
	}

	endDelimited := len(tokens) > 0 && !tokens[len(tokens)-1].isParam() &&
		strings.HasSuffix(tokens[len(tokens)-1].literal, "/")

	switch {
	case opts.End:
		if !opts.Strict {
			b.WriteString(`[/#?]?`)
		}
		b.WriteString(`)$`)
	case endDelimited:
		b.WriteString(`).*$`)
	default:
		if !opts.Strict {
			// A trailing delimiter belongs to the match only at the very end.
			b.WriteString(`(?:[/#?]$)?`)
		}
		b.WriteString(`)(?:[/#?].*)?$`)
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	p := &Pattern{Source: pattern, Keys: keys, re: re, tokens: tokens}
	for _, t := range tokens {
		if !t.isParam() {
			continue
		}
		pr, err := regexp.Compile(`^(?:` + t.pattern + `)$`)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: param %q: %w", pattern, t.key.Name, err)
		}
		p.params = append(p.params, pr)
	}
	return p, nil
}

func paramRegexp(t token) string {
	prefix := regexp.QuoteMeta(t.prefix)
	p := t.pattern
	switch {
	case t.key.Repeat && t.key.Optional:
		return `(?:` + prefix + `((?:` + p + `)(?:` + prefix + `(?:` + p + `))*))?`
	case t.key.Repeat:
		return prefix + `((?:` + p + `)(?:` + prefix + `(?:` + p + `))*)`
	case t.key.Optional:
		return `(?:` + prefix + `(` + p + `))?`
	default:
		return prefix + `(` + p + `)`
	}
}

// Exec matches path and returns the matched portion and the raw parameter
// values in key order. Absent optional parameters are "".
func (p *Pattern) Exec(path string) (url string, values []string, ok bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return "", nil, false
	}
	return m[1], m[2:], true
}

func parse(pattern string) ([]token, error) {
	var (
		tokens  []token
		lit     strings.Builder
		unnamed int
	)

	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, token{literal: lit.String()})
			lit.Reset()
		}
	}
	// takePrefix moves a trailing slash out of the literal so an optional
	// parameter can swallow it.
	takePrefix := func() string {
		s := lit.String()
		if strings.HasSuffix(s, "/") {
			lit.Reset()
			lit.WriteString(s[:len(s)-1])
			return "/"
		}
		return ""
	}

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '\\':
			if i+1 < len(pattern) {
				i++
				lit.WriteByte(pattern[i])
			}

		case ':', '(', '*':
			var t token
			t.pattern = defaultParamPattern

			if c == ':' {
				j := i + 1
				for j < len(pattern) && isNameChar(pattern[j]) {
					j++
				}
				if j == i+1 {
					return nil, fmt.Errorf("pattern %q: missing parameter name at %d", pattern, i)
				}
				t.key.Name = pattern[i+1 : j]
				i = j - 1
			} else {
				t.key.Name = strconv.Itoa(unnamed)
				unnamed++
				if c == '*' {
					t.pattern = `.*`
				}
			}

			if c == '(' || (i+1 < len(pattern) && pattern[i+1] == '(') {
				if c != '(' {
					i++
				}
				group, end, err := readGroup(pattern, i)
				if err != nil {
					return nil, err
				}
				t.pattern = group
				i = end
			}

			if c != '*' && i+1 < len(pattern) {
				switch pattern[i+1] {
				case '?':
					t.key.Optional = true
					i++
				case '*':
					t.key.Optional = true
					t.key.Repeat = true
					i++
				case '+':
					t.key.Repeat = true
					i++
				}
			}

			t.prefix = takePrefix()
			flush()
			tokens = append(tokens, t)

		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return tokens, nil
}

// readGroup reads the parenthesized pattern opening at pattern[start].
func readGroup(pattern string, start int) (string, int, error) {
	depth := 0
	for j := start; j < len(pattern); j++ {
		switch pattern[j] {
		case '\\':
			j++
		case '(':
			if depth > 0 && (j+1 >= len(pattern) || pattern[j+1] != '?') {
				return "", 0, fmt.Errorf("pattern %q: capturing groups are not allowed at %d", pattern, j)
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				group := pattern[start+1 : j]
				if group == "" {
					return "", 0, fmt.Errorf("pattern %q: empty group at %d", pattern, start)
				}
				return group, j, nil
			}
		}
	}
	return "", 0, fmt.Errorf("pattern %q: unbalanced group at %d", pattern, start)
}

func isNameChar(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
