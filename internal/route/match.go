package route

import (
	"fmt"
	"net/url"
	"strings"
)

// Match is a successful match of a pathname against a pattern.
type Match struct {
	// Path is the pattern that matched.
	Path string `json:"path"`

	// URL is the matched portion of the pathname.
	URL string `json:"url"`

	IsExact bool              `json:"isExact"`
	Params  map[string]string `json:"params"`
}

// RootMatch is the match every pathname has against the root.
func RootMatch(pathname string) *Match {
	return &Match{Path: "/", URL: "/", IsExact: pathname == "/", Params: map[string]string{}}
}

// Matcher matches and generates paths through two bounded caches, one for
// matching and one for generation.
type Matcher struct {
	Paths      *PathCache
	Generators *PathCache
}

// NewMatcher creates a Matcher with default-sized caches.
func NewMatcher() *Matcher {
	return &Matcher{
		Paths:      NewPathCache(DefaultCacheSize),
		Generators: NewPathCache(DefaultCacheSize),
	}
}

// Match matches pathname against pattern. An empty pattern yields the root
// match. With opts.End set, only exact matches are returned.
func (m *Matcher) Match(pathname, pattern string, opts Options) (*Match, error) {
	if pattern == "" {
		return RootMatch(pathname), nil
	}

	p, err := m.Paths.Compile(pattern, opts)
	if err != nil {
		return nil, err
	}
	matched, values, ok := p.Exec(pathname)
	if !ok {
		return nil, nil
	}

	isExact := pathname == matched
	if opts.End && !isExact {
		return nil, nil
	}
	if pattern == "/" && matched == "" {
		matched = "/"
	}

	params := make(map[string]string, len(p.Keys))
	for i, k := range p.Keys {
		if i < len(values) && values[i] != "" {
			params[k.Name] = values[i]
		}
	}
	return &Match{Path: pattern, URL: matched, IsExact: isExact, Params: params}, nil
}

// MatchAny returns the match of the first pattern that matches.
func (m *Matcher) MatchAny(pathname string, patterns []string, opts Options) (*Match, error) {
	for _, pattern := range patterns {
		match, err := m.Match(pathname, pattern, opts)
		if err != nil || match != nil {
			return match, err
		}
	}
	return nil, nil
}

// Generate builds a path from pattern and params. Values are escaped so
// they stay within their segment. A repeated parameter takes a []string.
func (m *Matcher) Generate(pattern string, params map[string]any) (string, error) {
	if pattern == "" || pattern == "/" {
		return "/", nil
	}

	p, err := m.Generators.Compile(pattern, Options{})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	n := 0
	for _, t := range p.tokens {
		if !t.isParam() {
			b.WriteString(t.literal)
			continue
		}
		check := p.params[n]
		n++

		var values []string
		switch v := params[t.key.Name].(type) {
		case nil:
		case string:
			values = []string{v}
		case []string:
			if !t.key.Repeat {
				return "", fmt.Errorf("expected %q to be a single value", t.key.Name)
			}
			values = v
		default:
			values = []string{fmt.Sprint(v)}
		}

		if len(values) == 0 {
			if t.key.Optional {
				continue
			}
			return "", fmt.Errorf("expected %q to be defined", t.key.Name)
		}

		for _, v := range values {
			seg := v
			if t.pattern != ".*" {
				seg = url.PathEscape(v)
			}
			if !check.MatchString(seg) {
				return "", fmt.Errorf("expected %q to match %q, got %q", t.key.Name, t.pattern, seg)
			}
			b.WriteString(t.prefix)
			b.WriteString(seg)
		}
	}
	return b.String(), nil
}

// StripTrailingSlash removes one trailing slash.
func StripTrailingSlash(path string) string {
	return strings.TrimSuffix(path, "/")
}

// StripLeadingSlash removes one leading slash.
func StripLeadingSlash(path string) string {
	return strings.TrimPrefix(path, "/")
}
