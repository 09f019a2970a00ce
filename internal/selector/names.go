package selector

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const selectPrefix = "select"

// ParseName splits a possibly parameterized selector name into its base
// name and trimmed, non-empty parameters.
//
//	ParseName("selectItem[a, b]") // "selectItem", ["a" "b"]
//	ParseName("selectCount")      // "selectCount", nil
func ParseName(s string) (string, []string) {
	open := paramsStart(s)
	if open < 0 {
		return s, nil
	}

	name := s[:open]
	inner := s[open+1:]
	if end := strings.IndexAny(inner, "[]"); end >= 0 {
		inner = inner[:end]
	}

	var params []string
	for _, p := range strings.Split(inner, ",") {
		if p = strings.TrimSpace(p); p != "" {
			params = append(params, p)
		}
	}
	return name, params
}

// StripParams removes a trailing "[...]" parameter suffix.
func StripParams(s string) string {
	if open := paramsStart(s); open >= 0 {
		return s[:open]
	}
	return s
}

// ValueName maps a selector name to the key its value is delivered under.
// A "select" prefix followed by an uppercase letter is dropped and the next
// letter lowercased. Parameters are kept. Names without the prefix map to
// themselves.
func ValueName(s string) string {
	rest, ok := strings.CutPrefix(s, selectPrefix)
	if !ok || rest == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(rest)
	if !unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToLower(r)) + rest[size:]
}

// paramsStart returns the index of the first '[' that is followed by a ']'
// somewhere later in s, or -1.
func paramsStart(s string) int {
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.Contains(s[open:], "]") {
		return -1
	}
	return open
}
