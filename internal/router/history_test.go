package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		want Location
	}{
		{"/a", Location{Pathname: "/a"}},
		{"/a?x=1", Location{Pathname: "/a", Search: "?x=1"}},
		{"/a?x=1#top", Location{Pathname: "/a", Search: "?x=1", Hash: "#top"}},
		{"/a#top?x", Location{Pathname: "/a", Hash: "#top?x"}},
		{"", Location{Pathname: "/"}},
		{"?q", Location{Pathname: "/", Search: "?q"}},
	}
	for _, tt := range tests {
		got := ParseLocation(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "/a?x=1#top", ParseLocation("/a?x=1#top").String())
}

func TestMemoryHistory_PushReplaceGo(t *testing.T) {
	h := NewMemoryHistory("/")

	var seen []string
	unlisten := h.Listen(func(loc Location, action string) {
		seen = append(seen, action+" "+loc.String())
	})

	h.Push("/a")
	h.Push("/b")
	h.Go(-1)
	h.Replace("/c")
	h.Go(-5)
	h.Go(-1)

	entries, index := h.Entries()
	assert.Equal(t, []Location{{Pathname: "/"}, {Pathname: "/c"}, {Pathname: "/b"}}, entries)
	assert.Equal(t, 0, index)
	assert.Equal(t, []string{"PUSH /a", "PUSH /b", "POP /a", "REPLACE /c", "POP /"}, seen)

	unlisten()
	unlisten()
	h.Push("/d")
	assert.Len(t, seen, 5)

	entries, _ = h.Entries()
	assert.Equal(t, []Location{{Pathname: "/"}, {Pathname: "/d"}}, entries, "push truncates forward entries")
}
