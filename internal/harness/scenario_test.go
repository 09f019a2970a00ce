package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario_ResolvesBundles(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "clamp.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "clamp", s.Name)
	assert.Equal(t, filepath.Join("testdata", "bundles", "counter"), s.Bundles)
	require.Len(t, s.Steps, 4)
	assert.Equal(t, "doIncrement", s.Steps[0].Action)
	assert.True(t, s.Steps[3].Flush)
	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertNotified, s.Assertions[2].Type)
	assert.Equal(t, 4, s.Assertions[2].Count)
}

func TestLoadScenario_StepKinds(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "flags_batch.yaml"))
	require.NoError(t, err)

	require.Len(t, s.Steps[0].Batch, 2)
	assert.Equal(t, "FLAGS_MERGED", s.Steps[0].Batch[0].Type)
	assert.Equal(t, map[string]any{"beta": true}, s.Steps[0].Batch[0].Payload)
	assert.Equal(t, "doSet", s.Steps[1].Action)
	assert.Equal(t, []any{7}, s.Steps[1].Args)
}

func TestLoadScenario_Initial(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "preloaded.yaml"))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"counter": 2, "theme": true}, s.Initial)
	require.NotNil(t, s.Steps[0].Dispatch)
	assert.Equal(t, "DARK_TOGGLED", s.Steps[0].Dispatch.Type)
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: typo
bundles: .
steps:
  - flush: true
assertion:
  - type: error
    contains: x
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingBundlesDir(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: nodir
bundles: ./missing
steps:
  - flush: true
assertions:
  - type: error
    contains: x
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundles directory")
}

func TestValidateScenario(t *testing.T) {
	base := func() Scenario {
		return Scenario{
			Name:       "ok",
			Bundles:    "dir",
			Steps:      []Step{{Flush: true}},
			Assertions: []Assertion{{Type: AssertError, Contains: "x"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Scenario)
		errMsg string
	}{
		{"valid", func(*Scenario) {}, ""},
		{"no name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"no bundles", func(s *Scenario) { s.Bundles = "" }, "bundles is required"},
		{"no steps", func(s *Scenario) { s.Steps = nil }, "steps list is required"},
		{"no assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"empty step", func(s *Scenario) { s.Steps = []Step{{}} }, "steps[0]: one of"},
		{"two kinds", func(s *Scenario) { s.Steps = []Step{{Action: "a", Flush: true}} }, "only one of"},
		{"args without action", func(s *Scenario) { s.Steps = []Step{{Flush: true, Args: []any{1}}} }, "args requires action"},
		{"untyped dispatch", func(s *Scenario) { s.Steps = []Step{{Dispatch: &ActionValue{}}} }, "dispatch type is required"},
		{"untyped batch entry", func(s *Scenario) { s.Steps = []Step{{Batch: []ActionValue{{Type: "A"}, {}}}} }, "batch[1] type is required"},
		{"select without selector", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertSelect}} }, "selector is required for select"},
		{"state without slice", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertState}} }, "slice is required for state"},
		{"negative count", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertNotified, Selector: "selectX", Count: -1}} }, "count must be non-negative"},
		{"error without contains", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertError}} }, "contains is required"},
		{"unknown assertion", func(s *Scenario) { s.Assertions = []Assertion{{Type: "trace_order"}} }, `unknown assertion type "trace_order"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(&s)
			err := validateScenario(&s)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
