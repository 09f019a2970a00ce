package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run against a composed store.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Bundles is a directory of CUE bundle declarations. LoadScenario
	// resolves it relative to the scenario file.
	Bundles string `yaml:"bundles"`

	// Initial is the preloaded state.
	Initial map[string]any `yaml:"initial,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step is exactly one of Dispatch, Action, Batch or Flush.
type Step struct {
	Dispatch *ActionValue  `yaml:"dispatch,omitempty"`
	Action   string        `yaml:"action,omitempty"`
	Args     []any         `yaml:"args,omitempty"`
	Batch    []ActionValue `yaml:"batch,omitempty"`

	// Flush runs deferred work, such as pending reactions, until the idle
	// queue is empty.
	Flush bool `yaml:"flush,omitempty"`
}

// ActionValue is a plain action written inline.
type ActionValue struct {
	Type    string `yaml:"type"`
	Payload any    `yaml:"payload,omitempty"`
}

// Assertion checks the run once every step has executed.
type Assertion struct {
	Type string `yaml:"type"`

	// Selector is the selector name (select, notified).
	Selector string `yaml:"selector,omitempty"`

	// Slice is the state slice name (state).
	Slice string `yaml:"slice,omitempty"`

	// Expect is the expected value (select, state).
	Expect any `yaml:"expect,omitempty"`

	// Count is the expected notification count (notified).
	Count int `yaml:"count,omitempty"`

	// Contains is a substring of an expected step error (error).
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertSelect   = "select"
	AssertState    = "state"
	AssertNotified = "notified"
	AssertError    = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Bundles != "" && !filepath.IsAbs(scenario.Bundles) {
		scenario.Bundles = filepath.Join(filepath.Dir(path), scenario.Bundles)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if _, err := os.Stat(scenario.Bundles); err != nil {
		return nil, fmt.Errorf("invalid scenario: bundles directory: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario without resolving or checking paths.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Bundles == "" {
		return fmt.Errorf("bundles is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	kinds := 0
	if step.Dispatch != nil {
		kinds++
		if step.Dispatch.Type == "" {
			return fmt.Errorf("steps[%d]: dispatch type is required", index)
		}
	}
	if step.Action != "" {
		kinds++
	}
	if step.Batch != nil {
		kinds++
		for j, a := range step.Batch {
			if a.Type == "" {
				return fmt.Errorf("steps[%d]: batch[%d] type is required", index, j)
			}
		}
	}
	if step.Flush {
		kinds++
	}

	switch {
	case kinds == 0:
		return fmt.Errorf("steps[%d]: one of dispatch, action, batch or flush is required", index)
	case kinds > 1:
		return fmt.Errorf("steps[%d]: only one of dispatch, action, batch or flush is allowed", index)
	case step.Args != nil && step.Action == "":
		return fmt.Errorf("steps[%d]: args requires action", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSelect:
		if a.Selector == "" {
			return fmt.Errorf("assertions[%d]: selector is required for select", index)
		}
	case AssertState:
		if a.Slice == "" {
			return fmt.Errorf("assertions[%d]: slice is required for state", index)
		}
	case AssertNotified:
		if a.Selector == "" {
			return fmt.Errorf("assertions[%d]: selector is required for notified", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for notified", index)
		}
	case AssertError:
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
