package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/roach88/bundlecore/internal/engine"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/selector"
)

// AssertionContext provides what assertions need besides the result.
type AssertionContext struct {
	Store *engine.Store
}

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, ev := range e.Trace {
		switch ev.Type {
		case EventAction:
			fmt.Fprintf(&buf, "  [%d] #%d %s\n", i+1, ev.Seq, ev.ActionType)
		case EventNotify:
			fmt.Fprintf(&buf, "  [%d] #%d notify %s\n", i+1, ev.Seq, render(ev.Changed))
		case EventError:
			fmt.Fprintf(&buf, "  [%d] #%d error %s\n", i+1, ev.Seq, ev.Message)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and records failures on result.
// Step errors fail the result unless an error assertion is present.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) {
	expectsError := false
	for _, a := range assertions {
		if a.Type == AssertError {
			expectsError = true
		}
		if err := evaluate(result, a, actx); err != nil {
			result.AddError(err.Error())
		}
	}
	if !expectsError {
		for _, msg := range result.StepErrors {
			result.AddError("unexpected step error: " + msg)
		}
	}
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertSelect:
		return assertSelect(result, a, actx)
	case AssertState:
		return assertState(result, a)
	case AssertNotified:
		return assertNotified(result, a)
	case AssertError:
		return assertError(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertSelect(result *Result, a Assertion, actx *AssertionContext) error {
	if actx == nil || actx.Store == nil {
		return fmt.Errorf("select assertion requires a store")
	}
	name, params := selector.ParseName(a.Selector)
	got, err := actx.Store.Selector(name, params...)
	if err != nil {
		return &AssertionError{
			Type:     AssertSelect,
			Expected: fmt.Sprintf("%s = %s", a.Selector, render(a.Expect)),
			Actual:   err.Error(),
			Trace:    result.Trace,
		}
	}
	if !sameValue(a.Expect, got) {
		return &AssertionError{
			Type:     AssertSelect,
			Expected: fmt.Sprintf("%s = %s", a.Selector, render(a.Expect)),
			Actual:   render(got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertState(result *Result, a Assertion) error {
	got, ok := result.State[a.Slice]
	if !ok {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("slice %s = %s", a.Slice, render(a.Expect)),
			Actual:   "slice not found",
			Trace:    result.Trace,
		}
	}
	if !sameValue(a.Expect, got) {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("slice %s = %s", a.Slice, render(a.Expect)),
			Actual:   render(got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertNotified(result *Result, a Assertion) error {
	valueName := selector.ValueName(a.Selector)
	if n := result.Notifications(valueName); n != a.Count {
		return &AssertionError{
			Type:     AssertNotified,
			Expected: fmt.Sprintf("%s notified %d times", valueName, a.Count),
			Actual:   fmt.Sprintf("notified %d times", n),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertError(result *Result, a Assertion) error {
	for _, msg := range result.StepErrors {
		if strings.Contains(msg, a.Contains) {
			return nil
		}
	}
	actual := "no step errors"
	if len(result.StepErrors) > 0 {
		actual = strings.Join(result.StepErrors, "; ")
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: fmt.Sprintf("a step error containing %q", a.Contains),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// sameValue compares by canonical JSON, which erases the difference between
// the numeric types YAML, JSON and reducers produce.
func sameValue(want, got any) bool {
	w, err := model.MarshalCanonical(want)
	if err != nil {
		return false
	}
	g, err := model.MarshalCanonical(got)
	if err != nil {
		return false
	}
	return bytes.Equal(w, g)
}

func render(v any) string {
	data, err := model.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
