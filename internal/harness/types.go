package harness

import "encoding/json"

// Trace event types.
const (
	EventAction = "action"
	EventNotify = "notify"
	EventError  = "error"
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Type string `json:"type"`

	// Seq is the number of actions reduced so far. A notify event carries
	// the seq of the action that caused it.
	Seq int64 `json:"seq"`

	ActionType string `json:"action_type,omitempty"`

	// Batch lists sub-action types of a batch action.
	Batch []string `json:"batch,omitempty"`

	// Changed maps value names to the values delivered to subscribers.
	Changed map[string]any `json:"changed,omitempty"`

	Message string `json:"message,omitempty"`
}

// PersistedSlice is a cache entry left by the persistence bridge.
type PersistedSlice struct {
	Seq   int64           `json:"seq"`
	Value json.RawMessage `json:"value"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held and no step failed
	// unexpectedly.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// StepErrors contains errors returned by steps, in order.
	StepErrors []string `json:"step_errors,omitempty"`

	// State is the final state.
	State map[string]any `json:"state,omitempty"`

	// Persisted holds the in-memory cache contents after the writer drained.
	Persisted map[string]PersistedSlice `json:"persisted,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		State:     make(map[string]any),
		Persisted: make(map[string]PersistedSlice),
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Notifications returns how many notify events delivered valueName.
func (r *Result) Notifications(valueName string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Type != EventNotify {
			continue
		}
		if _, ok := ev.Changed[valueName]; ok {
			n++
		}
	}
	return n
}
