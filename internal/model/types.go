package model

import "fmt"

// Reserved action types handled by the runtime itself.
const (
	// ActionBatch applies Action.Actions as one state transition.
	ActionBatch = "BATCH_ACTIONS"

	// ActionReplaceState replaces the whole state with the payload before
	// normal reduction continues.
	ActionReplaceState = "REPLACE_STATE"

	// ActionInit is dispatched once when a container is created.
	ActionInit = "@@bundlecore/INIT"

	// ActionReplaceReducer is dispatched after a reducer replacement.
	ActionReplaceReducer = "@@bundlecore/REPLACE"
)

// State is the root state object, keyed by slice name.
//
// A State obtained from a store is a snapshot and must be treated as
// immutable. Reducers produce new maps instead of mutating old ones.
type State map[string]any

// Action is a plain dispatched action.
type Action struct {
	Type    string
	Payload any

	// Actions holds the sub-actions of a batch action.
	Actions []Action
}

// String returns the action type, which is all log lines need.
func (a Action) String() string {
	if a.Type == ActionBatch {
		return fmt.Sprintf("%s(%d)", a.Type, len(a.Actions))
	}
	return a.Type
}

// Batch creates a batch action that reduces actions in order as a single
// transition.
func Batch(actions ...Action) Action {
	return Action{Type: ActionBatch, Actions: actions}
}

// ReplaceState creates an action that replaces the entire state.
func ReplaceState(s State) Action {
	return Action{Type: ActionReplaceState, Payload: s}
}

// Dispatch sends a dispatchable value (an Action, a non-nil *Action, or a
// thunk understood by the middleware chain) through a store.
type Dispatch func(action any) (any, error)

// Reducer is a slice state-transition function.
//
// The reducer receives nil when its slice does not exist yet and must return
// the slice's initial value in that case.
type Reducer func(state any, action Action) any

// Listener is called after every reduced dispatch. Returning an error stops
// the remaining listeners and surfaces the error from Dispatch.
type Listener func() error

// AsAction extracts a plain action from a dispatched value.
func AsAction(v any) (Action, bool) {
	switch a := v.(type) {
	case Action:
		return a, true
	case *Action:
		if a == nil {
			return Action{}, false
		}
		return *a, true
	default:
		return Action{}, false
	}
}

// AsState converts a replace-state payload to a State.
// A nil payload is an empty state.
func AsState(v any) (State, bool) {
	switch s := v.(type) {
	case nil:
		return State{}, true
	case State:
		return s, true
	case map[string]any:
		return State(s), true
	default:
		return nil, false
	}
}
