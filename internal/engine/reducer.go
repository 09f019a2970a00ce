package engine

import (
	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/container"
	"github.com/roach88/bundlecore/internal/model"
)

// enhance wraps root with batch support (outer) and full-state replacement
// (inner).
func enhance(root container.RootReducer) container.RootReducer {
	return enableBatch(enableReplaceState(root))
}

// enableBatch reduces the sub-actions of a batch action in order, starting
// from the current state, as one transition. Nested batches are flattened.
func enableBatch(next container.RootReducer) container.RootReducer {
	var reduce container.RootReducer
	reduce = func(state model.State, action model.Action) (model.State, error) {
		if action.Type != model.ActionBatch {
			return next(state, action)
		}
		cur := state
		for _, sub := range action.Actions {
			var err error
			if cur, err = reduce(cur, sub); err != nil {
				return state, err
			}
		}
		return cur, nil
	}
	return reduce
}

// enableReplaceState swaps in the payload of a replace-state action before
// normal reduction continues.
func enableReplaceState(next container.RootReducer) container.RootReducer {
	return func(state model.State, action model.Action) (model.State, error) {
		if action.Type != model.ActionReplaceState {
			return next(state, action)
		}
		replacement, ok := model.AsState(action.Payload)
		if !ok {
			return state, newError(CodeInvalidAction, action.Type,
				"%s payload must be a state map, got %T", action.Type, action.Payload)
		}
		return next(replacement, action)
	}
}

// rootReducer combines the slice reducers of every chunk. Later chunks
// replace earlier reducers of the same slice name.
func rootReducer(chunks []*bundle.Chunk) container.RootReducer {
	reducers := bundle.NewOrdered[model.Reducer]()
	for _, c := range chunks {
		all := c.Reducers()
		for _, name := range c.ReducerNames() {
			reducers.Set(name, all[name])
		}
	}
	return enhance(container.CombineReducers(reducers.Keys(), reducers.Map()))
}
