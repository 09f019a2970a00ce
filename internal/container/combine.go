package container

import "github.com/roach88/bundlecore/internal/model"

// CombineReducers builds a root reducer that runs each slice reducer on its
// own named sub-state, in names order.
//
// When no slice value changed identity and no key was dropped, the previous
// root map is returned unchanged. Keys in state without a reducer are
// dropped from the next state.
func CombineReducers(names []string, reducers map[string]model.Reducer) RootReducer {
	keys := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if reducers[name] == nil || seen[name] {
			continue
		}
		seen[name] = true
		keys = append(keys, name)
	}

	return func(state model.State, action model.Action) (model.State, error) {
		if state == nil {
			state = model.State{}
		}

		changed := false
		next := make(model.State, len(keys))
		for _, key := range keys {
			prev, had := state[key]
			value := reducers[key](prev, action)
			next[key] = value
			if !had || !model.Identical(prev, value) {
				changed = true
			}
		}

		if !changed && len(keys) == len(state) {
			return state, nil
		}
		return next, nil
	}
}
