package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/selector"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func counterReducer(state any, action model.Action) any {
	n, _ := state.(int)
	switch action.Type {
	case "INC":
		return n + 1
	case "ADD":
		return n + action.Payload.(int)
	case "RESET":
		return 0
	}
	return n
}

func counterBundle() bundle.Spec {
	return bundle.Spec{
		Name:    "counter",
		Reducer: counterReducer,
		Actions: map[string]bundle.ActionCreator{
			"doIncrement": bundle.Plain("INC"),
			"doAdd":       bundle.Plain("ADD"),
		},
	}
}

func readSlice(name string) selector.Input {
	return func(state model.State, _ ...string) any {
		return state[name]
	}
}

func watcherBundle() bundle.Spec {
	return bundle.Spec{
		Name: "watcher",
		Derived: []bundle.Derived{
			bundle.Readable("selectCount", readSlice("counter")),
		},
	}
}

func newTestStore(t *testing.T, specs ...bundle.Spec) *Store {
	t.Helper()
	s, err := New(nil, specs, WithLogger(discardLogger()))
	require.NoError(t, err)
	t.Cleanup(s.Destroy)
	return s
}

func mustDispatch(t *testing.T, s *Store, action any) {
	t.Helper()
	_, err := s.Dispatch(action)
	require.NoError(t, err)
}
