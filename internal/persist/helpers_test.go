package persist

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/engine"
	"github.com/roach88/bundlecore/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func counter(name string, persist ...string) bundle.Spec {
	return bundle.Spec{
		Name: name,
		Reducer: func(state any, action model.Action) any {
			n, _ := state.(int)
			switch action.Type {
			case "INC":
				return n + 1
			case "RESET":
				return 0
			}
			return n
		},
		Persist: persist,
	}
}

func newStore(t *testing.T, b *Bridge, specs ...bundle.Spec) *engine.Store {
	t.Helper()
	specs = append([]bundle.Spec{b.Bundle()}, specs...)
	s, err := engine.New(nil, specs, engine.WithLogger(discardLogger()))
	require.NoError(t, err)
	t.Cleanup(s.Destroy)
	return s
}

func dispatch(t *testing.T, s *engine.Store, actions ...model.Action) {
	t.Helper()
	for _, a := range actions {
		_, err := s.Dispatch(a)
		require.NoError(t, err)
	}
}
