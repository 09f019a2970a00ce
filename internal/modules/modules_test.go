package modules

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/engine"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/testutil"
)

func newStore(t *testing.T, specs ...bundle.Spec) *engine.Store {
	t.Helper()
	s, err := engine.New(nil, specs, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(s.Destroy)
	return s
}

func TestAsyncCount(t *testing.T) {
	s := newStore(t, AsyncCount())

	active := func() any {
		v, err := s.Selector("selectAsyncActive")
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, false, active())

	for _, typ := range []string{"FETCH_STARTED", "SAVE_STARTED", "FETCH_SUCCEEDED"} {
		_, err := s.Dispatch(model.Action{Type: typ})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, s.GetState()["asyncCount"])
	assert.Equal(t, true, active())

	_, err := s.Dispatch(model.Action{Type: "SAVE_FAILED"})
	require.NoError(t, err)
	_, err = s.Dispatch(model.Action{Type: "STARTED_LATE"})
	require.NoError(t, err)
	assert.Equal(t, false, active())
}

func TestAppTime(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newStore(t, AppTime(clock.Now))

	clock.Advance(time.Minute)
	_, err := s.Dispatch(model.Action{Type: "ANY"})
	require.NoError(t, err)

	v, err := s.Selector("selectAppTime")
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), v)

	_, err = s.Action("resetAppTime")
	require.NoError(t, err)
	v, err = s.Selector("selectAppTime")
	require.NoError(t, err)
	assert.Nil(t, v)
}
