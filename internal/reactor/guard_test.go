package reactor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/testutil"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestLoopGuard_TripsAfterLimit(t *testing.T) {
	clock := testutil.NewFakeClock(epoch)
	g := NewLoopGuard(clock, 10, time.Second)
	result := &model.Action{Type: "RESET"}

	for i := 0; i < 10; i++ {
		require.NoError(t, g.Allow("reactClamp", result), "selection %d", i+1)
	}

	err := g.Allow("reactClamp", result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoopDetected))
	assert.Equal(t,
		`reactor "reactClamp" produced the same result more than 10 times without resolving its triggering condition`,
		err.Error())

	var le *LoopError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 11, le.Count)
}

func TestLoopGuard_SlidingWindow(t *testing.T) {
	clock := testutil.NewFakeClock(epoch)
	g := NewLoopGuard(clock, 3, time.Second)
	result := "same"

	require.NoError(t, g.Allow("r", result))
	clock.Advance(600 * time.Millisecond)
	require.NoError(t, g.Allow("r", result))
	require.NoError(t, g.Allow("r", result))

	// The first selection leaves the window.
	clock.Advance(400 * time.Millisecond)
	assert.Equal(t, 2, g.Count("r", result))
	require.NoError(t, g.Allow("r", result))

	assert.Error(t, g.Allow("r", result))
}

func TestLoopGuard_PairsAreIndependent(t *testing.T) {
	g := NewLoopGuard(testutil.NewFakeClock(epoch), 1, time.Second)

	require.NoError(t, g.Allow("a", "x"))
	require.NoError(t, g.Allow("b", "x"), "other reactor")
	require.NoError(t, g.Allow("a", "y"), "other result")
	assert.Error(t, g.Allow("a", "x"))
}

func TestLoopGuard_ReferenceIdentity(t *testing.T) {
	g := NewLoopGuard(testutil.NewFakeClock(epoch), 1, time.Second)

	require.NoError(t, g.Allow("r", &model.Action{Type: "RESET"}))
	assert.NoError(t, g.Allow("r", &model.Action{Type: "RESET"}),
		"a freshly allocated action is a different result")
}

func TestLoopGuard_Reset(t *testing.T) {
	g := NewLoopGuard(testutil.NewFakeClock(epoch), 1, time.Second)

	require.NoError(t, g.Allow("r", 1))
	g.Reset()
	assert.NoError(t, g.Allow("r", 1))
}

func TestLoopGuard_Defaults(t *testing.T) {
	g := NewLoopGuard(nil, 0, 0)
	assert.Equal(t, DefaultLoopLimit, g.limit)
	assert.Equal(t, DefaultWindow, g.window)
}

func TestLoopGuard_FreshPayloadIsNewResult(t *testing.T) {
	g := NewLoopGuard(testutil.NewFakeClock(epoch), 1, time.Second)

	require.NoError(t, g.Allow("r", model.Action{Type: "SET", Payload: map[string]any{"n": 1}}))
	require.NoError(t, g.Allow("r", model.Action{Type: "SET", Payload: map[string]any{"n": 1}}))

	payload := map[string]any{"n": 1}
	require.NoError(t, g.Allow("r", model.Action{Type: "SET", Payload: payload}))
	assert.Error(t, g.Allow("r", model.Action{Type: "SET", Payload: payload}))
}
