package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/compiler"
	"github.com/roach88/bundlecore/internal/engine"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/persist"
	"github.com/roach88/bundlecore/internal/reactor"
	"github.com/roach88/bundlecore/internal/testutil"
)

// StoreID is the fixed ID of every scenario store.
const StoreID = "scenario-store"

// Epoch is the fake clock's starting time.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Option configures a run.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	scheduler []reactor.Option
}

// WithLogger sets the logger for the store and its bundles.
// Default: logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSchedulerOptions adds reactor scheduler options. The fake clock is
// always applied first.
func WithSchedulerOptions(opts ...reactor.Option) Option {
	return func(c *config) {
		c.scheduler = append(c.scheduler, opts...)
	}
}

// Harness executes one scenario.
type Harness struct {
	store  *engine.Store
	clock  *testutil.FakeClock
	sched  *reactor.Scheduler
	bridge *persist.Bridge
	cache  *persist.MemoryCache
	result *Result
	seq    int64
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load and validate the scenario's bundle declarations
//  2. Compose them with a reactor scheduler and a persistence bridge
//  3. Execute steps in order, recording step errors
//  4. Drain the persistence writer and destroy the store
//  5. Evaluate assertions
//
// Errors are returned only when the scenario cannot be set up. Step
// failures and assertion failures are reported on the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	decls, err := compiler.LoadDir(scenario.Bundles)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundles: %w", err)
	}
	if verrs := compiler.Validate(decls); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return nil, fmt.Errorf("invalid bundles: %w", errors.Join(errs...))
	}

	h := &Harness{
		clock:  testutil.NewFakeClock(Epoch),
		cache:  persist.NewMemoryCache(),
		result: NewResult(),
	}
	h.sched = reactor.New(append([]reactor.Option{reactor.WithClock(h.clock)}, cfg.scheduler...)...)
	h.bridge = persist.New(h.cache)

	specs := append([]bundle.Spec{h.bridge.Bundle(), h.sched.Bundle()}, compiler.Specs(decls)...)
	st, err := engine.New(model.State(scenario.Initial), specs,
		engine.WithLogger(cfg.logger),
		engine.WithIDGenerator(engine.NewFixedGenerator(StoreID)),
		engine.WithDevTools(h.trace),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	h.store = st
	st.SubscribeToAll(h.notified)

	for i, step := range scenario.Steps {
		if err := h.execute(step); err != nil {
			msg := fmt.Sprintf("steps[%d]: %v", i, err)
			h.result.StepErrors = append(h.result.StepErrors, msg)
			h.result.Trace = append(h.result.Trace, TraceEvent{Type: EventError, Seq: h.seq, Message: err.Error()})
		}
	}

	h.bridge.Wait()
	if err := h.snapshot(); err != nil {
		st.Destroy()
		return nil, err
	}

	EvaluateAssertions(h.result, scenario.Assertions, &AssertionContext{Store: st})
	st.Destroy()
	return h.result, nil
}

func (h *Harness) execute(step Step) error {
	switch {
	case step.Dispatch != nil:
		_, err := h.store.Dispatch(step.Dispatch.action())
		return err
	case step.Action != "":
		_, err := h.store.Action(step.Action, step.Args...)
		return err
	case step.Batch != nil:
		actions := make([]model.Action, len(step.Batch))
		for i, a := range step.Batch {
			actions[i] = a.action()
		}
		_, err := h.store.Dispatch(model.Batch(actions...))
		return err
	case step.Flush:
		return h.store.Flush()
	}
	return fmt.Errorf("empty step")
}

func (a ActionValue) action() model.Action {
	return model.Action{Type: a.Type, Payload: a.Payload}
}

// trace is the devtools stage. It sees every action right before it is
// reduced.
func (h *Harness) trace(next model.Dispatch) model.Dispatch {
	return func(action any) (any, error) {
		if a, ok := model.AsAction(action); ok && a.Type != "" {
			h.seq++
			ev := TraceEvent{Type: EventAction, Seq: h.seq, ActionType: a.Type}
			for _, sub := range a.Actions {
				ev.Batch = append(ev.Batch, sub.Type)
			}
			h.result.Trace = append(h.result.Trace, ev)
		}
		return next(action)
	}
}

func (h *Harness) notified(changed map[string]any) {
	values := make(map[string]any, len(changed))
	for k, v := range changed {
		values[k] = v
	}
	h.result.Trace = append(h.result.Trace, TraceEvent{Type: EventNotify, Seq: h.seq, Changed: values})
}

// snapshot records the final state and the cache contents.
func (h *Harness) snapshot() error {
	for k, v := range h.store.GetState() {
		h.result.State[k] = v
	}

	ctx := context.Background()
	keys, err := h.cache.Keys(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}
	sort.Strings(keys)
	for _, key := range keys {
		entry, ok, err := h.cache.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read cache key %q: %w", key, err)
		}
		if ok {
			h.result.Persisted[key] = PersistedSlice{Seq: entry.Seq, Value: entry.Value}
		}
	}
	return nil
}
