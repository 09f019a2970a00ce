package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/container"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/queue"
	"github.com/roach88/bundlecore/internal/selector"
)

var _ bundle.Store = (*Store)(nil)

// Store is a running composed store.
type Store struct {
	id       string
	logger   *slog.Logger
	devTools bundle.Middleware
	idGen    IDGenerator
	clock    *Clock

	container *container.Container
	dispatch  model.Dispatch

	mu        sync.RWMutex
	meta      *metadata
	teardowns []func()

	subs *subscriptions
	idle *queue.Queue[func() error]

	destroyOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The store ID is attached to every line.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDevTools installs a developer-tooling middleware closest to the
// reducers, so it observes every plain action that is reduced.
func WithDevTools(mw bundle.Middleware) Option {
	return func(s *Store) {
		s.devTools = mw
	}
}

// WithIDGenerator overrides store ID generation.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.idGen = g
		}
	}
}

// Factory builds a store from a preloaded state.
type Factory func(initial model.State, opts ...Option) (*Store, error)

// Compose returns a Factory for specs.
func Compose(specs ...bundle.Spec) Factory {
	specs = slices.Clone(specs)
	return func(initial model.State, opts ...Option) (*Store, error) {
		return New(initial, specs, opts...)
	}
}

// New builds and initializes a store from specs.
//
// Init hooks run last, in chunk order. If one fails, the teardowns of the
// hooks that already ran are invoked and the error is returned.
func New(initial model.State, specs []bundle.Spec, opts ...Option) (*Store, error) {
	descriptors, err := normalize(specs)
	if err != nil {
		return nil, err
	}
	chunk := bundle.NewChunk(descriptors)

	s := &Store{
		logger: slog.Default(),
		idGen:  UUIDv7Generator{},
		clock:  NewClock(),
		meta:   newMetadata(),
		subs:   newSubscriptions(),
		idle:   queue.New[func() error](),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.id = s.idGen.Generate()
	s.logger = s.logger.With("store_id", s.id)
	s.dispatch = func(any) (any, error) {
		return nil, newError(CodeInvalidAction, "", "dispatch called before the store finished building")
	}

	meta, err := s.meta.with(chunk)
	if err != nil {
		return nil, err
	}
	s.meta = meta

	c, err := container.New(rootReducer(meta.chunks), initial)
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}
	s.container = c

	extra := extraArgs(s, chunk.ArgProviders())
	stages := []bundle.Middleware{thunkStage(s.Dispatch, extra)}
	for _, factory := range chunk.Middleware() {
		if bind := factory(chunk); bind != nil {
			stages = append(stages, bind(s))
		}
	}
	var base model.Dispatch = s.reduce
	if s.devTools != nil {
		base = s.devTools(base)
	}
	s.dispatch = chain(base, stages...)

	c.Subscribe(s.notify)

	if err := s.runInits(chunk); err != nil {
		s.Destroy()
		return nil, err
	}

	s.logger.Debug("store created",
		"bundles", chunk.BundleNames(),
		"selectors", len(meta.selectors),
		"reactors", len(meta.reactorNames),
	)
	return s, nil
}

// normalize normalizes specs and rejects duplicate names.
func normalize(specs []bundle.Spec) ([]bundle.Descriptor, error) {
	seen := make(map[string]bool, len(specs))
	out := make([]bundle.Descriptor, 0, len(specs))
	for _, spec := range specs {
		if seen[spec.Name] {
			return nil, newError(CodeDuplicateBundle, spec.Name,
				"bundle %q is composed more than once", spec.Name)
		}
		seen[spec.Name] = true
		out = append(out, bundle.Normalize(spec))
	}
	return out, nil
}

// runInits runs the init hooks of chunk and records their teardowns.
func (s *Store) runInits(chunk *bundle.Chunk) error {
	for _, d := range chunk.Descriptors() {
		if d.Init == nil {
			continue
		}
		teardown, err := d.Init(s)
		if err != nil {
			return fmt.Errorf("init bundle %q: %w", d.Name, err)
		}
		if teardown != nil {
			s.mu.Lock()
			s.teardowns = append(s.teardowns, teardown)
			s.mu.Unlock()
		}
	}
	return nil
}

// reduce is the innermost dispatch stage.
func (s *Store) reduce(action any) (any, error) {
	a, ok := model.AsAction(action)
	if !ok {
		return nil, newError(CodeInvalidAction, "",
			"cannot dispatch %T: expected an action or a thunk", action)
	}
	if a.Type == "" {
		return nil, newError(CodeInvalidAction, "", "action type must not be empty")
	}

	seq := s.clock.Next()
	s.logger.Debug("reducing action", "action_type", a.Type, "seq", seq)
	return s.container.Dispatch(a)
}

func (s *Store) metadata() *metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// ID returns the store ID.
func (s *Store) ID() string {
	return s.id
}

// Logger returns the store logger.
func (s *Store) Logger() *slog.Logger {
	return s.logger
}

// Seq returns how many actions have been reduced so far.
func (s *Store) Seq() int64 {
	return s.clock.Current()
}

// GetState returns the current state snapshot.
func (s *Store) GetState() model.State {
	return s.container.GetState()
}

// Dispatch sends action through the middleware chain.
func (s *Store) Dispatch(action any) (any, error) {
	return s.dispatch(action)
}

// Subscribe registers a raw listener that runs after every reduced dispatch.
func (s *Store) Subscribe(fn model.Listener) func() {
	return s.container.Subscribe(fn)
}

// Action dispatches what the named action creator returns.
func (s *Store) Action(name string, args ...any) (any, error) {
	creator, ok := s.metadata().actions.Lookup(name)
	if !ok {
		return nil, actionNotFound(name)
	}
	return s.Dispatch(creator(args...))
}

// Select evaluates the named selectors against the current state. Results
// are keyed by value name: "selectCount" is delivered as "count".
func (s *Store) Select(names ...string) (map[string]any, error) {
	return selectFrom(s.GetState(), s.metadata().selectors, names)
}

// SelectAll evaluates every registered selector. Parameterized selectors
// are called with no params, as are those watched by an All subscription,
// so they must tolerate an empty params list.
func (s *Store) SelectAll() (map[string]any, error) {
	meta := s.metadata()
	return selectFrom(s.GetState(), meta.selectors, meta.selectorNames())
}

// Selector evaluates one selector by base name.
func (s *Store) Selector(name string, params ...string) (any, error) {
	fn, ok := s.metadata().selectors[name]
	if !ok {
		return nil, selectorNotFound(name)
	}
	return fn(s.GetState(), params...), nil
}

func selectFrom(state model.State, selectors map[string]selector.Func, names []string) (map[string]any, error) {
	out := make(map[string]any, len(names))
	for _, full := range names {
		name, params := selector.ParseName(full)
		fn, ok := selectors[name]
		if !ok {
			return nil, selectorNotFound(name)
		}
		out[selector.ValueName(full)] = fn(state, params...)
	}
	return out, nil
}

// ReactorNames returns reactor names in registration order.
func (s *Store) ReactorNames() []string {
	return slices.Clone(s.metadata().reactorNames)
}

// React evaluates the named reactor against the current state.
func (s *Store) React(name string) (any, error) {
	fn, ok := s.metadata().reactors[name]
	if !ok {
		return nil, reactorNotFound(name)
	}
	return fn(s.GetState()), nil
}

// PersistenceMap returns action type -> slices to persist after it.
func (s *Store) PersistenceMap() map[string][]string {
	return copyPersistence(s.metadata().persistence)
}

// Inventory describes what the store is composed of.
func (s *Store) Inventory() bundle.Inventory {
	meta := s.metadata()

	reactors := make(map[string]bool, len(meta.reactorNames))
	for _, name := range meta.reactorNames {
		reactors[name] = true
	}

	return bundle.Inventory{
		ID:          s.id,
		Bundles:     sortedKeys(meta.bundleNames()),
		Selectors:   meta.selectorNames(),
		Actions:     meta.actions.Names(),
		Reactors:    sortedKeys(reactors),
		Persistence: copyPersistence(meta.persistence),
		Chunks:      len(meta.chunks),
	}
}

// Destroy runs every teardown once, in registration order, and stops the
// idle queue. Later calls do nothing.
func (s *Store) Destroy() {
	s.destroyOnce.Do(func() {
		s.mu.Lock()
		teardowns := s.teardowns
		s.teardowns = nil
		s.mu.Unlock()

		for _, td := range teardowns {
			td()
		}
		s.idle.Close()
		s.logger.Debug("store destroyed", "teardowns", len(teardowns))
	})
}
