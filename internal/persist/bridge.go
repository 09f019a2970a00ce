package persist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/engine"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/queue"
)

// BundleName is the name of the persistence bundle.
const BundleName = "localCache"

// Stats counts writer outcomes per slice.
type Stats struct {
	Written int `json:"written"`

	// Skipped slices had the same content as the last write of their key.
	Skipped int `json:"skipped"`

	// Stale writes were rejected by the cache for an old seq.
	Stale int `json:"stale"`

	Failed int `json:"failed"`
}

type slice struct {
	name  string
	value any
}

type snapshot struct {
	actionType string
	slices     []slice
}

// Bridge writes persisted slices to a Cache from a background goroutine.
// A Bridge serves one store.
type Bridge struct {
	cache  Cache
	logger *slog.Logger

	queue   *queue.Queue[snapshot]
	pending sync.WaitGroup
	done    chan struct{}

	// Writer state. Only the writer goroutine touches clock and last.
	clock *engine.Clock
	last  map[string]string

	mu    sync.Mutex
	stats Stats
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. Default: the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// New creates a Bridge writing to cache. The caller keeps ownership of
// cache and closes it after the store is destroyed.
func New(cache Cache, opts ...Option) *Bridge {
	b := &Bridge{
		cache: cache,
		queue: queue.New[snapshot](),
		done:  make(chan struct{}),
		last:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bundle returns the localCache bundle.
func (b *Bridge) Bundle() bundle.Spec {
	return bundle.Spec{
		Name:       BundleName,
		Priority:   bundle.PriorityHighest,
		Init:       b.init,
		Middleware: b.middleware,
	}
}

// Stats returns the writer counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Wait blocks until every queued snapshot has been written.
func (b *Bridge) Wait() {
	b.pending.Wait()
}

func (b *Bridge) middleware(*bundle.Chunk) func(bundle.Store) bundle.Middleware {
	return func(store bundle.Store) bundle.Middleware {
		return func(next model.Dispatch) model.Dispatch {
			return func(action any) (any, error) {
				result, err := next(action)
				if err != nil {
					return result, err
				}
				a, ok := model.AsAction(action)
				if !ok {
					return result, nil
				}
				b.capture(store, a)
				return result, nil
			}
		}
	}
}

// capture snapshots the slices persisted after a, including the triggers of
// batched sub-actions.
func (b *Bridge) capture(store bundle.Store, a model.Action) {
	triggers := store.PersistenceMap()
	if len(triggers) == 0 {
		return
	}

	seen := make(map[string]bool)
	var names []string
	var collect func(model.Action)
	collect = func(a model.Action) {
		for _, name := range triggers[a.Type] {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		if a.Type == model.ActionBatch {
			for _, sub := range a.Actions {
				collect(sub)
			}
		}
	}
	collect(a)
	if len(names) == 0 {
		return
	}

	state := store.GetState()
	snap := snapshot{actionType: a.Type, slices: make([]slice, 0, len(names))}
	for _, name := range names {
		snap.slices = append(snap.slices, slice{name: name, value: state[name]})
	}

	b.pending.Add(1)
	if !b.queue.Push(snap) {
		b.pending.Done()
		b.log().Warn("persistence snapshot dropped: writer stopped", "action_type", a.Type)
	}
}

func (b *Bridge) init(store bundle.Store) (func(), error) {
	if b.logger == nil {
		b.logger = store.Logger()
	}

	ctx := context.Background()
	seq, err := b.cache.MaxSeq(ctx)
	if err != nil {
		b.logger.Warn("read cache seq, starting from zero", "error", err)
		seq = 0
	}
	b.clock = engine.NewClockAt(seq)

	go b.run(ctx)

	return func() {
		b.queue.Close()
		<-b.done
	}, nil
}

// run is the writer loop. It exits once the queue is closed and drained.
func (b *Bridge) run(ctx context.Context) {
	defer close(b.done)

	for {
		if snap, ok := b.queue.TryPop(); ok {
			b.write(ctx, snap)
			b.pending.Done()
			continue
		}
		if b.queue.Closed() {
			return
		}
		<-b.queue.Wait()
	}
}

func (b *Bridge) write(ctx context.Context, snap snapshot) {
	for _, s := range snap.slices {
		data, hash, err := model.SliceHash(s.value)
		if err != nil {
			b.logger.Warn("encode slice", "slice", s.name, "action_type", snap.actionType, "error", err)
			b.count(func(st *Stats) { st.Failed++ })
			continue
		}
		if b.last[s.name] == hash {
			b.count(func(st *Stats) { st.Skipped++ })
			continue
		}

		seq := b.clock.Next()
		written, err := b.cache.Set(ctx, s.name, data, seq)
		switch {
		case err != nil:
			b.logger.Warn("write slice", "slice", s.name, "seq", seq, "error", err)
			b.count(func(st *Stats) { st.Failed++ })
		case !written:
			b.logger.Debug("stale slice write", "slice", s.name, "seq", seq)
			b.count(func(st *Stats) { st.Stale++ })
		default:
			b.last[s.name] = hash
			b.count(func(st *Stats) { st.Written++ })
		}
	}
}

func (b *Bridge) count(fn func(*Stats)) {
	b.mu.Lock()
	fn(&b.stats)
	b.mu.Unlock()
}

func (b *Bridge) log() *slog.Logger {
	if b.logger == nil {
		return slog.Default()
	}
	return b.logger
}
