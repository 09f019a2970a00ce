package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/bundlecore/internal/boltstore"
	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/config"
	"github.com/roach88/bundlecore/internal/debug"
	"github.com/roach88/bundlecore/internal/engine"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/modules"
	"github.com/roach88/bundlecore/internal/persist"
	"github.com/roach88/bundlecore/internal/reactor"
	"github.com/roach88/bundlecore/internal/store"
)

// openCache opens the configured persistence cache. An empty backend is
// the in-memory cache.
func openCache(cfg config.CacheConfig) (persist.Cache, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return persist.NewMemoryCache(), nil
	case config.BackendSQLite:
		return store.Open(cfg.Path)
	case config.BackendBolt:
		return boltstore.Open(cfg.Path)
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}

// runtime is a composed store with the stock bundles attached.
type runtime struct {
	store  *engine.Store
	sched  *reactor.Scheduler
	bridge *persist.Bridge
	cache  persist.Cache
}

// compose hydrates persisted slices from the configured cache and builds a
// store from specs plus the scheduler, persistence, debug and stock bundles.
func compose(ctx context.Context, cfg config.Config, specs []bundle.Spec, logger *slog.Logger) (*runtime, error) {
	cache, err := openCache(cfg.Cache)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open cache", err)
	}

	var persisted []string
	for _, s := range specs {
		if len(s.Persist) > 0 {
			persisted = append(persisted, s.Name)
		}
	}
	var initial model.State
	if len(persisted) > 0 {
		initial, err = persist.Hydrate(ctx, cache, persisted)
		if err != nil {
			_ = cache.Close()
			return nil, WrapExitError(ExitCommandError, "failed to hydrate state", err)
		}
		logger.Debug("hydrated state", "slices", len(initial))
	}

	rt := &runtime{cache: cache}
	rt.sched = reactor.New(
		reactor.WithLoopLimit(cfg.Reactor.LoopLimit),
		reactor.WithWindow(cfg.Reactor.Window),
		reactor.WithIdleDispatch(cfg.Reactor.IdleAfter),
	)
	rt.bridge = persist.New(cache)
	dbg := debug.New(debug.WithScheduler(rt.sched), debug.WithLogger(logger))

	all := append([]bundle.Spec{
		rt.bridge.Bundle(),
		rt.sched.Bundle(),
		dbg.Bundle(),
		modules.AsyncCount(),
	}, specs...)

	st, err := engine.New(initial, all, engine.WithLogger(logger))
	if err != nil {
		_ = cache.Close()
		return nil, WrapExitError(ExitCommandError, "failed to compose store", err)
	}
	rt.store = st
	return rt, nil
}

// Close destroys the store, which drains pending writes, then closes the
// cache.
func (rt *runtime) Close() error {
	rt.store.Destroy()
	return rt.cache.Close()
}
