package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/bundlecore/internal/model"
)

// Decoder turns a stored slice back into its state value.
type Decoder func(data []byte) (any, error)

type hydrateConfig struct {
	decoders map[string]Decoder
}

// HydrateOption configures Hydrate.
type HydrateOption func(*hydrateConfig)

// WithDecoder decodes the slice name with fn instead of json.Unmarshal.
func WithDecoder(name string, fn Decoder) HydrateOption {
	return func(c *hydrateConfig) {
		c.decoders[name] = fn
	}
}

// Hydrate reads the named slices from cache into a State suitable for
// preloading a store. Every stored key is read when names is empty. Names
// without an entry are left out.
//
// The default decoder produces json.Unmarshal's generic values, so numbers
// come back as float64.
func Hydrate(ctx context.Context, cache Cache, names []string, opts ...HydrateOption) (model.State, error) {
	cfg := hydrateConfig{decoders: make(map[string]Decoder)}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(names) == 0 {
		keys, err := cache.Keys(ctx)
		if err != nil {
			return nil, fmt.Errorf("hydrate: list keys: %w", err)
		}
		names = keys
	}

	state := make(model.State, len(names))
	for _, name := range names {
		entry, ok, err := cache.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("hydrate %q: %w", name, err)
		}
		if !ok {
			continue
		}

		decode := cfg.decoders[name]
		if decode == nil {
			decode = decodeJSON
		}
		v, err := decode(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("hydrate %q: decode: %w", name, err)
		}
		state[name] = v
	}
	return state, nil
}

func decodeJSON(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
