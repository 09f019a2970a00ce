// Package persist snapshots selected state slices to a durable cache and
// reads them back as preloaded state.
//
// The localCache bundle watches dispatched action types. After an action
// named in a bundle's Persist list has been reduced, the affected slices are
// handed to a background writer. Dispatch never waits for the cache and
// never sees its errors.
package persist

import (
	"context"
	"errors"
)

// ErrClosed is returned by a cache that has been closed.
var ErrClosed = errors.New("persist: cache closed")

// Entry is a stored slice.
type Entry struct {
	// Value is the canonical JSON encoding of the slice.
	Value []byte

	// Seq is the logical sequence number of the write.
	Seq int64

	// Hash is the content hash of Value.
	Hash string
}

// Cache is durable slice storage keyed by slice name.
//
// Writes are ordered by seq. A Set whose seq is not greater than the
// stored entry's seq leaves the entry alone and reports written=false.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, seq int64) (written bool, err error)
	Get(ctx context.Context, key string) (Entry, bool, error)
	Keys(ctx context.Context) ([]string, error)

	// MaxSeq returns the highest seq stored, or 0 when empty.
	MaxSeq(ctx context.Context) (int64, error)

	Delete(ctx context.Context, key string) error
	Close() error
}
