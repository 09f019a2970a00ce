// Package boltstore is a persist.Cache backed by a bbolt file.
//
// Bucket slices maps a slice name to its canonical JSON. Bucket meta maps
// the same name to the write's seq (8 bytes, big endian) followed by the
// content hash.
package boltstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/persist"
)

const (
	bucketSlices = "slices"
	bucketMeta   = "meta"
)

var _ persist.Cache = (*Store)(nil)

// Store is a persist.Cache in a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path and its buckets.
// Another process holding the file makes Open fail after one second.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketSlices, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Set(_ context.Context, key string, value []byte, seq int64) (bool, error) {
	written := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(bucketMeta))
		if cur, _, ok := decodeMeta(meta.Get([]byte(key))); ok && seq <= cur {
			return nil
		}

		if err := tx.Bucket([]byte(bucketSlices)).Put([]byte(key), value); err != nil {
			return err
		}
		hash := model.ContentHash(model.DomainSlice, value)
		if err := meta.Put([]byte(key), encodeMeta(seq, hash)); err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("set slice %q: %w", key, err)
	}
	return written, nil
}

func (s *Store) Get(_ context.Context, key string) (persist.Entry, bool, error) {
	var (
		e  persist.Entry
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketSlices)).Get([]byte(key))
		if v == nil {
			return nil
		}
		seq, hash, valid := decodeMeta(tx.Bucket([]byte(bucketMeta)).Get([]byte(key)))
		if !valid {
			return fmt.Errorf("missing or corrupt meta for %q", key)
		}
		// Values are only valid for the life of the transaction.
		e = persist.Entry{Value: append([]byte(nil), v...), Seq: seq, Hash: hash}
		ok = true
		return nil
	})
	if err != nil {
		return persist.Entry{}, false, fmt.Errorf("get slice %q: %w", key, err)
	}
	return e, ok, nil
}

// Keys returns every key in byte order.
func (s *Store) Keys(context.Context) ([]string, error) {
	keys := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSlices)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

func (s *Store) MaxSeq(context.Context) (int64, error) {
	var max int64
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketMeta)).ForEach(func(_, v []byte) error {
			if seq, _, ok := decodeMeta(v); ok && seq > max {
				max = seq
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return max, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(bucketSlices)).Delete([]byte(key)); err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketMeta)).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete slice %q: %w", key, err)
	}
	return nil
}

func encodeMeta(seq int64, hash string) []byte {
	b := make([]byte, 8, 8+len(hash))
	binary.BigEndian.PutUint64(b, uint64(seq))
	return append(b, hash...)
}

func decodeMeta(b []byte) (seq int64, hash string, ok bool) {
	if len(b) < 8 {
		return 0, "", false
	}
	return int64(binary.BigEndian.Uint64(b[:8])), string(b[8:]), true
}
