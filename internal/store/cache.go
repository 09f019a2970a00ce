package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/persist"
)

var _ persist.Cache = (*Store)(nil)

// Set upserts a slice. The row is only replaced when seq is greater than
// the stored seq; otherwise written is false.
func (s *Store) Set(ctx context.Context, key string, value []byte, seq int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO slices (key, value, seq, hash, writer, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			seq = excluded.seq,
			hash = excluded.hash,
			writer = excluded.writer,
			updated_at = excluded.updated_at
		WHERE excluded.seq > slices.seq
	`,
		key,
		value,
		seq,
		model.ContentHash(model.DomainSlice, value),
		s.writer,
		s.now().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("set slice %q: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set slice %q: rows affected: %w", key, err)
	}
	return n > 0, nil
}

// Get returns the stored slice for key.
func (s *Store) Get(ctx context.Context, key string) (persist.Entry, bool, error) {
	var e persist.Entry
	err := s.db.QueryRowContext(ctx, `
		SELECT value, seq, hash FROM slices WHERE key = ?
	`, key).Scan(&e.Value, &e.Seq, &e.Hash)
	if errors.Is(err, sql.ErrNoRows) {
		return persist.Entry{}, false, nil
	}
	if err != nil {
		return persist.Entry{}, false, fmt.Errorf("get slice %q: %w", key, err)
	}
	return e, true, nil
}

// Keys returns every stored key in binary order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM slices ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

// MaxSeq returns the highest stored seq, or 0 for an empty table.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM slices`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slices WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete slice %q: %w", key, err)
	}
	return nil
}

// Row is a stored slice with its bookkeeping columns.
type Row struct {
	Key       string `json:"key"`
	Seq       int64  `json:"seq"`
	Hash      string `json:"hash"`
	Writer    string `json:"writer"`
	UpdatedAt int64  `json:"updated_at"`
	Size      int    `json:"size"`
}

// Rows lists every slice ordered by seq, for inspection.
func (s *Store) Rows(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, seq, hash, writer, updated_at, length(value)
		FROM slices
		ORDER BY seq ASC, key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Key, &r.Seq, &r.Hash, &r.Writer, &r.UpdatedAt, &r.Size); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
