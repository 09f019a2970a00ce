// Package store is the SQLite-backed persistence cache.
//
// Every persisted slice is one row in the slices table:
//   - key: the slice name
//   - value: canonical JSON of the slice
//   - seq: logical sequence number of the write
//   - hash: content hash of value
//   - writer: ID of the Store instance that wrote the row
//
// Writes are ordered by seq, never by timestamp. An upsert only replaces
// a row when its seq is greater than the stored one, so a delayed writer
// can never roll a slice back.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//   - One open connection
package store
