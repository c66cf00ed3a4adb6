// Package storage provides the BBolt index of files protected by lockmark.
//
// Database structure uses two buckets:
//   - config: format version and timestamps
//   - index: one JSON entry per protected file (kind, hint, marker count,
//     size, modification time, content hash)
//
// The index never stores passwords or plaintext. Envelopes and markers
// live in the files themselves; the index only lets lockmark status and
// lockmark hint work without a password.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
