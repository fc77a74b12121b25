// Package store provides durable storage for encoded records.
//
// A record is one saved object: its class, the version it was written at,
// and the record file produced by object.SaveRecord. Three backends
// implement Store:
//   - sqlite: a single table in a SQLite database (mattn/go-sqlite3)
//   - bolt: one bucket in a bbolt file, compact and single-file
//   - badger: prefixed keys in a BadgerDB directory, for large stores
//
// # Payloads
//
//   - Payloads are zstd-compressed at rest and decompressed on read.
//   - Record IDs are UUIDs. Put assigns one when the ID is zero.
//   - List returns records ordered by ID so batch runs are repeatable.
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - user_version tracks schema migrations
package store
