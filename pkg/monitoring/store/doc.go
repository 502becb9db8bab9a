// Package store provides keyed entries with expiry for transaction
// deduplication and alert grouping.
//
// Three backends are available:
//
//   - Memory: process-local, per-key locking. The default.
//   - SQLite: single-file durable store for one instance.
//   - Redis: shared store for several engine instances.
//
// Every backend makes check-then-insert and read-modify-write atomic per
// key, so two concurrent executions can never both treat the same key as
// new. Expired entries are invisible to readers and are physically removed
// by Purge.
package store
