// Package storage provides audit.Store implementations.
//
// MemoryStore keeps events in process and is the default for tests and
// single-shot CLI runs. SQLiteStore persists events to a SQLite database
// (github.com/mattn/go-sqlite3) with WAL mode and a versioned schema.
package storage
