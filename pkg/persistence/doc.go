// Package persistence stores workflow definitions and execution records.
//
// Two Repository implementations are provided: MemoryRepository for tests
// and single-process use, and PostgresRepository built on GORM. Both report
// missing records as ErrNotFound and duplicate ids as ErrConflict.
package persistence
