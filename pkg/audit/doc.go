// Package audit defines the execution audit trail: the event record emitted by
// the interpreter for every step, the storage contract used to append and
// query those events, and the errors shared by the storage backends.
//
// Subpackages provide the concrete pieces:
//
//	storage   - memory and SQLite stores
//	export    - JSON and CSV exporters
//	retention - age/count based pruning on a cron schedule
package audit
