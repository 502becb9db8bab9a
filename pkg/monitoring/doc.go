// Package monitoring implements the transaction monitoring pipeline.
//
// The pipeline has five independent stages:
//
//	Validate     schema, enum, range and timestamp checks
//	Normalize    conversion into a base currency
//	Deduplicator keyed duplicate detection with expiry
//	Evaluate     per-customer windowed scenario rules
//	Alerter      grouping of rule hits into alerts
//
// Every stage accepts an empty list and returns new annotated copies of its
// input; callers' slices are never modified in place.
package monitoring
