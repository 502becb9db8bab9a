// Package screening implements AML list screening: a normalized Levenshtein
// similarity, a Provider contract for external list-matching services, an
// HTTP provider for match APIs, and a built-in demonstration list used when
// the provider is unavailable.
//
// A Screener asks the provider first. On any provider failure, including
// missing credentials, it falls back to the demonstration list and marks the
// result as degraded. Matches scoring below the configured threshold are
// discarded before a hit is reported.
package screening
