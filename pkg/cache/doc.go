// Package cache provides a generic in-memory LRU cache.
//
// The access gate keeps its last-known-good verdicts here: when the account
// store is unreachable, the most recent grant (bounded by its paid-period
// end) decides whether a request may proceed. Bounded capacity keeps memory
// predictable under high account cardinality.
package cache
