// Package subscription is the access-control core for a gated product: it
// maintains one authoritative subscription record per account, absorbs the
// billing provider's webhook stream, and answers the per-request question
// "may this account use the product right now".
//
// # Architecture
//
// Decide is the single source of truth for access verdicts. It is a pure
// function over an account record and the current time; no other component
// compares statuses ad hoc. ApplyEvent, equally pure, computes the next
// account state for a billing event.
//
// Processor drives ApplyEvent from webhook deliveries. Authenticity comes
// from an HMAC signature check, at-most-once effective application from the
// EventLedger's unique event constraint, and per-customer serialization from
// the keyed lock. Deliveries for different customers proceed in parallel;
// deliveries for one customer apply strictly one at a time.
//
// Gate serves the request path. Reads are lock-free and bounded by a short
// timeout; a store outage falls back to the last cached grant, bounded by
// the paid-period end, so an infrastructure incident cannot lock paying
// customers out while never granting access to an account that was never
// entitled.
//
// Enrollment creates trial accounts, advised by ScoreRisk, which flags
// cancel/reactivate cycling and shared payment fingerprints. The scorer
// only gates new trials; it never revokes a paid entitlement.
//
// Admin is the operator mutation path and takes the same per-customer lock
// as the processor. Reconciler re-opens ledger records stuck in processing
// after a worker crash.
//
// Memory-backed implementations of the store, ledger, and transition log
// support tests and local development; production wiring lives in the
// pgstore and redisstore subpackages.
package subscription
