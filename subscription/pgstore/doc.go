// Package pgstore provides the Postgres implementations of the subscription
// persistence interfaces: the account store with version compare-and-swap
// writes, the webhook event ledger whose unique event constraint collapses
// duplicate deliveries, and the transition log feeding the abuse scorer.
//
// Schema lives in the migrations directory and is applied with goose at
// startup.
package pgstore
