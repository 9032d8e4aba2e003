// Package pg wires PostgreSQL connectivity for the account record store and
// the webhook event ledger: pooled connections via pgx, schema migrations via
// goose, and error classifiers used by the storage layer to translate
// SQLSTATE codes into domain outcomes (duplicate event, record not found).
package pg
