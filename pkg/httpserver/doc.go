// Package httpserver runs the HTTP surface (webhook ingestion, entitlement
// checks, health probes) with graceful shutdown. Billing providers retry on
// non-2xx responses, so a clean drain on SIGTERM prevents spurious retries
// during deploys.
package httpserver
