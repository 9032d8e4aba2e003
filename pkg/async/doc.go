// Package async provides future-based fire-and-forget execution.
//
// The subscription notifier uses it to send transition emails without
// blocking the webhook critical section: a failed email never rolls back or
// delays a persisted state change.
package async
