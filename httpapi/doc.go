// Package httpapi exposes the subscription core over HTTP: the billing
// provider webhook endpoint, the trial enrollment endpoint, the status and
// verify endpoints, and the RequireSubscription middleware that product
// services put in front of gated routes.
//
// The webhook endpoint acknowledges with 2xx only after durable acceptance.
// Access denials are structured JSON with a machine-readable reason so the
// caller can redirect to an upgrade path instead of showing an error page.
package httpapi
