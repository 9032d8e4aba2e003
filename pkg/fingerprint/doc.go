// Package fingerprint derives a stable device fingerprint from HTTP request
// characteristics.
//
// The fingerprint is a 32-character hex digest over the User-Agent, Accept
// headers, normalized client IP, and the set of stable headers present. It
// identifies a device well enough to correlate repeat trial signups without
// storing any raw request data.
//
// Middleware computes the fingerprint once per request and stores it in the
// request context; the abuse scorer reads it from there.
package fingerprint
