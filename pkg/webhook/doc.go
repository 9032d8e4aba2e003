// Package webhook verifies the authenticity of inbound billing webhook
// deliveries.
//
// Signatures are HMAC-SHA256 over "timestamp.payload" with a shared secret,
// the scheme used by major billing providers. Verification binds the
// signature to a delivery timestamp so captured requests cannot be replayed
// outside the tolerance window, and compares digests in constant time.
//
// SignPayload exists for tests and local delivery simulation; production
// deliveries are signed by the billing provider.
package webhook
