package fingerprint

import "context"

type contextKey struct{}

// WithContext stores a computed fingerprint on the request context.
func WithContext(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, contextKey{}, fingerprint)
}

// FromContext returns the fingerprint stored by Middleware, or "" when the
// request did not pass through it.
func FromContext(ctx context.Context) string {
	fingerprint, _ := ctx.Value(contextKey{}).(string)
	return fingerprint
}
