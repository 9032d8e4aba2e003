package fingerprint

import "net/http"

// Middleware computes the caller's device fingerprint once per request and
// stores it on the context for downstream handlers. Enrollment feeds it to
// the trial abuse scorer.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithContext(r.Context(), Generate(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
