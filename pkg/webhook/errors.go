package webhook

import "errors"

var (
	ErrInvalidConfiguration = errors.New("invalid webhook configuration")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrMissingSignature     = errors.New("missing webhook signature")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrStaleTimestamp       = errors.New("webhook timestamp outside tolerance")
)

// IsVerificationError reports whether err means the delivery must be rejected
// as unauthenticated rather than retried.
func IsVerificationError(err error) bool {
	return errors.Is(err, ErrMissingSignature) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrStaleTimestamp)
}
