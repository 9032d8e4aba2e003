package subscription

import "errors"

var (
	// Validation: malformed or unverifiable input, reject without retry.
	ErrInvalidEvent      = errors.New("invalid billing event")
	ErrUnknownEventType  = errors.New("unknown billing event type")
	ErrMissingAccountRef = errors.New("billing event has no account reference")

	// Conflict: duplicate or concurrent work, resolved idempotently.
	ErrAccountExists   = errors.New("account subscription already exists")
	ErrVersionConflict = errors.New("account subscription version conflict")

	// Not found is distinct from transient failure: it never triggers the
	// grace-period fallback.
	ErrAccountNotFound = errors.New("account subscription not found")
	ErrEventNotFound   = errors.New("webhook event record not found")

	// Transient infrastructure failure, retryable; triggers the grace-period
	// fallback on the read path.
	ErrStoreUnavailable = errors.New("account store unavailable")

	// Corrupt state: an invariant is violated, access fails closed and the
	// record is surfaced for manual review.
	ErrCorruptState = errors.New("account subscription state is corrupt")

	ErrTrialBlocked = errors.New("new trial blocked by abuse risk score")
)
