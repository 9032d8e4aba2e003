package subscription

// Status represents the canonical subscription state of an account.
// It is mutated only through ApplyEvent and the admin path; request handlers
// never infer status ad hoc.
type Status string

const (
	StatusTrial    Status = "trial"
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusPastDue  Status = "past_due"
	StatusExpired  Status = "expired"
	StatusAdmin    Status = "admin"
)

// Reason explains an access verdict so callers can route the user to the
// correct remediation instead of showing a generic error.
type Reason string

const (
	ReasonAdmin                Reason = "admin"
	ReasonActive               Reason = "active"
	ReasonTrialActive          Reason = "trial_active"
	ReasonPaymentRetry         Reason = "payment_retry"
	ReasonTrialExpired         Reason = "trial_expired"
	ReasonSubscriptionRequired Reason = "subscription_required"
	ReasonSubscriptionEnded    Reason = "subscription_ended"
	ReasonCorruptState         Reason = "corrupt_state"
	ReasonUnavailable          Reason = "service_unavailable"
)
