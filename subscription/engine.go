package subscription

import (
	"fmt"
	"time"
)

// Verdict is the outcome of an access decision. Denial is a normal value,
// never an error. RetryAfter is set only on degraded-mode denials where the
// caller should retry rather than redirect to an upgrade path.
type Verdict struct {
	Allowed    bool          `json:"allowed"`
	Status     Status        `json:"status"`
	Reason     Reason        `json:"reason"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Decide computes the canonical access verdict for an account at a point in
// time. It is the single source of truth for the access policy; no other
// component re-implements it. Policy, evaluated in order:
//
//  1. Admin accounts are always granted.
//  2. Active subscriptions are granted.
//  3. Past-due subscriptions keep access until the paid period ends
//     (the provider's payment retry window).
//  4. Canceled subscriptions are granted only while the subscription object
//     still exists at the provider and the paid period has not ended. The
//     identifier check matters because a canceled subscription can be
//     deleted early; absence of the id overrides the date.
//  5. Trials are granted until trial_end. A trial record without trial_end
//     is corrupt data and is denied, never granted.
//  6. Everything else is denied.
func Decide(acct AccountSubscription, now time.Time) Verdict {
	if acct.IsAdmin || acct.Status == StatusAdmin {
		return Verdict{Allowed: true, Status: acct.Status, Reason: ReasonAdmin}
	}

	switch acct.Status {
	case StatusActive:
		return Verdict{Allowed: true, Status: StatusActive, Reason: ReasonActive}

	case StatusPastDue:
		if acct.SubscriptionEnd != nil && now.Before(*acct.SubscriptionEnd) {
			return Verdict{Allowed: true, Status: StatusPastDue, Reason: ReasonPaymentRetry}
		}
		return Verdict{Allowed: false, Status: StatusExpired, Reason: ReasonSubscriptionEnded}

	case StatusCanceled:
		if acct.BillingSubscriptionID != "" &&
			acct.SubscriptionEnd != nil && now.Before(*acct.SubscriptionEnd) {
			return Verdict{Allowed: true, Status: StatusCanceled, Reason: ReasonActive}
		}
		return Verdict{Allowed: false, Status: StatusExpired, Reason: ReasonSubscriptionEnded}

	case StatusTrial:
		if acct.TrialEnd == nil {
			return Verdict{Allowed: false, Status: acct.Status, Reason: ReasonCorruptState}
		}
		if now.Before(*acct.TrialEnd) {
			return Verdict{Allowed: true, Status: StatusTrial, Reason: ReasonTrialActive}
		}
		return Verdict{Allowed: false, Status: StatusExpired, Reason: ReasonTrialExpired}

	case StatusExpired:
		if acct.BillingCustomerID != "" {
			return Verdict{Allowed: false, Status: StatusExpired, Reason: ReasonSubscriptionEnded}
		}
		return Verdict{Allowed: false, Status: StatusExpired, Reason: ReasonTrialExpired}
	}

	return Verdict{Allowed: false, Status: acct.Status, Reason: ReasonSubscriptionRequired}
}

// ApplyEvent computes the account state after a billing event. It is pure:
// the caller persists the result inside the per-customer critical section.
// The returned bool reports whether the event changed the account; stale or
// reconciliation-only events return the account unchanged.
func ApplyEvent(acct AccountSubscription, ev BillingEvent, now time.Time) (AccountSubscription, bool, error) {
	switch ev.Type {
	case EventCheckoutCompleted:
		return applyCheckoutCompleted(acct, ev, now)
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return applySubscriptionChange(acct, ev, now)
	case EventSubscriptionDeleted:
		return applySubscriptionDeleted(acct, ev, now)
	case EventInvoiceFinalized, EventInvoicePaid:
		return applyInvoiceConfirmation(acct, ev, now)
	case EventInvoicePaymentFailed:
		return applyPaymentFailed(acct, ev, now)
	}
	return acct, false, fmt.Errorf("%w: %s", ErrUnknownEventType, ev.Type)
}

// applyCheckoutCompleted is the primary activation path. It must be
// sufficient on its own to grant access; no later event is required.
func applyCheckoutCompleted(acct AccountSubscription, ev BillingEvent, now time.Time) (AccountSubscription, bool, error) {
	if ev.CustomerID == "" || ev.SubscriptionID == "" {
		return acct, false, fmt.Errorf("%w: checkout event requires customer and subscription ids", ErrInvalidEvent)
	}

	acct.Status = StatusActive
	acct.BillingCustomerID = ev.CustomerID
	acct.BillingSubscriptionID = ev.SubscriptionID
	acct.SubscriptionStart = ev.PeriodStart
	acct.SubscriptionEnd = ev.PeriodEnd
	acct.UpdatedAt = now
	return acct, true, nil
}

func applySubscriptionChange(acct AccountSubscription, ev BillingEvent, now time.Time) (AccountSubscription, bool, error) {
	if ev.SubscriptionID == "" {
		return acct, false, fmt.Errorf("%w: subscription event requires a subscription id", ErrInvalidEvent)
	}

	prev := acct.Status
	acct.BillingSubscriptionID = ev.SubscriptionID
	if ev.CustomerID != "" {
		acct.BillingCustomerID = ev.CustomerID
	}
	if ev.PeriodStart != nil {
		acct.SubscriptionStart = ev.PeriodStart
	}
	if ev.PeriodEnd != nil {
		acct.SubscriptionEnd = ev.PeriodEnd
	}

	switch {
	case ev.CancelAtPeriodEnd:
		acct.Status = StatusCanceled

	case prev == StatusCanceled && ev.ProviderStatus == "active":
		// Reactivation: the customer reversed a pending cancellation.
		acct.Status = StatusActive

	default:
		mapped, ok := statusFromProvider(ev.ProviderStatus)
		if !ok {
			// Unrecognized provider vocabulary never mutates local state.
			return acct, false, nil
		}
		acct.Status = mapped
	}

	acct.UpdatedAt = now
	return acct, true, nil
}

// applySubscriptionDeleted clears billing state only when the deletion
// references the subscription we currently track. A late deletion for a
// superseded subscription must not wipe the newer one.
func applySubscriptionDeleted(acct AccountSubscription, ev BillingEvent, now time.Time) (AccountSubscription, bool, error) {
	if ev.SubscriptionID == "" {
		return acct, false, fmt.Errorf("%w: deletion event requires a subscription id", ErrInvalidEvent)
	}

	if acct.BillingSubscriptionID != "" && acct.BillingSubscriptionID != ev.SubscriptionID {
		return acct, false, nil
	}

	acct.BillingSubscriptionID = ""
	acct.Status = StatusExpired
	acct.UpdatedAt = now
	return acct, true, nil
}

// applyInvoiceConfirmation reconciles toward active and refreshes period
// dates. Invoices are redundant confirmation, never the sole activation
// trigger: an account with no tracked subscription is left untouched.
func applyInvoiceConfirmation(acct AccountSubscription, ev BillingEvent, now time.Time) (AccountSubscription, bool, error) {
	if acct.BillingSubscriptionID == "" {
		return acct, false, nil
	}
	if acct.Status != StatusActive && acct.Status != StatusPastDue {
		return acct, false, nil
	}

	acct.Status = StatusActive
	if ev.PeriodStart != nil {
		acct.SubscriptionStart = ev.PeriodStart
	}
	if ev.PeriodEnd != nil {
		acct.SubscriptionEnd = ev.PeriodEnd
	}
	acct.UpdatedAt = now
	return acct, true, nil
}

// applyPaymentFailed moves a paying account into the payment retry window.
// Access continues until subscription_end passes.
func applyPaymentFailed(acct AccountSubscription, ev BillingEvent, now time.Time) (AccountSubscription, bool, error) {
	if acct.BillingSubscriptionID == "" {
		return acct, false, nil
	}
	if acct.Status != StatusActive && acct.Status != StatusPastDue {
		return acct, false, nil
	}

	acct.Status = StatusPastDue
	acct.UpdatedAt = now
	return acct, true, nil
}

// statusFromProvider maps the provider's subscription status vocabulary into
// the local one.
func statusFromProvider(providerStatus string) (Status, bool) {
	switch providerStatus {
	case "trialing":
		return StatusTrial, true
	case "active":
		return StatusActive, true
	case "past_due":
		return StatusPastDue, true
	case "canceled":
		return StatusCanceled, true
	case "unpaid", "incomplete_expired":
		return StatusExpired, true
	}
	return "", false
}
