package subscription

import (
	"time"
)

// AccountSubscription is the authoritative billing state of one account.
// There is exactly one record per account; all mutations go through
// ApplyEvent inside the processor's locked critical section or through the
// admin path, which takes the same lock.
type AccountSubscription struct {
	AccountID             string
	Email                 string
	BillingCustomerID     string // set once the account has ever started checkout
	BillingSubscriptionID string // cleared only when that exact subscription is confirmed deleted
	Status                Status
	TrialStart            *time.Time
	TrialEnd              *time.Time
	SubscriptionStart     *time.Time
	SubscriptionEnd       *time.Time
	IsAdmin               bool  // set by the authorization system, never by billing events
	Version               int64 // optimistic concurrency token, incremented on every save
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewTrialAccount creates a fresh account record with a fixed-length trial
// starting now. Trial dates are set once here and never change afterward.
func NewTrialAccount(accountID, email string, now time.Time, trialLength time.Duration) AccountSubscription {
	trialStart := now
	trialEnd := now.Add(trialLength)
	return AccountSubscription{
		AccountID:  accountID,
		Email:      email,
		Status:     StatusTrial,
		TrialStart: &trialStart,
		TrialEnd:   &trialEnd,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsActive returns true if the account holds a paid active subscription.
func (a *AccountSubscription) IsActive() bool {
	return a.Status == StatusActive
}

// IsCanceled returns true if the subscription is canceled but may still be
// within its paid period.
func (a *AccountSubscription) IsCanceled() bool {
	return a.Status == StatusCanceled
}

// IsTrialing returns true if the account is in its trial period state.
func (a *AccountSubscription) IsTrialing() bool {
	return a.Status == StatusTrial
}

// TrialDaysRemainingAt returns the number of days remaining in the trial at a
// given time, rounding partial days up. Returns 0 if not trialing or the
// trial has ended.
func (a *AccountSubscription) TrialDaysRemainingAt(now time.Time) int {
	if !a.IsTrialing() || a.TrialEnd == nil {
		return 0
	}

	remaining := a.TrialEnd.Sub(now)
	if remaining <= 0 {
		return 0
	}

	days := remaining.Hours() / 24
	return int(days + 0.5)
}
