package subscription

import (
	"context"
	"time"
)

// AccountStore defines persistence for account subscription records.
// Reads must never return a torn record; Save must be an atomic
// compare-and-swap on Version so lost updates are impossible even if a lock
// implementation misbehaves.
type AccountStore interface {
	// Get retrieves a record by account ID.
	// Returns ErrAccountNotFound if no record exists and ErrStoreUnavailable
	// (wrapped) on transient infrastructure failure.
	Get(ctx context.Context, accountID string) (AccountSubscription, error)

	// GetByCustomerID retrieves a record by its billing customer ID.
	GetByCustomerID(ctx context.Context, customerID string) (AccountSubscription, error)

	// Create inserts a new record. Returns ErrAccountExists if the account
	// already has one.
	Create(ctx context.Context, acct AccountSubscription) error

	// Save persists a mutated record. The record's Version must match the
	// stored one; on mismatch Save returns ErrVersionConflict and the caller
	// re-reads and re-applies.
	Save(ctx context.Context, acct AccountSubscription) error
}

// TransitionRecorder captures status transitions for the abuse risk scorer.
// Recording is best effort; a failed append never fails the transition.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, accountID string, from, to Status, at time.Time) error

	// RecentTransitions returns up to limit most recent transitions for an
	// account, newest first.
	RecentTransitions(ctx context.Context, accountID string, limit int) ([]TransitionRecord, error)
}
