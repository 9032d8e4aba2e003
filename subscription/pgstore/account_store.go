package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/entitledhq/entitled/pkg/pg"
	"github.com/entitledhq/entitled/subscription"
)

// AccountStore is the Postgres-backed subscription.AccountStore.
// Save is a compare-and-swap on the version column: the UPDATE matches the
// caller's version and increments it, so a lost update is impossible even if
// a lock implementation misbehaves.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates a Postgres account store.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	if pool == nil {
		panic("pgstore: pool is required")
	}
	return &AccountStore{pool: pool}
}

const accountColumns = `account_id, email, billing_customer_id, billing_subscription_id,
	status, trial_start, trial_end, subscription_start, subscription_end,
	is_admin, version, created_at, updated_at`

// Get implements subscription.AccountStore.
func (s *AccountStore) Get(ctx context.Context, accountID string) (subscription.AccountSubscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account_subscriptions WHERE account_id = $1`,
		accountID)
	return scanAccount(row)
}

// GetByCustomerID implements subscription.AccountStore.
func (s *AccountStore) GetByCustomerID(ctx context.Context, customerID string) (subscription.AccountSubscription, error) {
	if customerID == "" {
		return subscription.AccountSubscription{}, subscription.ErrAccountNotFound
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account_subscriptions WHERE billing_customer_id = $1`,
		customerID)
	return scanAccount(row)
}

// Create implements subscription.AccountStore.
func (s *AccountStore) Create(ctx context.Context, acct subscription.AccountSubscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO account_subscriptions (
			account_id, email, billing_customer_id, billing_subscription_id,
			status, trial_start, trial_end, subscription_start, subscription_end,
			is_admin, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		acct.AccountID, acct.Email,
		nullable(acct.BillingCustomerID), nullable(acct.BillingSubscriptionID),
		string(acct.Status), acct.TrialStart, acct.TrialEnd,
		acct.SubscriptionStart, acct.SubscriptionEnd,
		acct.IsAdmin, acct.Version, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return subscription.ErrAccountExists
		}
		return classify(err, "insert account subscription")
	}
	return nil
}

// Save implements subscription.AccountStore.
func (s *AccountStore) Save(ctx context.Context, acct subscription.AccountSubscription) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE account_subscriptions SET
			email = $2,
			billing_customer_id = $3,
			billing_subscription_id = $4,
			status = $5,
			trial_start = $6,
			trial_end = $7,
			subscription_start = $8,
			subscription_end = $9,
			is_admin = $10,
			version = version + 1,
			updated_at = $11
		WHERE account_id = $1 AND version = $12`,
		acct.AccountID, acct.Email,
		nullable(acct.BillingCustomerID), nullable(acct.BillingSubscriptionID),
		string(acct.Status), acct.TrialStart, acct.TrialEnd,
		acct.SubscriptionStart, acct.SubscriptionEnd,
		acct.IsAdmin, acct.UpdatedAt, acct.Version)
	if err != nil {
		return classify(err, "update account subscription")
	}

	if tag.RowsAffected() == 0 {
		// Either the row is gone or someone saved a newer version first.
		if _, err := s.Get(ctx, acct.AccountID); errors.Is(err, subscription.ErrAccountNotFound) {
			return subscription.ErrAccountNotFound
		}
		return subscription.ErrVersionConflict
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (subscription.AccountSubscription, error) {
	var (
		acct       subscription.AccountSubscription
		customerID *string
		subID      *string
		status     string
	)

	err := row.Scan(
		&acct.AccountID, &acct.Email, &customerID, &subID,
		&status, &acct.TrialStart, &acct.TrialEnd,
		&acct.SubscriptionStart, &acct.SubscriptionEnd,
		&acct.IsAdmin, &acct.Version, &acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return subscription.AccountSubscription{}, subscription.ErrAccountNotFound
		}
		return subscription.AccountSubscription{}, classify(err, "scan account subscription")
	}

	if customerID != nil {
		acct.BillingCustomerID = *customerID
	}
	if subID != nil {
		acct.BillingSubscriptionID = *subID
	}
	acct.Status = subscription.Status(status)
	return acct, nil
}

// nullable maps empty strings to SQL NULL so the partial unique index on
// billing_customer_id ignores pre-checkout accounts.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// classify wraps infrastructure failures so the gate's read path can
// distinguish an outage from a definitive not-found.
func classify(err error, op string) error {
	return errors.Join(subscription.ErrStoreUnavailable, fmt.Errorf("%s: %w", op, err))
}

var _ subscription.AccountStore = (*AccountStore)(nil)
