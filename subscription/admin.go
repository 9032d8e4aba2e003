package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/entitledhq/entitled/pkg/clock"
	"github.com/entitledhq/entitled/pkg/keylock"
	"github.com/entitledhq/entitled/pkg/logger"
)

// Admin is the operator-triggered mutation path. It takes the same
// per-customer lock as the webhook processor so an admin override can never
// interleave with an in-flight billing event.
type Admin struct {
	store  AccountStore
	locker keylock.Locker
	clock  clock.Clock
	log    *slog.Logger
}

// AdminOption configures optional admin collaborators.
type AdminOption func(*Admin)

func WithAdminClock(c clock.Clock) AdminOption {
	return func(a *Admin) { a.clock = c }
}

func WithAdminLogger(log *slog.Logger) AdminOption {
	return func(a *Admin) { a.log = log }
}

// NewAdmin creates the admin mutation service.
func NewAdmin(store AccountStore, locker keylock.Locker, opts ...AdminOption) *Admin {
	if store == nil {
		panic("subscription: AccountStore is required")
	}
	if locker == nil {
		panic("subscription: Locker is required")
	}

	a := &Admin{
		store:  store,
		locker: locker,
		clock:  clock.System(),
		log:    slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// SetAdmin flips the unconditional-access flag. The flag belongs to the
// authorization system; billing events never touch it.
func (a *Admin) SetAdmin(ctx context.Context, accountID string, isAdmin bool) error {
	return a.mutate(ctx, accountID, func(acct *AccountSubscription) {
		acct.IsAdmin = isAdmin
	})
}

// OverrideStatus forces a status, for support interventions like restoring
// access after a billing provider incident.
func (a *Admin) OverrideStatus(ctx context.Context, accountID string, status Status) error {
	switch status {
	case StatusTrial, StatusActive, StatusCanceled, StatusPastDue, StatusExpired, StatusAdmin:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, status)
	}

	a.log.InfoContext(ctx, "admin status override",
		logger.AccountID(accountID), logger.Status(string(status)))

	return a.mutate(ctx, accountID, func(acct *AccountSubscription) {
		acct.Status = status
	})
}

func (a *Admin) mutate(ctx context.Context, accountID string, apply func(*AccountSubscription)) error {
	acct, err := a.store.Get(ctx, accountID)
	if err != nil {
		return err
	}

	key := customerLockKey(acct.BillingCustomerID)
	if acct.BillingCustomerID == "" {
		key = "billing:account:" + accountID
	}

	return a.locker.WithLock(ctx, key, func(ctx context.Context) error {
		// Re-read under the lock; the record may have moved since the
		// unlocked read that resolved the lock key.
		acct, err := a.store.Get(ctx, accountID)
		if err != nil {
			return err
		}

		apply(&acct)
		acct.UpdatedAt = a.clock.Now()
		return a.store.Save(ctx, acct)
	})
}
