package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/entitledhq/entitled/pkg/cache"
	"github.com/entitledhq/entitled/pkg/clock"
	"github.com/entitledhq/entitled/pkg/logger"
)

// GateConfig holds access gate configuration.
type GateConfig struct {
	ReadTimeout       time.Duration `env:"GATE_READ_TIMEOUT" envDefault:"2s"`
	GrantCacheSize    int           `env:"GATE_GRANT_CACHE_SIZE" envDefault:"10000"`
	DegradedRetryHint time.Duration `env:"GATE_DEGRADED_RETRY_HINT" envDefault:"30s"`
}

// cachedGrant is a last-known-good grant used for the grace-period fallback.
// ExpiresAt is the paid-period or trial end of the record that produced the
// grant; the fallback never extends access past it.
type cachedGrant struct {
	Status    Status
	Reason    Reason
	ExpiresAt time.Time
}

// Gate answers the access question for every protected request. Reads are
// lock-free and bounded by a short timeout; when the account store is
// unreachable the gate falls back to the most recent cached grant instead of
// mass-locking paying customers out.
type Gate struct {
	store     AccountStore
	grants    *cache.LRUCache[string, cachedGrant]
	timeout   time.Duration
	retryHint time.Duration
	clock     clock.Clock
	log       *slog.Logger
}

// GateOption configures optional gate collaborators.
type GateOption func(*Gate)

func WithGateClock(c clock.Clock) GateOption {
	return func(g *Gate) { g.clock = c }
}

func WithGateLogger(log *slog.Logger) GateOption {
	return func(g *Gate) { g.log = log }
}

// NewGate creates an access control gate.
func NewGate(cfg GateConfig, store AccountStore, opts ...GateOption) *Gate {
	if store == nil {
		panic("subscription: AccountStore is required")
	}

	size := cfg.GrantCacheSize
	if size <= 0 {
		size = 10000
	}
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	retryHint := cfg.DegradedRetryHint
	if retryHint <= 0 {
		retryHint = 30 * time.Second
	}

	g := &Gate{
		store:     store,
		grants:    cache.NewLRUCache[string, cachedGrant](size),
		timeout:   timeout,
		retryHint: retryHint,
		clock:     clock.System(),
		log:       slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Check returns the access verdict for an account. Denial is a normal
// verdict, never an error; the caller routes the user by Reason.
func (g *Gate) Check(ctx context.Context, accountID string) Verdict {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	now := g.clock.Now()

	acct, err := g.store.Get(ctx, accountID)
	switch {
	case err == nil:
		return g.decideAndCache(ctx, acct, now)

	case errors.Is(err, ErrAccountNotFound):
		// Absence is a definitive answer, not an outage; the fallback must
		// never grant access to an account that was never entitled.
		return Verdict{Allowed: false, Reason: ReasonSubscriptionRequired}

	default:
		return g.degraded(ctx, accountID, now, err)
	}
}

// Verify synchronously re-reads the record and returns a fresh verdict plus
// the record itself. Clients call it right after checkout instead of polling
// until a webhook lands.
func (g *Gate) Verify(ctx context.Context, accountID string) (AccountSubscription, Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	acct, err := g.store.Get(ctx, accountID)
	if err != nil {
		return AccountSubscription{}, Verdict{}, err
	}

	return acct, g.decideAndCache(ctx, acct, g.clock.Now()), nil
}

func (g *Gate) decideAndCache(ctx context.Context, acct AccountSubscription, now time.Time) Verdict {
	v := Decide(acct, now)

	if v.Reason == ReasonCorruptState {
		g.log.ErrorContext(ctx, "account subscription state is corrupt, access denied",
			logger.AccountID(acct.AccountID), logger.Status(string(acct.Status)))
		// Callers remediate corrupt records through support, not self-serve.
		return Verdict{Allowed: false, Status: v.Status, Reason: ReasonSubscriptionRequired}
	}

	if v.Allowed {
		if bound, ok := grantBound(acct); ok {
			g.grants.Put(acct.AccountID, cachedGrant{
				Status:    v.Status,
				Reason:    v.Reason,
				ExpiresAt: bound,
			})
		}
	} else {
		g.grants.Remove(acct.AccountID)
	}

	return v
}

// degraded is the grace-period fallback: if the last known verdict for this
// account was a grant whose period has not ended, allow the request and log
// the degraded mode; otherwise fail with a retry hint.
func (g *Gate) degraded(ctx context.Context, accountID string, now time.Time, cause error) Verdict {
	if grant, ok := g.grants.Get(accountID); ok && now.Before(grant.ExpiresAt) {
		g.log.WarnContext(ctx, "account store unreachable, serving cached grant",
			logger.AccountID(accountID), logger.Error(cause))
		return Verdict{Allowed: true, Status: grant.Status, Reason: grant.Reason}
	}

	g.log.ErrorContext(ctx, "account store unreachable and no valid cached grant",
		logger.AccountID(accountID), logger.Error(cause))
	return Verdict{Allowed: false, Reason: ReasonUnavailable, RetryAfter: g.retryHint}
}

// grantBound returns the hard expiry for a cached grant. Admin grants carry
// no billing bound and are not cached; an outage should re-check them once
// the store recovers.
func grantBound(acct AccountSubscription) (time.Time, bool) {
	switch acct.Status {
	case StatusActive, StatusCanceled, StatusPastDue:
		if acct.SubscriptionEnd != nil {
			return *acct.SubscriptionEnd, true
		}
	case StatusTrial:
		if acct.TrialEnd != nil {
			return *acct.TrialEnd, true
		}
	}
	return time.Time{}, false
}
