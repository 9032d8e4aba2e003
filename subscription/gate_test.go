package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entitledhq/entitled/pkg/clock"
	"github.com/entitledhq/entitled/subscription"
)

// flakyStore wraps a real store and fails reads on demand, simulating a
// database outage on the gate's read path.
type flakyStore struct {
	*subscription.MemoryAccountStore
	failing bool
}

func (s *flakyStore) Get(ctx context.Context, accountID string) (subscription.AccountSubscription, error) {
	if s.failing {
		return subscription.AccountSubscription{}, errors.Join(subscription.ErrStoreUnavailable, errors.New("connection refused"))
	}
	return s.MemoryAccountStore.Get(ctx, accountID)
}

func newGateFixture(t *testing.T) (*subscription.Gate, *flakyStore, *clock.Fixed) {
	t.Helper()

	store := &flakyStore{MemoryAccountStore: subscription.NewMemoryAccountStore()}
	fixed := clock.NewFixed(testNow)
	gate := subscription.NewGate(subscription.GateConfig{
		ReadTimeout:       time.Second,
		GrantCacheSize:    16,
		DegradedRetryHint: 30 * time.Second,
	}, store, subscription.WithGateClock(fixed))

	return gate, store, fixed
}

func TestGate_AllowsEntitledAccount(t *testing.T) {
	t.Parallel()

	gate, store, _ := newGateFixture(t)
	end := testNow.Add(10 * 24 * time.Hour)
	require.NoError(t, store.Create(context.Background(), subscription.AccountSubscription{
		AccountID:             "acc_1",
		BillingCustomerID:     "cus_1",
		BillingSubscriptionID: "sub_1",
		Status:                subscription.StatusActive,
		SubscriptionEnd:       &end,
	}))

	v := gate.Check(context.Background(), "acc_1")
	assert.True(t, v.Allowed)
	assert.Equal(t, subscription.ReasonActive, v.Reason)
}

func TestGate_UnknownAccountIsDeniedNotDegraded(t *testing.T) {
	t.Parallel()

	gate, _, _ := newGateFixture(t)

	v := gate.Check(context.Background(), "acc_missing")
	assert.False(t, v.Allowed)
	assert.Equal(t, subscription.ReasonSubscriptionRequired, v.Reason)
	assert.Zero(t, v.RetryAfter)
}

func TestGate_GracePeriodFallback(t *testing.T) {
	t.Parallel()

	t.Run("cached grant within paid period allows during outage", func(t *testing.T) {
		t.Parallel()

		gate, store, _ := newGateFixture(t)
		end := testNow.Add(10 * 24 * time.Hour)
		require.NoError(t, store.Create(context.Background(), subscription.AccountSubscription{
			AccountID:             "acc_1",
			BillingCustomerID:     "cus_1",
			BillingSubscriptionID: "sub_1",
			Status:                subscription.StatusActive,
			SubscriptionEnd:       &end,
		}))

		// Prime the grant cache, then take the store down.
		require.True(t, gate.Check(context.Background(), "acc_1").Allowed)
		store.failing = true

		v := gate.Check(context.Background(), "acc_1")
		assert.True(t, v.Allowed)
		assert.Equal(t, subscription.StatusActive, v.Status)
	})

	t.Run("cached grant past paid period denies during outage", func(t *testing.T) {
		t.Parallel()

		gate, store, fixed := newGateFixture(t)
		end := testNow.Add(time.Hour)
		require.NoError(t, store.Create(context.Background(), subscription.AccountSubscription{
			AccountID:             "acc_1",
			BillingCustomerID:     "cus_1",
			BillingSubscriptionID: "sub_1",
			Status:                subscription.StatusActive,
			SubscriptionEnd:       &end,
		}))

		require.True(t, gate.Check(context.Background(), "acc_1").Allowed)
		store.failing = true
		fixed.Advance(2 * time.Hour) // past subscription_end

		v := gate.Check(context.Background(), "acc_1")
		assert.False(t, v.Allowed)
		assert.Equal(t, subscription.ReasonUnavailable, v.Reason)
		assert.Equal(t, 30*time.Second, v.RetryAfter)
	})

	t.Run("never-entitled account is denied during outage", func(t *testing.T) {
		t.Parallel()

		gate, store, _ := newGateFixture(t)
		store.failing = true

		v := gate.Check(context.Background(), "acc_unknown")
		assert.False(t, v.Allowed)
		assert.Equal(t, subscription.ReasonUnavailable, v.Reason)
	})

	t.Run("denial purges the cached grant", func(t *testing.T) {
		t.Parallel()

		gate, store, fixed := newGateFixture(t)
		trialEnd := testNow.Add(time.Hour)
		trialStart := testNow.Add(-6 * 24 * time.Hour)
		require.NoError(t, store.Create(context.Background(), subscription.AccountSubscription{
			AccountID:  "acc_1",
			Status:     subscription.StatusTrial,
			TrialStart: &trialStart,
			TrialEnd:   &trialEnd,
		}))

		require.True(t, gate.Check(context.Background(), "acc_1").Allowed)

		// Trial lapses while the store is still up; the fresh denial must
		// also remove the stale cached grant.
		fixed.Advance(2 * time.Hour)
		require.False(t, gate.Check(context.Background(), "acc_1").Allowed)

		store.failing = true
		v := gate.Check(context.Background(), "acc_1")
		assert.False(t, v.Allowed)
		assert.Equal(t, subscription.ReasonUnavailable, v.Reason)
	})
}

func TestGate_CorruptTrialFailsClosed(t *testing.T) {
	t.Parallel()

	gate, store, _ := newGateFixture(t)
	require.NoError(t, store.Create(context.Background(), subscription.AccountSubscription{
		AccountID: "acc_1",
		Status:    subscription.StatusTrial,
		// TrialEnd deliberately missing.
	}))

	v := gate.Check(context.Background(), "acc_1")
	assert.False(t, v.Allowed)
	assert.Equal(t, subscription.ReasonSubscriptionRequired, v.Reason)
}

func TestGate_Verify(t *testing.T) {
	t.Parallel()

	gate, store, _ := newGateFixture(t)

	trialEnd := testNow.Add(-24 * time.Hour)
	require.NoError(t, store.Create(context.Background(), subscription.AccountSubscription{
		AccountID: "acc_1",
		Status:    subscription.StatusTrial,
		TrialEnd:  &trialEnd,
	}))

	acct, v, err := gate.Verify(context.Background(), "acc_1")
	require.NoError(t, err)
	assert.False(t, v.Allowed)
	assert.Equal(t, subscription.ReasonTrialExpired, v.Reason)

	// Checkout lands; Verify immediately reflects the new record without
	// waiting for any poll cycle.
	acct.Status = subscription.StatusActive
	acct.BillingCustomerID = "cus_1"
	acct.BillingSubscriptionID = "sub_1"
	end := testNow.Add(30 * 24 * time.Hour)
	acct.SubscriptionEnd = &end
	require.NoError(t, store.Save(context.Background(), acct))

	_, v, err = gate.Verify(context.Background(), "acc_1")
	require.NoError(t, err)
	assert.True(t, v.Allowed)
	assert.Equal(t, subscription.ReasonActive, v.Reason)
}
