package subscription_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entitledhq/entitled/subscription"
)

func TestMemoryAccountStore_VersionConflict(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemoryAccountStore()
	require.NoError(t, store.Create(context.Background(), subscription.AccountSubscription{
		AccountID: "acc_1",
		Status:    subscription.StatusTrial,
	}))

	first, err := store.Get(context.Background(), "acc_1")
	require.NoError(t, err)
	second := first

	first.Status = subscription.StatusActive
	require.NoError(t, store.Save(context.Background(), first))

	// The second writer holds a stale version and must not clobber the first.
	second.Status = subscription.StatusExpired
	err = store.Save(context.Background(), second)
	assert.ErrorIs(t, err, subscription.ErrVersionConflict)

	current, err := store.Get(context.Background(), "acc_1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, current.Status)
	assert.Equal(t, int64(1), current.Version)
}

func TestMemoryAccountStore_GetByCustomerID(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemoryAccountStore()
	require.NoError(t, store.Create(context.Background(), subscription.AccountSubscription{
		AccountID:         "acc_1",
		BillingCustomerID: "cus_1",
		Status:            subscription.StatusActive,
	}))

	acct, err := store.GetByCustomerID(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "acc_1", acct.AccountID)

	_, err = store.GetByCustomerID(context.Background(), "cus_other")
	assert.ErrorIs(t, err, subscription.ErrAccountNotFound)

	// An empty customer id never matches pre-checkout records.
	_, err = store.GetByCustomerID(context.Background(), "")
	assert.ErrorIs(t, err, subscription.ErrAccountNotFound)
}

func TestMemoryTransitionLog_Bounded(t *testing.T) {
	t.Parallel()

	log := subscription.NewMemoryTransitionLog(3)
	for i := 0; i < 5; i++ {
		require.NoError(t, log.RecordTransition(context.Background(), "acc_1",
			subscription.StatusActive, subscription.StatusCanceled, testNow))
	}

	history, err := log.RecentTransitions(context.Background(), "acc_1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}
