package keylock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entitledhq/entitled/pkg/keylock"
)

func TestManager_MutualExclusionPerKey(t *testing.T) {
	t.Parallel()

	m := keylock.NewManager()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(ctx, "cus_1", func(ctx context.Context) error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "critical sections for one key must not overlap")
	assert.Equal(t, 0, m.Len(), "idle entries must be reclaimed")
}

func TestManager_DifferentKeysRunConcurrently(t *testing.T) {
	t.Parallel()

	m := keylock.NewManager()
	ctx := context.Background()

	release := make(chan struct{})
	holding := make(chan struct{})

	go func() {
		_ = m.WithLock(ctx, "cus_a", func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()

	<-holding

	done := make(chan error, 1)
	go func() {
		done <- m.WithLock(ctx, "cus_b", func(ctx context.Context) error { return nil })
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("lock for an unrelated key blocked")
	}
	close(release)
}

func TestManager_ReleasedOnError(t *testing.T) {
	t.Parallel()

	m := keylock.NewManager()
	ctx := context.Background()
	sentinel := errors.New("boom")

	err := m.WithLock(ctx, "cus_1", func(ctx context.Context) error { return sentinel })
	require.ErrorIs(t, err, sentinel)

	// Lock must be available again immediately.
	err = m.WithLock(ctx, "cus_1", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
}

func TestManager_ContextCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	m := keylock.NewManager()

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = m.WithLock(context.Background(), "cus_1", func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.WithLock(ctx, "cus_1", func(ctx context.Context) error {
		t.Error("critical section must not run after cancellation")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}
