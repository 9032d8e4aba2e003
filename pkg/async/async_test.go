package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entitledhq/entitled/pkg/async"
)

func TestAsync_ReturnsResult(t *testing.T) {
	t.Parallel()

	f := async.Async(context.Background(), 21, func(ctx context.Context, n int) (int, error) {
		return n * 2, nil
	})

	got, err := f.Await()
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.True(t, f.IsComplete())
}

func TestAsync_PropagatesError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("send failed")
	f := async.Async(context.Background(), "welcome", func(ctx context.Context, tag string) (struct{}, error) {
		return struct{}{}, sentinel
	})

	_, err := f.Await()
	assert.ErrorIs(t, err, sentinel)
}

func TestAsync_PreCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	f := async.Async(ctx, 0, func(ctx context.Context, _ int) (int, error) {
		ran = true
		return 0, nil
	})

	_, err := f.Await()
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestAwaitWithTimeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	f := async.Async(context.Background(), 0, func(ctx context.Context, _ int) (int, error) {
		<-block
		return 1, nil
	})

	_, err := f.AwaitWithTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, async.ErrTimeout)
	close(block)
}
