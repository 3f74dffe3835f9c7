package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetrier(attempts int, probe func(context.Context) error) *Retrier {
	r := NewRetrier(RetryPolicy{Attempts: attempts, BaseDelay: time.Millisecond, Timeout: time.Second}, probe)
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func TestRetrierRetriesTransientFailure(t *testing.T) {
	r := fastRetrier(2, nil)
	calls := 0
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetrierDoesNotRetryPermanent(t *testing.T) {
	r := fastRetrier(3, nil)
	calls := 0
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return Permanent(ErrNothingToCall)
	})
	assert.Equal(t, ErrNothingToCall, err)
	assert.Equal(t, 1, calls)
}

func TestRetrierClassifiesFailures(t *testing.T) {
	boom := errors.New("boom")

	down := fastRetrier(2, func(context.Context) error { return errors.New("dial tcp: refused") })
	err := down.Do(context.Background(), "op", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)

	up := fastRetrier(2, func(context.Context) error { return nil })
	err = up.Once(context.Background(), "op", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, ErrStoreOperation)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
}

func TestRetrierAppliesAttemptTimeout(t *testing.T) {
	r := NewRetrier(RetryPolicy{Attempts: 1, Timeout: 20 * time.Millisecond}, nil)
	err := r.Once(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoffStaysWithinBounds(t *testing.T) {
	r := NewRetrier(RetryPolicy{Attempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}, nil)
	for i := 0; i < 50; i++ {
		d := r.backoff(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 100*time.Millisecond)

		d = r.backoff(4)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}
