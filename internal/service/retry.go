package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/logger"
)

// RetryPolicy bounds how store operations are attempted.
//
// Fields:
//  Attempts  – total attempts for mutating operations (at least 1).
//  BaseDelay – delay before the second attempt; doubles afterwards.
//  MaxDelay  – upper bound of a single backoff delay.
//  Timeout   – deadline of a single attempt.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Timeout   time.Duration
}

// DefaultRetryPolicy is two attempts with a 500ms base delay.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:  2,
	BaseDelay: 500 * time.Millisecond,
	MaxDelay:  5 * time.Second,
	Timeout:   3 * time.Second,
}

// Retrier runs store operations under per-attempt timeouts.  Mutations go
// through Do (bounded exponential backoff with jitter), reads through Once.
// When an operation finally fails, the liveness probe decides whether the
// error is reported as ErrStoreUnavailable or ErrStoreOperation.
type Retrier struct {
	policy RetryPolicy
	probe  func(context.Context) error
	sleep  func(context.Context, time.Duration) error
}

// NewRetrier returns a Retrier.  probe may be nil, in which case failures
// are always classified as ErrStoreOperation.
func NewRetrier(policy RetryPolicy, probe func(context.Context) error) *Retrier {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultRetryPolicy.Timeout
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	return &Retrier{policy: policy, probe: probe, sleep: sleepContext}
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.  Do and Once return the
// wrapped error unchanged and skip classification.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Do runs fn up to Attempts times with exponential backoff and jitter.
func (r *Retrier) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < r.policy.Attempts; attempt++ {
		if attempt > 0 {
			delay := r.backoff(attempt)
			logger.Warningf("retry: %s attempt %d failed, retrying in %s: %v", op, attempt, delay, err)
			if serr := r.sleep(ctx, delay); serr != nil {
				return fmt.Errorf("%s: %w", op, serr)
			}
		}
		err = r.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}
	return r.classify(ctx, op, err)
}

// Once runs fn a single time under the per-attempt timeout.  Read paths use
// it: the client library retries network errors itself and callers poll.
func (r *Retrier) Once(ctx context.Context, op string, fn func(context.Context) error) error {
	return r.once(ctx, op, r.policy.Timeout, fn)
}

// OnceWithin is Once with a deadline of timeouts attempt timeouts, for reads
// that chain several store calls.
func (r *Retrier) OnceWithin(ctx context.Context, op string, timeouts int, fn func(context.Context) error) error {
	if timeouts < 1 {
		timeouts = 1
	}
	return r.once(ctx, op, time.Duration(timeouts)*r.policy.Timeout, fn)
}

func (r *Retrier) once(ctx context.Context, op string, timeout time.Duration, fn func(context.Context) error) error {
	err := r.attemptWithin(ctx, timeout, fn)
	if err == nil {
		return nil
	}
	var perm permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	return r.classify(ctx, op, err)
}

func (r *Retrier) attempt(ctx context.Context, fn func(context.Context) error) error {
	return r.attemptWithin(ctx, r.policy.Timeout, fn)
}

func (r *Retrier) attemptWithin(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(actx)
}

func (r *Retrier) classify(ctx context.Context, op string, err error) error {
	if r.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
		defer cancel()
		if perr := r.probe(pctx); perr != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreOperation, err)
}

// backoff returns the delay before attempt (1-based retries), using equal
// jitter: half the exponential delay is fixed, the other half random.
func (r *Retrier) backoff(attempt int) time.Duration {
	d := r.policy.BaseDelay << (attempt - 1)
	if d <= 0 || d > r.policy.MaxDelay {
		d = r.policy.MaxDelay
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int64N(int64(half)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
