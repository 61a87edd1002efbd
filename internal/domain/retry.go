package domain

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy describes exponential backoff with jitter.
// MaxRetries of 0 means retry forever.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxBackoff time.Duration
	Jitter     time.Duration
}

// Delay returns the backoff before retrying after the given 1-based attempt:
// min(MaxBackoff, BaseDelay*2^(attempt-1)) plus uniform jitter.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			d = p.MaxBackoff
			break
		}
	}
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}

// Exhausted reports whether the policy allows no further attempts after the
// given number of completed attempts.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return p.MaxRetries > 0 && attempts >= p.MaxRetries
}

// Retry runs fn until it succeeds, fails permanently, or the policy is
// exhausted. Transient failures sleep the policy's backoff between attempts;
// cancellation is honored during the sleep, not mid-attempt.
func Retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	attempt := 0
	for {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		if p.Exhausted(attempt) {
			return &RetryExceededError{Attempts: attempt, Err: err}
		}
		select {
		case <-time.After(p.Delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
