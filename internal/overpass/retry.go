package overpass

import (
	"context"
	"errors"
	"time"
)

// DefaultInitialBackoff is the first wait after the service throttles us.
const DefaultInitialBackoff = 5 * time.Second

// ErrRetriesExhausted is returned when a retry cap is configured and reached.
var ErrRetriesExhausted = errors.New("overpass: retries exhausted")

// RetryPolicy controls how throttled requests (HTTP 429 and 504) are retried.
type RetryPolicy struct {
	// Initial is the wait before the first retry.
	Initial time.Duration
	// MaxAttempts caps the number of requests. Zero retries forever.
	MaxAttempts int
	// Backoff computes the next wait from the previous one.
	Backoff func(prev time.Duration) time.Duration
	// Sleep blocks for d. Tests replace it to avoid real waits.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy retries forever, starting at five seconds and doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Initial: DefaultInitialBackoff,
		Backoff: Double,
		Sleep:   SleepContext,
	}
}

// Double is an exponential backoff without jitter.
func Double(prev time.Duration) time.Duration {
	return prev * 2
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// exhausted reports whether attempt requests used up the budget.
func (p RetryPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Initial <= 0 {
		p.Initial = DefaultInitialBackoff
	}
	if p.Backoff == nil {
		p.Backoff = Double
	}
	if p.Sleep == nil {
		p.Sleep = SleepContext
	}
	return p
}
