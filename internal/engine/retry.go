package engine

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/doughub/engine/internal/config"
)

// RetryPolicy bounds the invocation retry loop. The engine is the only
// component that retries; the client and supervisor each try once so a
// failure is counted exactly once per attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// PolicyFromConfig builds the retry policy from resilience settings,
// substituting defaults for non-positive values.
func PolicyFromConfig(rc config.ResilienceConfig) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts: rc.RetryMaxAttempts,
		BaseDelay:   time.Duration(rc.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(rc.RetryMaxDelayMs) * time.Millisecond,
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = config.DefaultRetryMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Duration(config.DefaultRetryBaseDelayMs) * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = time.Duration(config.DefaultRetryMaxDelayMs) * time.Millisecond
	}
	return p
}

// backoffDelay calculates the delay before the given retry using
// exponential backoff with full jitter, clamped to [0, maxDelay].
func backoffDelay(attempt int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	exp := math.Pow(2, float64(attempt))
	delay := time.Duration(float64(base) * exp)
	if delay > maxDelay {
		delay = maxDelay
	}
	// Full jitter: uniform random in [0, delay).
	if delay > 0 {
		delay = time.Duration(rand.Int63n(int64(delay)))
	}
	return delay
}

// sleepWithContext sleeps for the given duration, returning early if the
// context is cancelled. Returns ctx.Err() if cancelled, nil otherwise.
func sleepWithContext(ctx context.Context, d time.Duration) error {
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
