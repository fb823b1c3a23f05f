package engine

import (
	"context"
	"testing"
	"time"

	"github.com/doughub/engine/internal/config"
)

func TestBackoffDelayBounds(t *testing.T) {
	base := 100 * time.Millisecond
	maxDelay := 800 * time.Millisecond

	for attempt := 0; attempt < 8; attempt++ {
		for i := 0; i < 50; i++ {
			d := backoffDelay(attempt, base, maxDelay)
			if d < 0 || d >= maxDelay {
				t.Fatalf("attempt %d: delay %v outside [0, %v)", attempt, d, maxDelay)
			}
		}
	}
}

func TestBackoffDelayZeroBase(t *testing.T) {
	if d := backoffDelay(3, 0, time.Second); d != 0 {
		t.Errorf("got %v, want 0", d)
	}
}

func TestSleepWithContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepWithContext(ctx, time.Minute); err != context.Canceled {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestSleepWithContextZeroDuration(t *testing.T) {
	if err := sleepWithContext(context.Background(), 0); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestPolicyFromConfigDefaults(t *testing.T) {
	p := PolicyFromConfig(config.ResilienceConfig{})

	if p.MaxAttempts != config.DefaultRetryMaxAttempts {
		t.Errorf("MaxAttempts = %d", p.MaxAttempts)
	}
	if p.BaseDelay != time.Duration(config.DefaultRetryBaseDelayMs)*time.Millisecond {
		t.Errorf("BaseDelay = %v", p.BaseDelay)
	}
	if p.MaxDelay != time.Duration(config.DefaultRetryMaxDelayMs)*time.Millisecond {
		t.Errorf("MaxDelay = %v", p.MaxDelay)
	}
}

func TestPolicyFromConfigExplicit(t *testing.T) {
	p := PolicyFromConfig(config.ResilienceConfig{
		RetryMaxAttempts: 5,
		RetryBaseDelayMs: 50,
		RetryMaxDelayMs:  1000,
	})

	if p.MaxAttempts != 5 || p.BaseDelay != 50*time.Millisecond || p.MaxDelay != time.Second {
		t.Errorf("unexpected policy: %+v", p)
	}
}
