package client

import (
	"context"
	"time"
)

// maxBackoff caps the exponential delay between attempts.
const maxBackoff = 30 * time.Second

// backoffDelay computes the wait before the next attempt. attempt is
// 1-based: the delay after attempt n is base×2^(n−1) under exponential
// policy, capped at maxBackoff, or simply base when fixed.
func backoffDelay(base time.Duration, attempt int, exponential bool) time.Duration {
	if base <= 0 {
		return 0
	}
	if !exponential {
		return base
	}

	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// sleepBackoff waits out the delay, returning early with the context
// error if the call is canceled mid-wait.
func sleepBackoff(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
