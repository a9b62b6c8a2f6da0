package connection

import (
	"context"
	"math/rand/v2"
	"time"
)

// defaultJitter is the fraction of each delay that is randomized.
const defaultJitter = 0.2

// Backoff computes reconnect delays.
//
// Attempt 1 waits Base, attempt 2 waits 2*Base, attempt 3 waits 4*Base, and
// so on up to Max. Each delay is then spread by up to Jitter of its value in
// either direction, never exceeding Max.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

// Delay returns the wait before the given 1-based attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}

	maxDelay := max(b.Max, b.Base)

	delay := b.Base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay

			break
		}

		delay *= 2
	}

	if b.Jitter > 0 {
		spread := time.Duration(float64(delay) * b.Jitter)
		if spread > 0 {
			delay += time.Duration(rand.Int64N(int64(2*spread)+1)) - spread
		}
	}

	return min(max(delay, 0), maxDelay)
}

// sleepWithContext waits for d or until ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
