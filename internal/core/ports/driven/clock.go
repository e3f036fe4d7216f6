package driven

import (
	"context"
	"time"
)

// Sleeper is the injectable delay dependency used for rate-limit
// suspension and retry backoff, so tests can simulate elapsed time
// without real waiting.
type Sleeper interface {
	// Sleep blocks for the given duration or until the context is
	// cancelled, returning the context error in that case.
	Sleep(ctx context.Context, d time.Duration) error

	// Now returns the current time.
	Now() time.Time
}

// RealSleeper implements Sleeper with the system clock.
type RealSleeper struct{}

// Sleep blocks with time.After, honouring context cancellation.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Now returns time.Now.
func (RealSleeper) Now() time.Time {
	return time.Now()
}
