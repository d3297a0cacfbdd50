package publisher

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotReady is returned by a readiness check that should be retried.
	ErrNotReady = errors.New("media not ready")
	// ErrPublishTimeout means the platform never reported the media ready.
	ErrPublishTimeout = errors.New("timed out waiting for platform to process media")
)

// pollUntilReady calls check up to attempts times, sleeping interval between
// calls. check returns nil when ready, ErrNotReady to keep waiting, or any
// other error to stop.
func pollUntilReady(ctx context.Context, interval time.Duration, attempts int, check func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		err := check(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotReady) {
			return err
		}

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return ErrPublishTimeout
}

func parseInterval(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
