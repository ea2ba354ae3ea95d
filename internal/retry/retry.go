// Package retry provides the bounded fixed-backoff retry primitive used
// across the scraping pipeline: session acquisition, page navigation,
// element waits and export-control lookup all share the same policy.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Do runs op up to attempts times, sleeping backoff between attempts.
// It returns nil as soon as op succeeds, the last error once attempts are
// exhausted, or the context error if the context is done while waiting.
func Do(ctx context.Context, attempts int, backoff time.Duration, op func() error) error {
	if attempts < 1 {
		return fmt.Errorf("retry: attempts must be >= 1, got %d", attempts)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return lastErr
}
