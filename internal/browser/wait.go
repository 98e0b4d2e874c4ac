package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrWaitTimeout = errors.New("timed out waiting for condition")

const DefaultPollInterval = 250 * time.Millisecond

// Condition reports whether the awaited page state has been reached.
type Condition func(ctx context.Context) (bool, error)

// Poll evaluates cond every interval until it returns true or timeout
// elapses. Errors from cond count as "not yet"; the last one is wrapped into
// the timeout error.
func Poll(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := cond(ctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if lastErr != nil {
				return fmt.Errorf("%w after %s: %w", ErrWaitTimeout, timeout, lastErr)
			}
			return fmt.Errorf("%w after %s", ErrWaitTimeout, timeout)
		case <-ticker.C:
		}
	}
}

// WaitForSelector blocks until selector matches at least one element.
func WaitForSelector(ctx context.Context, s Session, selector string, timeout time.Duration) error {
	err := Poll(ctx, timeout, DefaultPollInterval, func(ctx context.Context) (bool, error) {
		n, err := s.Count(ctx, selector)
		return n > 0, err
	})
	if err != nil {
		return fmt.Errorf("waiting for %q: %w", selector, err)
	}
	return nil
}
