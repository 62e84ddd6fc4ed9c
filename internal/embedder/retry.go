package embedder

import (
	"context"
	"time"
)

// Retry policy for provider API calls. The delay doubles per failed attempt
// and is capped; context cancellation always wins over another attempt.
const (
	maxAttempts    = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// withRetry runs call until it succeeds, attempts run out, or ctx is done.
// The last call error is returned once attempts are exhausted.
func withRetry[T any](ctx context.Context, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; ; attempt++ {
		result, err := call()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			return zero, lastErr
		}
		if err := sleep(ctx, backoffFor(attempt)); err != nil {
			return zero, err
		}
	}
}

// backoffFor returns the delay before the attempt following n failures.
func backoffFor(n int) time.Duration {
	d := initialBackoff << (n - 1)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// sleep waits for d unless ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
