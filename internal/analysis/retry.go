package analysis

import (
	"context"
	"time"

	"github.com/aqljon/aqljon/internal/queue"
	"github.com/aqljon/aqljon/internal/session"
)

// Retry defaults. Rate-limit failures start from a longer base so the
// backend gets room to recover.
const (
	DefaultRetryAttempts = 3

	defaultRetryBase   = 1 * time.Second
	rateLimitRetryBase = 5 * time.Second
	maxRetryDelay      = 30 * time.Second
	retryJitterDivisor = 5 // 20% jitter range
)

// retrier wraps an Analyzer with bounded retry and exponential backoff.
// The queue never retries; this wrapper is the only retry loop in the
// system, and it surfaces the final attempt's error unchanged.
type retrier struct {
	inner    queue.Analyzer
	attempts int
	base     time.Duration
}

// WithRetry wraps inner so transient failures are retried up to attempts
// times in total. Context cancellation aborts immediately.
func WithRetry(inner queue.Analyzer, attempts int) queue.Analyzer {
	if attempts < 1 {
		attempts = DefaultRetryAttempts
	}
	return &retrier{inner: inner, attempts: attempts, base: defaultRetryBase}
}

// Analyze implements queue.Analyzer.
func (r *retrier) Analyze(ctx context.Context, kind queue.Kind, payloadRef string, snap session.Snapshot) (string, error) {
	var lastErr error

	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, r.delayFor(lastErr, attempt)); err != nil {
				return "", lastErr
			}
		}

		result, err := r.inner.Analyze(ctx, kind, payloadRef, snap)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !retryable(err) {
			break
		}
	}

	return "", lastErr
}

// delayFor computes the backoff before the given attempt (1-based for the
// first retry), with jitter to avoid thundering herds.
func (r *retrier) delayFor(err error, attempt int) time.Duration {
	base := r.base
	if IsRateLimited(err) {
		base = rateLimitRetryBase
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
			break
		}
	}

	jitterRange := delay / retryJitterDivisor
	if jitterRange > 0 {
		jitter := time.Duration(time.Now().UnixNano() % int64(jitterRange))
		delay = delay - jitterRange/2 + jitter
	}

	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
