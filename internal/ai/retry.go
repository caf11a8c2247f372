package ai

import (
	"context"
	"log"
	"time"
)

// RetryPolicy bounds retries of rate-limited calls. Only KindRateLimited is retried.
// The wait before retry n is BaseDelay * n.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy waits 1s then 2s across three attempts
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	return max(p.BaseDelay, 0) * time.Duration(attempt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func withRetry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := max(p.MaxAttempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if KindOf(err) != KindRateLimited || attempt >= attempts {
			return zero, err
		}

		d := p.delay(attempt)
		log.Printf("🔄 rate limited, retry %d/%d in %s", attempt, attempts-1, d)
		if err := sleep(ctx, d); err != nil {
			return zero, err
		}
	}
}

// withGroundingFallback runs call grounded, and re-runs it plain as soon as
// grounding is reported unavailable. grounded reports which path answered.
func withGroundingFallback[T any](ctx context.Context, p RetryPolicy, call func(ctx context.Context, grounded bool) (T, error)) (v T, grounded bool, err error) {
	v, err = withRetry(ctx, p, func(ctx context.Context) (T, error) { return call(ctx, true) })
	if err == nil {
		return v, true, nil
	}
	if KindOf(err) != KindFeatureUnavailable {
		return v, false, err
	}

	log.Printf("⚠️ search grounding unavailable, continuing without it: %v", err)
	v, err = withRetry(ctx, p, func(ctx context.Context) (T, error) { return call(ctx, false) })
	return v, false, err
}
