package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tablebook/internal/domain"
	"tablebook/internal/worker"
)

// withRetry runs op and retries it once after a backoff when storage reports
// a transient failure. A failure that persists is reported as ErrUnavailable.
func withRetry(ctx context.Context, policy worker.RetryPolicy, op func(ctx context.Context) error) error {
	err := op(ctx)
	if !isTransient(err) {
		return err
	}

	timer := time.NewTimer(policy.NextDelay(1))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, ctx.Err())
	case <-timer.C:
	}

	if err = op(ctx); isTransient(err) {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return err
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}
