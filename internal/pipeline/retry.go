package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// retryRead retries a read-only call with exponential backoff. It must never wrap a transaction.
func retryRead[T any](ctx context.Context, p *Pipeline, op string, fn func(context.Context) (T, error)) (T, error) {
	if p.cfg.MaxRetries <= 0 {
		return fn(ctx)
	}

	delay := p.cfg.RetryBackoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = delay
	policy.MaxInterval = delay * 10

	notify := func(err error, next time.Duration) {
		p.logger.Warn("read failed, retrying", zap.String("op", op), zap.Error(err), zap.Duration("backoff", next))
	}

	return backoff.Retry(ctx, func() (T, error) {
		return fn(ctx)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(p.cfg.MaxRetries)+1),
		backoff.WithNotify(notify),
	)
}
