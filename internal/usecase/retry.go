package usecase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// RetryPolicy runs side effects a fixed number of times with a constant delay between tries.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Do invokes op until it succeeds or the attempts are exhausted and returns the last error.
func (p RetryPolicy) Do(ctx context.Context, logger *zap.Logger, name string, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op(ctx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug("retrying side effect",
				zap.String("operation", name),
				zap.Duration("next_retry", next),
				zap.Error(err),
			)
		}),
	)
	return err
}
