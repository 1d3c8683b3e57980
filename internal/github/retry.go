package github

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const maxRetries = 3

// retryTransient runs fn, retrying only transient failures with
// exponential backoff. A server wait hint overrides the computed delay.
// Structural and other 4xx errors return immediately: an identical
// payload fails identically.
func retryTransient(ctx context.Context, log *zap.Logger, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var te *TransientError
		if !errors.As(lastErr, &te) {
			return lastErr
		}
		if attempt == maxRetries {
			break
		}

		delay := time.Duration(1<<uint(attempt)) * time.Second
		if te.RetryAfter > 0 {
			delay = te.RetryAfter
		}
		log.Warn("retrying after transient API failure",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
