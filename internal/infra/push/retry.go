package push

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

// withRetry runs fn up to maxRetries times with exponential backoff starting
// at 100ms. Non-retryable delivery errors end the loop immediately.
func withRetry[T any](ctx context.Context, maxRetries int, taskName string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
			slog.DebugContext(ctx, "retrying push task enqueue",
				slog.String("task_name", taskName),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return zero, domain.NewTransientDeliveryError("", ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if domain.DeliveryKindOf(err) != domain.DeliveryErrorTransient {
			break
		}
	}

	slog.ErrorContext(ctx, "push task enqueue failed",
		slog.String("task_name", taskName),
		slog.Int("max_retries", maxRetries),
		slog.String("error", lastErr.Error()),
	)
	return zero, lastErr
}
