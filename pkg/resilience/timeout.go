package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// WithTimeout runs fn with a derived context that is cancelled after the
// given timeout. A sink that ignores its context is abandoned once the
// limit passes and context.DeadlineExceeded is returned. A timeout of zero
// or less runs fn with ctx unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()
	select {
	case err := <-done:
		return err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		slog.Default().Warn("operation timed out", "component", "timeout", "operation", name, "limit", timeout)
		return fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	}
}
