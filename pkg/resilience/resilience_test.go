package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("connection refused")

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "redis-save", fastRetry(), func() error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "kafka-publish", fastRetry(), func() error {
		calls++
		return errFlaky
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanent(t *testing.T) {
	errBad := errors.New("corrupt")
	cfg := fastRetry()
	cfg.Permanent = func(err error) bool { return errors.Is(err, errBad) }
	calls := 0
	err := Retry(context.Background(), "sql-save", cfg, func() error {
		calls++
		return errBad
	})
	assert.ErrorIs(t, err, errBad)
	assert.Equal(t, 1, calls)
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 20*time.Millisecond, "slow-sink", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsContextError(err))

	err = WithTimeout(context.Background(), 0, "no-limit", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestRetryWithTimeoutRetriesEachAttempt(t *testing.T) {
	calls := 0
	err := RetryWithTimeout(context.Background(), "sink", fastRetry(), 10*time.Millisecond, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 35 * time.Millisecond}.withDefaults()
	first := backoff(1, cfg)
	assert.InDelta(t, float64(10*time.Millisecond), float64(first), float64(time.Millisecond))
	second := backoff(2, cfg)
	assert.InDelta(t, float64(20*time.Millisecond), float64(second), float64(2*time.Millisecond))
	assert.LessOrEqual(t, backoff(5, cfg), 35*time.Millisecond)
}

func TestRetryAbortsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Second}
	err := Retry(ctx, "postgres-save", cfg, func() error {
		calls++
		cancel()
		return errFlaky
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
