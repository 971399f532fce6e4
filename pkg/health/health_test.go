package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunAllUp(t *testing.T) {
	c := NewChecker()
	c.Register("sqlite", Ping(func(ctx context.Context) error { return nil }))
	c.Register("redis", Ping(func(ctx context.Context) error { return nil }))

	report := c.Run(context.Background(), time.Second)
	assert.Equal(t, StatusUp, report.Status)
	assert.Equal(t, []string{"redis", "sqlite"}, report.Names())
	assert.NotEmpty(t, report.Components["redis"].Latency)
}

func TestRunOneDown(t *testing.T) {
	c := NewChecker()
	c.Register("sqlite", Ping(func(ctx context.Context) error { return nil }))
	c.Register("kafka", Ping(func(ctx context.Context) error { return errors.New("connection refused") }))

	report := c.Run(context.Background(), time.Second)
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, StatusUp, report.Components["sqlite"].Status)
	assert.Equal(t, "connection refused", report.Components["kafka"].Message)
}

func TestRunBoundsSlowChecks(t *testing.T) {
	c := NewChecker()
	c.Register("postgres", Ping(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	start := time.Now()
	report := c.Run(context.Background(), 20*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusDown, report.Status)
}

func TestRunEmpty(t *testing.T) {
	report := NewChecker().Run(context.Background(), 0)
	assert.Equal(t, StatusUp, report.Status)
	assert.Empty(t, report.Names())
}
