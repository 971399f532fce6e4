package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/logger"
)

func TestSpanTree(t *testing.T) {
	ctx := logger.WithRunID(context.Background(), "r1")
	ctx, root := Start(ctx, "build")
	_, agg := Start(ctx, "aggregate")
	time.Sleep(5 * time.Millisecond)
	agg.End()
	_, save := Start(ctx, "save")
	save.SetAttr("path", "/tmp/index")
	save.End()
	root.End()

	assert.Equal(t, "r1", root.RunID)
	children := root.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "aggregate", children[0].Name)
	assert.Equal(t, "r1", children[0].RunID)
	assert.GreaterOrEqual(t, children[0].Duration, 5*time.Millisecond)
	assert.GreaterOrEqual(t, root.Duration, children[0].Duration)
	assert.Same(t, root, FromContext(ctx))
}

func TestSpanLog(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := Start(context.Background(), "build")
	_, child := Start(ctx, "merge")
	child.SetAttr("words", 3)
	child.End()
	root.End()
	root.Log(l)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "span=build")
	assert.Contains(t, lines[1], "span=merge")
	assert.Contains(t, lines[1], "depth=1")
	assert.Contains(t, lines[1], "words=3")
}

func TestFromContextEmpty(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
}
