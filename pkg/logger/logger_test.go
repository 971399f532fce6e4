package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriterJSON(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	var buf bytes.Buffer
	SetupWriter(&buf, "warn", "json")

	ctx := WithRunID(context.Background(), "run-7")
	FromContext(ctx).Info("hidden")
	FromContext(ctx).Warn("shown", "file", "a.json")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "run-7", rec["run_id"])
	assert.Equal(t, "a.json", rec["file"])
}

func TestRunID(t *testing.T) {
	assert.Equal(t, "", RunID(context.Background()))
	assert.Equal(t, "x", RunID(WithRunID(context.Background(), "x")))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
