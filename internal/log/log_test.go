package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultConfig(t *testing.T) {
	t.Parallel()

	logger := New(nil)
	assert.NotNil(t, logger)
}

func TestNew_JSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&Config{
		Output: &buf,
		Level:  slog.LevelInfo,
		JSON:   true,
	})

	logger.Info("test message", "key", "value")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Contains(t, entry, "ts")
	assert.NotContains(t, entry, "time")
	assert.Contains(t, entry, "level")
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestNew_TextOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&Config{Output: &buf, Level: slog.LevelInfo})

	logger.Info("hello", "strategy", "tcp")

	assert.Contains(t, buf.String(), "ts=")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "strategy=tcp")
}

func TestNew_DefaultLevelHidesInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&Config{Output: &buf, Level: DefaultConfig().Level})

	logger.Info("info message")
	logger.Warn("warn message")

	assert.NotContains(t, buf.String(), "info message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestNew_DebugOverridesLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&Config{Output: &buf, Level: slog.LevelError, Debug: true})

	logger.Debug("debug message")

	assert.Contains(t, buf.String(), "debug message")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("INFO"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("bogus"))
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&Config{Output: &buf, Debug: true, JSON: true})

	LogConnected(logger, "tcp", "socket", "127.0.0.1:1234")
	LogStrategyFailed(logger, "exe-script", errors.New("boom"))
	LogStrategySkipped(logger, "override", "not configured")
	LogNoBackend(logger)
	LogQueryTimeout(logger, "GETHEADING", time.Second)
	LogSendFailed(logger, "FORWARD 1", errors.New("epipe"))
	LogShutdown(logger, "pipe", nil)
	LogShutdown(logger, "pipe", errors.New("exit 1"))
	LogJournalError(logger, "record", errors.New("locked"))

	out := buf.String()
	for _, want := range []string{
		`"msg":"backend connected"`,
		`"target":"127.0.0.1:1234"`,
		`"msg":"backend strategy failed"`,
		`"error":"boom"`,
		`"msg":"backend strategy skipped"`,
		`"msg":"no drawing backend available; drawing commands will be ignored"`,
		`"timeout_ms":1000`,
		`"command":"FORWARD 1"`,
		`"msg":"backend shutdown"`,
		`"operation":"record"`,
	} {
		assert.Contains(t, out, want)
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	logger := Discard()
	logger.Error("nothing to see")
	assert.NotNil(t, logger)
}

func TestNewFromSettings(t *testing.T) {
	t.Parallel()

	logger := NewFromSettings("debug", "json")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger = NewFromSettings("error", "text")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelWarn))
}
