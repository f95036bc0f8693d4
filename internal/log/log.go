// Package log provides structured logging for the turtle runtime.
//
// Diagnostics go to stderr so they never mix with anything the host program
// writes to stdout. The default level is warn: a drawing program should only
// hear from the runtime when something went wrong.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config configures the structured logger.
type Config struct {
	// Output is the writer for log output (default: os.Stderr)
	Output io.Writer

	// Level is the minimum log level (default: LevelWarn)
	Level slog.Level

	// Debug enables debug level logging (overrides Level)
	Debug bool

	// JSON selects JSON lines instead of logfmt-style text.
	JSON bool
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: os.Stderr,
		Level:  slog.LevelWarn,
	}
}

// New creates a structured logger. JSON output renames the time key to "ts":
//
//	{"ts":"2026-01-15T10:30:00Z","level":"INFO","msg":"backend connected","strategy":"tcp"}
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	level := cfg.Level
	if cfg.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Key = "ts"
			}
			return a
		},
	}

	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

// ParseLevel maps a config level name to a slog level. Unknown names map
// to warn.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// NewFromSettings builds a logger from config file values.
func NewFromSettings(level, format string) *slog.Logger {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(level)
	cfg.JSON = format == "json"
	return New(cfg)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LogConnected logs which strategy produced the active transport.
func LogConnected(logger *slog.Logger, strategy, transport, target string) {
	logger.Info("backend connected",
		"strategy", strategy,
		"transport", transport,
		"target", target,
	)
}

// LogStrategyFailed logs a connection strategy that did not work out.
func LogStrategyFailed(logger *slog.Logger, strategy string, err error) {
	logger.Warn("backend strategy failed", "strategy", strategy, "error", err)
}

// LogStrategySkipped logs a strategy that had nothing configured.
func LogStrategySkipped(logger *slog.Logger, strategy, reason string) {
	logger.Debug("backend strategy skipped", "strategy", strategy, "reason", reason)
}

// LogNoBackend logs that every strategy failed and drawing is disabled.
func LogNoBackend(logger *slog.Logger) {
	logger.Warn("no drawing backend available; drawing commands will be ignored")
}

// LogQueryTimeout logs a query that got no usable answer.
func LogQueryTimeout(logger *slog.Logger, verb string, timeout time.Duration) {
	logger.Warn("backend query timed out", "verb", verb, "timeout_ms", timeout.Milliseconds())
}

// LogSendFailed logs a command the transport could not deliver.
func LogSendFailed(logger *slog.Logger, line string, err error) {
	logger.Debug("send failed", "command", line, "error", err)
}

// LogShutdown logs the end of a session.
func LogShutdown(logger *slog.Logger, transport string, err error) {
	if err != nil {
		logger.Warn("backend shutdown", "transport", transport, "error", err)
		return
	}
	logger.Info("backend shutdown", "transport", transport)
}

// LogJournalError logs a journal failure; drawing continues regardless.
func LogJournalError(logger *slog.Logger, operation string, err error) {
	logger.Warn("journal error", "operation", operation, "error", err)
}
