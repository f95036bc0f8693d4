package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by ApplyEnvOverrides.
const (
	EnvConfig    = "TURTLE_CONFIG"
	EnvTCPAddr   = "TURTLE_TCP_ADDR"
	EnvPyExe     = "TURTLE_PY_EXE"
	EnvPyScript  = "TURTLE_PY_SCRIPT"
	EnvPyCmd     = "TURTLE_PY_CMD"
	EnvLogLevel  = "TURTLE_LOG_LEVEL"
	EnvDebug     = "TURTLE_DEBUG"
	EnvJournal   = "TURTLE_JOURNAL"
	EnvLogFormat = "TURTLE_LOG_FORMAT"
)

// DefaultFallbackScript is the backend script looked up next to the running
// executable when nothing else is configured.
const DefaultFallbackScript = "drawing.py"

// Config represents the turtlert configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Query     QueryConfig     `yaml:"query"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Journal   JournalConfig   `yaml:"journal"`
	Log       LogConfig       `yaml:"log"`
}

// BackendConfig holds the connection directive inputs.
type BackendConfig struct {
	TCPAddr             string `yaml:"tcp_addr"`             // host:port of an embedded backend
	Exe                 string `yaml:"exe"`                  // Interpreter executable
	Script              string `yaml:"script"`               // Backend script passed to Exe
	Command             string `yaml:"command"`              // Full override command line
	FallbackScript      string `yaml:"fallback_script"`      // Script name next to our own binary
	FallbackInterpreter string `yaml:"fallback_interpreter"` // Launcher for the fallback (empty = platform default)
	DialTimeoutMs       int    `yaml:"dial_timeout_ms"`      // TCP connect timeout
	WriteTimeoutMs      int    `yaml:"write_timeout_ms"`     // Per-command TCP write deadline (0 = none)
}

// QueryConfig holds synchronous query settings.
type QueryConfig struct {
	TimeoutMs      int    `yaml:"timeout_ms"`       // Max wait for a result
	PollIntervalMs int    `yaml:"poll_interval_ms"` // Sleep between result reads
	ChannelDir     string `yaml:"channel_dir"`      // Result file directory (empty = os temp dir)
}

// LifecycleConfig holds shutdown settings.
type LifecycleConfig struct {
	QuitGraceMs   int `yaml:"quit_grace_ms"`   // Pause after QUIT before closing
	WaitTimeoutMs int `yaml:"wait_timeout_ms"` // Max wait for a spawned backend to exit
}

// JournalConfig holds command journal settings.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"` // Record every sent command
	Path    string `yaml:"path"`    // SQLite file (empty = default data dir)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error; empty uses the caller's default
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			FallbackScript: DefaultFallbackScript,
			DialTimeoutMs:  2000,
			WriteTimeoutMs: 5000,
		},
		Query: QueryConfig{
			TimeoutMs:      1000,
			PollIntervalMs: 10,
		},
		Lifecycle: LifecycleConfig{
			QuitGraceMs:   50,
			WaitTimeoutMs: 2000,
		},
		Journal: JournalConfig{
			Enabled: false, // Must opt-in
		},
		Log: LogConfig{
			Level:  "", // Unset: warn for the library, info for the CLI
			Format: "text",
		},
	}
}

// Load reads the configuration from TURTLE_CONFIG or the default location.
func Load() (*Config, error) {
	return LoadFromFile(FilePath())
}

// FilePath returns the config file in use.
func FilePath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return DefaultPaths().ConfigFile()
}

// LoadFromFile reads configuration from path and applies environment
// overrides. A missing file yields the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ReadFile reads configuration from path without environment overrides.
// A missing file yields the defaults.
func ReadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Backend.DialTimeoutMs < 0 {
		return errors.New("backend.dial_timeout_ms must be >= 0")
	}
	if c.Backend.WriteTimeoutMs < 0 {
		return errors.New("backend.write_timeout_ms must be >= 0")
	}
	if c.Query.TimeoutMs < 0 {
		return errors.New("query.timeout_ms must be >= 0")
	}
	if c.Query.PollIntervalMs < 0 {
		return errors.New("query.poll_interval_ms must be >= 0")
	}
	if c.Lifecycle.QuitGraceMs < 0 {
		return errors.New("lifecycle.quit_grace_ms must be >= 0")
	}
	if c.Lifecycle.WaitTimeoutMs < 0 {
		return errors.New("lifecycle.wait_timeout_ms must be >= 0")
	}
	if c.Log.Level != "" && !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}
	if !isValidLogFormat(c.Log.Format) {
		return fmt.Errorf("log.format must be text or json (got: %s)", c.Log.Format)
	}
	return nil
}

// ApplyEnvOverrides applies TURTLE_* environment variables on top of the
// file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvTCPAddr); v != "" {
		c.Backend.TCPAddr = v
	}
	if v := os.Getenv(EnvPyExe); v != "" {
		c.Backend.Exe = v
	}
	if v := os.Getenv(EnvPyScript); v != "" {
		c.Backend.Script = v
	}
	if v := os.Getenv(EnvPyCmd); v != "" {
		c.Backend.Command = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		if isValidLogFormat(v) {
			c.Log.Format = v
		}
	}
	if v := os.Getenv(EnvJournal); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Journal.Enabled = b
		}
	}
}

// Get returns the value for a key in "section.key" form.
func (c *Config) Get(key string) (string, error) {
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "backend":
		return c.getBackendField(field)
	case "query":
		return c.getQueryField(field)
	case "lifecycle":
		return c.getLifecycleField(field)
	case "journal":
		return c.getJournalField(field)
	case "log":
		return c.getLogField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set assigns a value for a key in "section.key" form.
func (c *Config) Set(key, value string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "backend":
		return c.setBackendField(field, value)
	case "query":
		return c.setQueryField(field, value)
	case "lifecycle":
		return c.setLifecycleField(field, value)
	case "journal":
		return c.setJournalField(field, value)
	case "log":
		return c.setLogField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func splitKey(key string) (string, string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", "", errors.New("key must be in format 'section.key'")
	}
	return parts[0], parts[1], nil
}

func (c *Config) getBackendField(field string) (string, error) {
	switch field {
	case "tcp_addr":
		return c.Backend.TCPAddr, nil
	case "exe":
		return c.Backend.Exe, nil
	case "script":
		return c.Backend.Script, nil
	case "command":
		return c.Backend.Command, nil
	case "fallback_script":
		return c.Backend.FallbackScript, nil
	case "fallback_interpreter":
		return c.Backend.FallbackInterpreter, nil
	case "dial_timeout_ms":
		return strconv.Itoa(c.Backend.DialTimeoutMs), nil
	case "write_timeout_ms":
		return strconv.Itoa(c.Backend.WriteTimeoutMs), nil
	default:
		return "", fmt.Errorf("unknown field: backend.%s", field)
	}
}

func (c *Config) setBackendField(field, value string) error {
	switch field {
	case "tcp_addr":
		c.Backend.TCPAddr = value
	case "exe":
		c.Backend.Exe = value
	case "script":
		c.Backend.Script = value
	case "command":
		c.Backend.Command = value
	case "fallback_script":
		c.Backend.FallbackScript = value
	case "fallback_interpreter":
		c.Backend.FallbackInterpreter = value
	case "dial_timeout_ms":
		return setMillis(&c.Backend.DialTimeoutMs, field, value)
	case "write_timeout_ms":
		return setMillis(&c.Backend.WriteTimeoutMs, field, value)
	default:
		return fmt.Errorf("unknown field: backend.%s", field)
	}
	return nil
}

func (c *Config) getQueryField(field string) (string, error) {
	switch field {
	case "timeout_ms":
		return strconv.Itoa(c.Query.TimeoutMs), nil
	case "poll_interval_ms":
		return strconv.Itoa(c.Query.PollIntervalMs), nil
	case "channel_dir":
		return c.Query.ChannelDir, nil
	default:
		return "", fmt.Errorf("unknown field: query.%s", field)
	}
}

func (c *Config) setQueryField(field, value string) error {
	switch field {
	case "timeout_ms":
		return setMillis(&c.Query.TimeoutMs, field, value)
	case "poll_interval_ms":
		return setMillis(&c.Query.PollIntervalMs, field, value)
	case "channel_dir":
		c.Query.ChannelDir = value
	default:
		return fmt.Errorf("unknown field: query.%s", field)
	}
	return nil
}

func (c *Config) getLifecycleField(field string) (string, error) {
	switch field {
	case "quit_grace_ms":
		return strconv.Itoa(c.Lifecycle.QuitGraceMs), nil
	case "wait_timeout_ms":
		return strconv.Itoa(c.Lifecycle.WaitTimeoutMs), nil
	default:
		return "", fmt.Errorf("unknown field: lifecycle.%s", field)
	}
}

func (c *Config) setLifecycleField(field, value string) error {
	switch field {
	case "quit_grace_ms":
		return setMillis(&c.Lifecycle.QuitGraceMs, field, value)
	case "wait_timeout_ms":
		return setMillis(&c.Lifecycle.WaitTimeoutMs, field, value)
	default:
		return fmt.Errorf("unknown field: lifecycle.%s", field)
	}
}

func (c *Config) getJournalField(field string) (string, error) {
	switch field {
	case "enabled":
		return strconv.FormatBool(c.Journal.Enabled), nil
	case "path":
		return c.Journal.Path, nil
	default:
		return "", fmt.Errorf("unknown field: journal.%s", field)
	}
}

func (c *Config) setJournalField(field, value string) error {
	switch field {
	case "enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for enabled: %w", err)
		}
		c.Journal.Enabled = v
	case "path":
		c.Journal.Path = value
	default:
		return fmt.Errorf("unknown field: journal.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "format":
		return c.Log.Format, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "format":
		if !isValidLogFormat(value) {
			return fmt.Errorf("invalid log format: %s (must be text or json)", value)
		}
		c.Log.Format = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

func setMillis(dst *int, field, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", field, err)
	}
	if v < 0 {
		return fmt.Errorf("invalid %s: must be non-negative", field)
	}
	*dst = v
	return nil
}

// ListKeys returns all user-settable keys.
func ListKeys() []string {
	return []string{
		"backend.tcp_addr",
		"backend.exe",
		"backend.script",
		"backend.command",
		"backend.fallback_script",
		"backend.fallback_interpreter",
		"backend.dial_timeout_ms",
		"backend.write_timeout_ms",
		"query.timeout_ms",
		"query.poll_interval_ms",
		"query.channel_dir",
		"lifecycle.quit_grace_ms",
		"lifecycle.wait_timeout_ms",
		"journal.enabled",
		"journal.path",
		"log.level",
		"log.format",
	}
}

// DialTimeout returns backend.dial_timeout_ms as a duration.
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.Backend.DialTimeoutMs) * time.Millisecond
}

// WriteTimeout returns backend.write_timeout_ms as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Backend.WriteTimeoutMs) * time.Millisecond
}

// QueryTimeout returns query.timeout_ms as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Query.TimeoutMs) * time.Millisecond
}

// PollInterval returns query.poll_interval_ms as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Query.PollIntervalMs) * time.Millisecond
}

// QuitGrace returns lifecycle.quit_grace_ms as a duration.
func (c *Config) QuitGrace() time.Duration {
	return time.Duration(c.Lifecycle.QuitGraceMs) * time.Millisecond
}

// WaitTimeout returns lifecycle.wait_timeout_ms as a duration.
func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Lifecycle.WaitTimeoutMs) * time.Millisecond
}

// JournalPath returns the journal database path, resolving the default.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return DefaultPaths().JournalFile()
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidLogFormat(format string) bool {
	switch format {
	case "text", "json":
		return true
	default:
		return false
	}
}
