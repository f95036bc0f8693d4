package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/turtlert/internal/config"
	"github.com/runger/turtlert/internal/connect"
	"github.com/runger/turtlert/internal/journal"
	tlog "github.com/runger/turtlert/internal/log"
	"github.com/runger/turtlert/internal/session"
	"github.com/runger/turtlert/internal/transport"
)

// loadConfig reads --config, TURTLE_CONFIG or the default file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromFile(configFileInUse())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if tcpAddr != "" {
		cfg.Backend.TCPAddr = tcpAddr
	}
	return cfg, nil
}

// newLogger writes to the command's stderr. --log-level wins when given,
// then log.level or TURTLE_LOG_LEVEL, then info.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level := cfg.Log.Level
	if cmd.Flags().Changed("log-level") || level == "" {
		level = logLevel
	}
	return tlog.New(&tlog.Config{
		Output: cmd.ErrOrStderr(),
		Level:  tlog.ParseLevel(level),
		Debug:  debugLog,
		JSON:   cfg.Log.Format == "json",
	})
}

// getenv lets --tcp win over TURTLE_TCP_ADDR at connect time.
func getenv(key string) string {
	if key == config.EnvTCPAddr && tcpAddr != "" {
		return tcpAddr
	}
	return os.Getenv(key)
}

func newConnector(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) *connect.Connector {
	return connect.New(cfg, logger,
		connect.WithGetenv(getenv),
		connect.WithSpawnOptions(transport.SpawnOptions{
			Stdout:      cmd.OutOrStdout(),
			Stderr:      cmd.ErrOrStderr(),
			WaitTimeout: cfg.WaitTimeout(),
		}),
	)
}

// drawSession is a connected session plus the journal it writes to.
type drawSession struct {
	*session.Session
	store *journal.Store
}

// openSession loads config, opens the journal if enabled and connects.
func openSession(cmd *cobra.Command) (*drawSession, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd, cfg)

	opts := session.OptionsFromConfig(cfg)
	rt := &drawSession{}
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.JournalPath())
		if err != nil {
			tlog.LogJournalError(logger, "open", err)
		} else {
			rt.store = store
			opts.Recorder = store
		}
	}

	rt.Session = session.New(newConnector(cmd, cfg, logger), opts, logger)
	if err := rt.Connect(cmd.Context()); err != nil {
		rt.closeStore()
		return nil, err
	}
	return rt, nil
}

// close shuts the session down and releases the journal.
func (rt *drawSession) close() error {
	err := rt.Shutdown()
	rt.closeStore()
	return err
}

func (rt *drawSession) closeStore() {
	if rt.store != nil {
		_ = rt.store.Close()
	}
}

// openJournal opens the configured journal for reading.
func openJournal() (*journal.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path := cfg.JournalPath()
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no journal at %s (enable with journal.enabled or TURTLE_JOURNAL=1)", path)
	}
	return journal.Open(path)
}
