// Package connect picks and opens the transport to the drawing backend.
//
// Strategies are tried strictly in order and the first success wins:
//
//  1. tcp: dial TURTLE_TCP_ADDR (embedded backend already running)
//  2. exe-script: spawn TURTLE_PY_EXE -u TURTLE_PY_SCRIPT
//  3. override: spawn TURTLE_PY_CMD, split with shell word rules
//  4. fallback: spawn the platform interpreter on drawing.py next to the
//     running executable
//
// A failed strategy is logged and never retried.
package connect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/runger/turtlert/internal/config"
	tlog "github.com/runger/turtlert/internal/log"
	"github.com/runger/turtlert/internal/transport"
)

// ErrNoBackend is returned when every strategy failed or was skipped.
var ErrNoBackend = errors.New("no drawing backend available")

// DialFunc opens a socket transport.
type DialFunc func(ctx context.Context, addr string, timeout time.Duration) (transport.Transport, error)

// SpawnFunc starts a backend process and returns its pipe transport.
type SpawnFunc func(argv []string, opts transport.SpawnOptions) (transport.Transport, error)

// writeDeadliner is implemented by transports that bound each Send.
type writeDeadliner interface {
	SetWriteTimeout(d time.Duration)
}

// Connector establishes exactly one transport.
type Connector struct {
	backend      config.BackendConfig
	dialTimeout  time.Duration
	writeTimeout time.Duration
	spawnOpts    transport.SpawnOptions
	getenv       func(string) string
	logger       *slog.Logger

	dial  DialFunc
	spawn SpawnFunc
}

// Option configures a Connector.
type Option func(*Connector)

// WithDialer replaces the TCP dialer.
func WithDialer(fn DialFunc) Option {
	return func(c *Connector) { c.dial = fn }
}

// WithSpawner replaces the process spawner.
func WithSpawner(fn SpawnFunc) Option {
	return func(c *Connector) { c.spawn = fn }
}

// WithGetenv replaces the environment lookup used at connect time.
func WithGetenv(fn func(string) string) Option {
	return func(c *Connector) { c.getenv = fn }
}

// WithSpawnOptions sets how backend processes are started.
func WithSpawnOptions(opts transport.SpawnOptions) Option {
	return func(c *Connector) { c.spawnOpts = opts }
}

// New creates a Connector from the loaded configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Connector {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = tlog.Discard()
	}
	c := &Connector{
		backend:      cfg.Backend,
		dialTimeout:  cfg.DialTimeout(),
		writeTimeout: cfg.WriteTimeout(),
		spawnOpts:    transport.SpawnOptions{WaitTimeout: cfg.WaitTimeout()},
		getenv:       os.Getenv,
		logger:       logger,
		dial:         dialSocket,
		spawn:        spawnPipe,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Directive resolves the current connection directive. Environment
// variables are read on every call.
func (c *Connector) Directive() Directive {
	return Resolve(c.backend, c.getenv)
}

// Connect runs the strategies in order and returns the first transport
// that opens, along with the strategy that produced it.
func (c *Connector) Connect(ctx context.Context) (transport.Transport, Strategy, error) {
	for _, attempt := range c.Directive().Plan() {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		if attempt.Skip != "" {
			tlog.LogStrategySkipped(c.logger, string(attempt.Strategy), attempt.Skip)
			continue
		}

		t, err := c.try(ctx, attempt)
		if err != nil {
			tlog.LogStrategyFailed(c.logger, string(attempt.Strategy), err)
			continue
		}

		tlog.LogConnected(c.logger, string(attempt.Strategy), t.Kind().String(), t.Target())
		return t, attempt.Strategy, nil
	}

	tlog.LogNoBackend(c.logger)
	return nil, "", ErrNoBackend
}

func (c *Connector) try(ctx context.Context, a Attempt) (transport.Transport, error) {
	if a.Strategy == StrategyTCP {
		t, err := c.dial(ctx, a.Addr, c.dialTimeout)
		if err != nil {
			return nil, err
		}
		if wd, ok := t.(writeDeadliner); ok {
			wd.SetWriteTimeout(c.writeTimeout)
		}
		return t, nil
	}
	t, err := c.spawn(a.Argv, c.spawnOpts)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", a.Argv[0], err)
	}
	return t, nil
}

func dialSocket(ctx context.Context, addr string, timeout time.Duration) (transport.Transport, error) {
	t, err := transport.DialSocket(ctx, addr, timeout)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func spawnPipe(argv []string, opts transport.SpawnOptions) (transport.Transport, error) {
	t, err := transport.Spawn(argv, opts)
	if err != nil {
		return nil, err
	}
	return t, nil
}
