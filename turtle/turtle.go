// Package turtle is the call-compatible surface of the runtime: plain
// functions that forward turtle-graphics primitives to a drawing backend.
//
// None of them return errors or panic. Before Init succeeds, and after every
// connection strategy has failed, drawing calls do nothing and queries
// return 0. Diagnostics go to the structured logger on stderr.
//
//	turtle.Init()
//	defer turtle.Shutdown()
//	turtle.PenDown()
//	for i := 0; i < 4; i++ {
//		turtle.Forward(100)
//		turtle.Right(90)
//	}
//
// Programs that want their own instance, or several, use New.
package turtle

import (
	"context"
	"log/slog"
	"time"

	"github.com/runger/turtlert/internal/command"
	"github.com/runger/turtlert/internal/config"
	"github.com/runger/turtlert/internal/connect"
	"github.com/runger/turtlert/internal/journal"
	tlog "github.com/runger/turtlert/internal/log"
	"github.com/runger/turtlert/internal/session"
)

// Turtle is one runtime session with a non-failing API.
type Turtle struct {
	session *session.Session
	store   *journal.Store
	logger  *slog.Logger
	sleep   func(time.Duration)
}

type options struct {
	cfg       *config.Config
	logger    *slog.Logger
	connector session.Connector
}

// Option configures New.
type Option func(*options)

// WithConfig uses cfg instead of loading the config file.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger replaces the logger built from config.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithConnector replaces the strategy-based connector.
func WithConnector(c session.Connector) Option {
	return func(o *options) { o.connector = c }
}

// New creates an unconnected Turtle. Config problems are logged and the
// defaults used instead.
func New(opts ...Option) *Turtle {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	var loadErr error
	if cfg == nil {
		cfg, loadErr = config.Load()
		if loadErr != nil {
			cfg = config.DefaultConfig()
			cfg.ApplyEnvOverrides()
		}
	}

	logger := o.logger
	if logger == nil {
		logger = tlog.NewFromSettings(cfg.Log.Level, cfg.Log.Format)
	}
	if loadErr != nil {
		logger.Warn("config not loaded, using defaults", "path", config.FilePath(), "error", loadErr)
	}

	connector := o.connector
	if connector == nil {
		connector = connect.New(cfg, logger)
	}

	t := &Turtle{logger: logger, sleep: time.Sleep}
	sopts := session.OptionsFromConfig(cfg)
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.JournalPath())
		if err != nil {
			tlog.LogJournalError(logger, "open", err)
		} else {
			t.store = store
			sopts.Recorder = store
		}
	}
	t.session = session.New(connector, sopts, logger)
	return t
}

// Init connects to the backend. Calling it again while connected does
// nothing.
func (t *Turtle) Init() {
	_ = t.session.Connect(context.Background())
}

// Connected reports whether a backend is attached.
func (t *Turtle) Connected() bool {
	return t.session.Connected()
}

// Shutdown asks the backend to quit and disconnects.
func (t *Turtle) Shutdown() {
	_ = t.session.Shutdown()
}

// Close shuts down and releases the journal.
func (t *Turtle) Close() {
	t.Shutdown()
	if t.store != nil {
		if err := t.store.Close(); err != nil {
			tlog.LogJournalError(t.logger, "close", err)
		}
	}
}

func (t *Turtle) send(cmd command.Command) {
	_ = t.session.Send(cmd)
}

func (t *Turtle) query(v int, err error) int {
	if err != nil {
		return 0
	}
	return v
}

// Forward moves forward d pixels.
func (t *Turtle) Forward(d int) { t.send(command.Forward(d)) }

// Back moves backward d pixels.
func (t *Turtle) Back(d int) { t.send(command.Back(d)) }

// Right turns clockwise by deg degrees.
func (t *Turtle) Right(deg int) { t.send(command.Right(deg)) }

// Left turns counterclockwise by deg degrees.
func (t *Turtle) Left(deg int) { t.send(command.Left(deg)) }

// SetPosition moves to (x, y).
func (t *Turtle) SetPosition(x, y int) { t.send(command.Position(x, y)) }

// SetXY is SetPosition.
func (t *Turtle) SetXY(x, y int) { t.send(command.Position(x, y)) }

// SetX moves horizontally to x.
func (t *Turtle) SetX(x int) { t.send(command.PosX(x)) }

// SetY moves vertically to y.
func (t *Turtle) SetY(y int) { t.send(command.PosY(y)) }

// SetHeading sets the absolute heading in degrees.
func (t *Turtle) SetHeading(h int) { t.send(command.SetHeading(h)) }

// PenUp stops drawing while moving.
func (t *Turtle) PenUp() { t.send(command.PenUp()) }

// PenDown draws while moving.
func (t *Turtle) PenDown() { t.send(command.PenDown()) }

// Hide hides the turtle.
func (t *Turtle) Hide() { t.send(command.Hide()) }

// Show shows the turtle.
func (t *Turtle) Show() { t.send(command.Show()) }

// SetColor selects a palette index.
func (t *Turtle) SetColor(c int) { t.send(command.Color(c)) }

// Delay asks the backend to pause its animation for ms milliseconds.
func (t *Turtle) Delay(ms int) { t.send(command.Delay(ms)) }

// Center returns to the canvas center.
func (t *Turtle) Center() { t.send(command.Center()) }

// Speed sets the movement speed in pixels per second.
func (t *Turtle) Speed(px int) { t.send(command.Speed(px)) }

// TurnSpeed sets the rotation speed in degrees per second.
func (t *Turtle) TurnSpeed(deg int) { t.send(command.TurnSpeed(deg)) }

// SetColorName sets the pen color by name. Names that are not a single
// word of ASCII letters are dropped.
func (t *Turtle) SetColorName(name string) {
	cmd, err := command.ColorName(name)
	if err != nil {
		t.logger.Debug("color name rejected", "name", name, "error", err)
		return
	}
	t.send(cmd)
}

// SleepMs pauses the caller. Nothing is sent to the backend.
func (t *Turtle) SleepMs(ms int) {
	if ms > 0 {
		t.sleep(time.Duration(ms) * time.Millisecond)
	}
}

// Heading returns the backend's heading, or 0 if it did not answer in time.
func (t *Turtle) Heading() int { return t.query(t.session.Heading()) }

// RandInt returns a backend random number bounded by maxv, or 0.
func (t *Turtle) RandInt(maxv int) int { return t.query(t.session.RandInt(maxv)) }

// PowInt returns a raised to e as computed by the backend, or 0.
func (t *Turtle) PowInt(a, e int) int { return t.query(t.session.PowInt(a, e)) }
