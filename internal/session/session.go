// Package session owns the runtime's single connection to a drawing backend.
//
// A Session is created uninitialized. Connect establishes exactly one
// transport through the connector and is a no-op while one is live.
// Shutdown sends QUIT, gives the backend a moment to drain, closes the
// transport and returns the session to the uninitialized state. A Session
// is not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/runger/turtlert/internal/command"
	"github.com/runger/turtlert/internal/config"
	"github.com/runger/turtlert/internal/connect"
	tlog "github.com/runger/turtlert/internal/log"
	"github.com/runger/turtlert/internal/query"
	"github.com/runger/turtlert/internal/transport"
)

// ErrNotConnected is returned by Send and Query before Connect succeeded.
var ErrNotConnected = errors.New("not connected to a drawing backend")

// DefaultQuitGrace is how long Shutdown waits after QUIT before closing.
const DefaultQuitGrace = 50 * time.Millisecond

// Connector opens a transport to a backend.
type Connector interface {
	Connect(ctx context.Context) (transport.Transport, connect.Strategy, error)
}

// Recorder journals the lines a session sends. Implemented by
// *journal.Store.
type Recorder interface {
	Begin(ctx context.Context, strategy, target string) (string, error)
	Record(ctx context.Context, sessionID, line string, sent bool) error
	End(ctx context.Context, sessionID string) error
}

// Options configures a Session. Zero values select the defaults.
type Options struct {
	Query     query.Options
	QuitGrace time.Duration

	// Recorder is optional.
	Recorder Recorder
}

// OptionsFromConfig maps the query and lifecycle config sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Query: query.Options{
			Timeout:      cfg.QueryTimeout(),
			PollInterval: cfg.PollInterval(),
			Dir:          cfg.Query.ChannelDir,
		},
		QuitGrace: cfg.QuitGrace(),
	}
}

// Session is the runtime state: the live transport, the query bridge built
// on it and the journal session id.
type Session struct {
	connector Connector
	opts      Options
	logger    *slog.Logger

	transport transport.Transport
	strategy  connect.Strategy
	bridge    *query.Bridge
	journalID string

	sleep func(time.Duration)
}

// New creates an uninitialized Session.
func New(connector Connector, opts Options, logger *slog.Logger) *Session {
	if opts.QuitGrace <= 0 {
		opts.QuitGrace = DefaultQuitGrace
	}
	if logger == nil {
		logger = tlog.Discard()
	}
	return &Session{
		connector: connector,
		opts:      opts,
		logger:    logger,
		sleep:     time.Sleep,
	}
}

// Connected reports whether a transport is live.
func (s *Session) Connected() bool {
	return s.transport != nil
}

// Strategy returns the strategy that produced the live transport.
func (s *Session) Strategy() connect.Strategy {
	return s.strategy
}

// Transport returns the live transport, or nil.
func (s *Session) Transport() transport.Transport {
	return s.transport
}

// JournalID returns the current journal session id, or "" when the session
// is not being journaled.
func (s *Session) JournalID() string {
	return s.journalID
}

// Connect establishes the backend transport. It returns nil immediately if
// one is already live.
func (s *Session) Connect(ctx context.Context) error {
	if s.transport != nil {
		return nil
	}

	t, strategy, err := s.connector.Connect(ctx)
	if err != nil {
		return err
	}

	s.transport = t
	s.strategy = strategy
	s.bridge = query.New(s, s.opts.Query, s.logger)

	if s.opts.Recorder != nil {
		id, err := s.opts.Recorder.Begin(ctx, string(strategy), t.Target())
		if err != nil {
			tlog.LogJournalError(s.logger, "begin", err)
		} else {
			s.journalID = id
		}
	}
	return nil
}

// Send writes one command to the backend.
func (s *Session) Send(cmd command.Command) error {
	if s.transport == nil {
		return ErrNotConnected
	}

	err := s.transport.Send(cmd)
	s.record(cmd, err == nil)
	if err != nil {
		tlog.LogSendFailed(s.logger, cmd.String(), err)
		return fmt.Errorf("send %s: %w", cmd.Verb(), err)
	}
	return nil
}

// Query runs a synchronous round trip for verb.
func (s *Session) Query(verb string, args ...int) (int, error) {
	if s.transport == nil {
		return 0, ErrNotConnected
	}
	v, err := s.bridge.Query(verb, args...)
	if errors.Is(err, query.ErrTimeout) {
		tlog.LogQueryTimeout(s.logger, verb, s.bridge.Timeout())
	}
	return v, err
}

// Heading asks the backend for the turtle's heading.
func (s *Session) Heading() (int, error) {
	return s.Query(command.VerbGetHeading)
}

// RandInt asks the backend for a random integer bounded by maxv. A
// non-positive bound yields 0 without a round trip.
func (s *Session) RandInt(maxv int) (int, error) {
	if maxv <= 0 {
		return 0, nil
	}
	return s.Query(command.VerbRandInt, maxv)
}

// PowInt asks the backend for a raised to e.
func (s *Session) PowInt(a, e int) (int, error) {
	return s.Query(command.VerbPowInt, a, e)
}

// Shutdown ends the session. It is a no-op when nothing is connected.
func (s *Session) Shutdown() error {
	if s.transport == nil {
		return nil
	}

	// The backend may already be gone; closing still has to happen.
	_ = s.Send(command.Quit())
	s.sleep(s.opts.QuitGrace)

	t := s.transport
	err := t.Close()
	tlog.LogShutdown(s.logger, t.Kind().String(), err)

	if s.journalID != "" {
		if jerr := s.opts.Recorder.End(context.Background(), s.journalID); jerr != nil {
			tlog.LogJournalError(s.logger, "end", jerr)
		}
	}

	s.transport = nil
	s.strategy = ""
	s.bridge = nil
	s.journalID = ""

	if err != nil {
		return fmt.Errorf("close %s transport: %w", t.Kind(), err)
	}
	return nil
}

func (s *Session) record(cmd command.Command, sent bool) {
	if s.journalID == "" {
		return
	}
	if err := s.opts.Recorder.Record(context.Background(), s.journalID, cmd.String(), sent); err != nil {
		tlog.LogJournalError(s.logger, "record", err)
	}
}
