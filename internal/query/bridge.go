// Package query implements synchronous round trips to the drawing backend.
//
// The backend has no reply channel of its own, so each query names a fresh
// temporary file in its command line and the bridge polls that file until
// the backend writes an integer into it or the timeout passes. The file is
// removed on every path out of Query.
package query

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/runger/turtlert/internal/command"
)

// Defaults match what existing backends are tuned for.
const (
	DefaultTimeout      = 1000 * time.Millisecond
	DefaultPollInterval = 10 * time.Millisecond
)

// channelPrefix starts every result file name.
const channelPrefix = "turtle-"

// ErrTimeout is returned when no parseable result appeared in time. A
// missing file and a malformed one are both reported this way.
var ErrTimeout = errors.New("query timed out")

// Sender delivers a command to the backend.
type Sender interface {
	Send(cmd command.Command) error
}

// Options configures a Bridge. Zero values select the defaults.
type Options struct {
	Timeout      time.Duration
	PollInterval time.Duration

	// Dir holds the result files (default: os.TempDir()).
	Dir string
}

// Bridge runs queries over a Sender.
type Bridge struct {
	sender  Sender
	timeout time.Duration
	poll    time.Duration
	dir     string
	logger  *slog.Logger
}

// New creates a Bridge. A nil logger discards output.
func New(sender Sender, opts Options, logger *slog.Logger) *Bridge {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bridge{
		sender:  sender,
		timeout: opts.Timeout,
		poll:    opts.PollInterval,
		dir:     opts.Dir,
		logger:  logger,
	}
}

// Timeout returns the configured maximum wait.
func (b *Bridge) Timeout() time.Duration { return b.timeout }

// PollInterval returns the configured sleep between reads.
func (b *Bridge) PollInterval() time.Duration { return b.poll }

// Heading returns the backend's current heading.
func (b *Bridge) Heading() (int, error) {
	return b.Query(command.VerbGetHeading)
}

// RandInt returns a backend-generated random integer bounded by maxv.
// A non-positive bound yields 0 without contacting the backend.
func (b *Bridge) RandInt(maxv int) (int, error) {
	if maxv <= 0 {
		return 0, nil
	}
	return b.Query(command.VerbRandInt, maxv)
}

// PowInt returns a raised to the power e, computed by the backend.
func (b *Bridge) PowInt(a, e int) (int, error) {
	return b.Query(command.VerbPowInt, a, e)
}

// Query sends `<verb> <args...> "<channel>"` and waits for the result.
func (b *Bridge) Query(verb string, args ...int) (int, error) {
	path, err := b.createChannel(verb)
	if err != nil {
		return 0, err
	}
	defer b.removeChannel(path)

	cmd, err := command.Query(verb, path, args...)
	if err != nil {
		return 0, err
	}
	if err := b.sender.Send(cmd); err != nil {
		return 0, fmt.Errorf("send %s: %w", verb, err)
	}

	start := time.Now()
	deadline := start.Add(b.timeout)
	for {
		if v, ok := readResult(path); ok {
			return v, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		time.Sleep(min(b.poll, remaining))
	}

	b.logger.Debug("query timed out",
		"verb", verb,
		"channel", path,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return 0, fmt.Errorf("%s after %v: %w", verb, b.timeout, ErrTimeout)
}

// createChannel makes an empty result file with a random name. O_EXCL keeps
// two processes from ever sharing one.
func (b *Bridge) createChannel(verb string) (string, error) {
	dir := b.dir
	if dir == "" {
		dir = os.TempDir()
	}
	name := channelPrefix + strings.ToLower(verb) + "-" + uuid.NewString()
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create query channel: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to create query channel: %w", err)
	}
	return path, nil
}

func (b *Bridge) removeChannel(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		b.logger.Debug("failed to remove query channel", "channel", path, "error", err)
	}
}

func readResult(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return ParseResult(data)
}
