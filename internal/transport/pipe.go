package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/execabs"

	"github.com/runger/turtlert/internal/command"
)

// DefaultWaitTimeout bounds how long Close waits for the backend process to
// exit after its stdin is closed.
const DefaultWaitTimeout = 2 * time.Second

// SpawnOptions configures a backend child process.
type SpawnOptions struct {
	// Stdout and Stderr receive the child's output (default: this process's).
	Stdout io.Writer
	Stderr io.Writer

	// WaitTimeout bounds Close; after it expires the child is killed.
	WaitTimeout time.Duration
}

// PipeTransport implements Transport over the stdin of a spawned backend.
type PipeTransport struct {
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	w           *bufio.Writer
	waitTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Spawn starts argv[0] with the remaining arguments and wires a pipe to its
// standard input. The child is not waited for until Close.
func Spawn(argv []string, opts SpawnOptions) (*PipeTransport, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("empty backend command")
	}

	// execabs refuses binaries that PATH lookup resolves relative to the
	// working directory.
	cmd := execabs.Command(argv[0], argv[1:]...)
	cmd.Stdout = opts.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	wait := opts.WaitTimeout
	if wait <= 0 {
		wait = DefaultWaitTimeout
	}

	return &PipeTransport{
		cmd:         cmd,
		stdin:       stdin,
		w:           bufio.NewWriter(stdin),
		waitTimeout: wait,
	}, nil
}

// Send writes the line plus newline and flushes, so the backend sees each
// command before the caller continues.
func (t *PipeTransport) Send(cmd command.Command) error {
	if _, err := t.w.WriteString(cmd.String()); err != nil {
		return fmt.Errorf("pipe write: %w", err)
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("pipe write: %w", err)
	}
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("pipe flush: %w", err)
	}
	return nil
}

// Close closes stdin and waits for the child to exit, killing it if it
// outlives the wait timeout.
func (t *PipeTransport) Close() error {
	t.closeOnce.Do(func() {
		_ = t.w.Flush()
		if err := t.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			t.closeErr = fmt.Errorf("failed to close stdin: %w", err)
		}

		done := make(chan error, 1)
		go func() {
			done <- t.cmd.Wait()
		}()

		timer := time.NewTimer(t.waitTimeout)
		defer timer.Stop()

		select {
		case err := <-done:
			if err != nil && t.closeErr == nil {
				t.closeErr = fmt.Errorf("backend exited: %w", err)
			}
		case <-timer.C:
			_ = t.cmd.Process.Kill()
			<-done
			if t.closeErr == nil {
				t.closeErr = fmt.Errorf("backend did not exit within %v", t.waitTimeout)
			}
		}
	})
	return t.closeErr
}

// Pid returns the child's process id.
func (t *PipeTransport) Pid() int {
	return t.cmd.Process.Pid
}

func (t *PipeTransport) Kind() Kind     { return KindPipe }
func (t *PipeTransport) Target() string { return strings.Join(t.cmd.Args, " ") }

var _ Transport = (*PipeTransport)(nil)
