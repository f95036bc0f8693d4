// Package turtletest provides a fake drawing backend for tests.
//
// Backend listens on a loopback TCP port, records every command line it
// receives and answers GETHEADING, RANDINT and POWINT by writing the result
// into the quoted channel path, the same way a real backend does.
package turtletest

import (
	"bufio"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Backend is an in-process fake backend.
type Backend struct {
	ln net.Listener

	mu      sync.Mutex
	lines   []string
	heading int
	silent  bool
	delay   time.Duration
	conns   []net.Conn
	closed  bool
	notify  chan struct{}

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewBackend starts a backend on 127.0.0.1 and stops it when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("turtletest: listen: %v", err)
	}
	b := &Backend{ln: ln, notify: make(chan struct{}, 1)}

	b.wg.Add(1)
	go b.acceptLoop()

	t.Cleanup(b.Close)
	return b
}

// Addr returns the host:port the backend listens on.
func (b *Backend) Addr() string {
	return b.ln.Addr().String()
}

// SetHeading sets the value reported to GETHEADING.
func (b *Backend) SetHeading(h int) {
	b.mu.Lock()
	b.heading = h
	b.mu.Unlock()
}

// SetSilent stops the backend from answering queries.
func (b *Backend) SetSilent(silent bool) {
	b.mu.Lock()
	b.silent = silent
	b.mu.Unlock()
}

// SetReplyDelay delays every query answer.
func (b *Backend) SetReplyDelay(d time.Duration) {
	b.mu.Lock()
	b.delay = d
	b.mu.Unlock()
}

// Lines returns a copy of every line received so far.
func (b *Backend) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}

// WaitForLines blocks until at least n lines arrived or timeout passes, and
// returns whatever was received.
func (b *Backend) WaitForLines(n int, timeout time.Duration) []string {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		lines := b.Lines()
		if len(lines) >= n {
			return lines
		}
		select {
		case <-b.notify:
		case <-deadline.C:
			return b.Lines()
		}
	}
}

// Close stops listening and drops open connections.
func (b *Backend) Close() {
	b.closeOnce.Do(func() {
		b.ln.Close()
		b.mu.Lock()
		b.closed = true
		for _, c := range b.conns {
			c.Close()
		}
		b.mu.Unlock()
		b.wg.Wait()
	})
}

func (b *Backend) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			conn.Close()
			return
		}
		b.conns = append(b.conns, conn)
		b.wg.Add(1)
		b.mu.Unlock()

		go b.serve(conn)
	}
}

func (b *Backend) serve(conn net.Conn) {
	defer b.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()

		b.mu.Lock()
		b.lines = append(b.lines, line)
		heading, silent, delay := b.heading, b.silent, b.delay
		b.mu.Unlock()

		select {
		case b.notify <- struct{}{}:
		default:
		}

		if silent {
			continue
		}
		if path, value, ok := Respond(line, heading); ok {
			if delay > 0 {
				time.Sleep(delay)
			}
			_ = os.WriteFile(path, []byte(strconv.Itoa(value)), 0600)
		}
	}
}

// Respond computes a query answer for line. RANDINT answers max-1 so tests
// stay deterministic.
func Respond(line string, heading int) (path string, value int, ok bool) {
	start := strings.IndexByte(line, '"')
	end := strings.LastIndexByte(line, '"')
	if start < 0 || end <= start {
		return "", 0, false
	}
	path = line[start+1 : end]

	fields := strings.Fields(line[:start])
	if len(fields) == 0 {
		return "", 0, false
	}
	args := make([]int, 0, len(fields)-1)
	for _, f := range fields[1:] {
		n, err := strconv.Atoi(f)
		if err != nil {
			return "", 0, false
		}
		args = append(args, n)
	}

	switch {
	case fields[0] == "GETHEADING" && len(args) == 0:
		return path, heading, true
	case fields[0] == "RANDINT" && len(args) == 1:
		return path, max(args[0]-1, 0), true
	case fields[0] == "POWINT" && len(args) == 2:
		return path, ipow(args[0], args[1]), true
	}
	return "", 0, false
}

func ipow(a, e int) int {
	if e < 0 {
		return 0
	}
	r := 1
	for ; e > 0; e-- {
		r *= a
	}
	return r
}
