package query

import (
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/turtlert/internal/command"
)

// stubBackend answers queries by writing reply into the quoted channel path.
type stubBackend struct {
	mu      sync.Mutex
	sent    []string
	paths   []string
	reply   string
	delay   time.Duration
	silent  bool
	sendErr error
	wg      sync.WaitGroup
}

func (s *stubBackend) Send(cmd command.Command) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	line := cmd.String()
	path := channelPath(line)

	s.mu.Lock()
	s.sent = append(s.sent, line)
	s.paths = append(s.paths, path)
	s.mu.Unlock()

	if s.silent || path == "" {
		return nil
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		time.Sleep(s.delay)
		_ = os.WriteFile(path, []byte(s.reply), 0600)
	}()
	return nil
}

func (s *stubBackend) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func channelPath(line string) string {
	i := strings.IndexByte(line, '"')
	j := strings.LastIndexByte(line, '"')
	if i < 0 || j <= i {
		return ""
	}
	return line[i+1 : j]
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	b := New(&stubBackend{}, Options{}, nil)
	assert.Equal(t, DefaultTimeout, b.Timeout())
	assert.Equal(t, DefaultPollInterval, b.PollInterval())
}

func TestHeading_ReadsResultAndRemovesChannel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	backend := &stubBackend{reply: "42", delay: 30 * time.Millisecond}
	b := New(backend, Options{Dir: dir}, nil)

	v, err := b.Heading()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	lines := backend.lines()
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], `GETHEADING "`), lines[0])

	backend.wg.Wait()
	_, err = os.Stat(backend.paths[0])
	assert.True(t, os.IsNotExist(err), "channel should be removed")
	assert.Empty(t, dirEntries(t, dir))
}

func TestQuery_TimeoutReturnsZeroAndRemovesChannel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	backend := &stubBackend{silent: true}
	timeout := 200 * time.Millisecond
	poll := 50 * time.Millisecond
	b := New(backend, Options{Dir: dir, Timeout: timeout, PollInterval: poll}, nil)

	start := time.Now()
	v, err := b.Heading()
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 0, v)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+poll)

	_, statErr := os.Stat(backend.paths[0])
	assert.True(t, os.IsNotExist(statErr), "channel should be removed")
	assert.Empty(t, dirEntries(t, dir))
}

func TestRandInt_NonPositiveBoundSkipsRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	backend := &stubBackend{reply: "7"}
	b := New(backend, Options{Dir: dir}, nil)

	for _, maxv := range []int{0, -1, -100} {
		v, err := b.RandInt(maxv)
		require.NoError(t, err)
		assert.Equal(t, 0, v)
	}

	assert.Empty(t, backend.lines())
	assert.Empty(t, dirEntries(t, dir))
}

func TestRandInt_SendsBound(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{reply: "3\n"}
	b := New(backend, Options{Dir: t.TempDir()}, nil)

	v, err := b.RandInt(10)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.True(t, strings.HasPrefix(backend.lines()[0], `RANDINT 10 "`))
}

func TestPowInt_SendsBothOperands(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{reply: "  1024  "}
	b := New(backend, Options{Dir: t.TempDir()}, nil)

	v, err := b.PowInt(2, 10)
	require.NoError(t, err)
	assert.Equal(t, 1024, v)
	assert.True(t, strings.HasPrefix(backend.lines()[0], `POWINT 2 10 "`))
}

func TestQuery_MalformedResultIsTimeout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	backend := &stubBackend{reply: "not a number"}
	b := New(backend, Options{Dir: dir, Timeout: 80 * time.Millisecond}, nil)

	v, err := b.Heading()
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 0, v)

	backend.wg.Wait()
	assert.Empty(t, dirEntries(t, dir))
}

func TestQuery_SendFailureCleansUp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sendErr := errors.New("broken pipe")
	b := New(&stubBackend{sendErr: sendErr}, Options{Dir: dir}, nil)

	start := time.Now()
	_, err := b.Heading()
	assert.ErrorIs(t, err, sendErr)
	assert.Less(t, time.Since(start), DefaultTimeout)
	assert.Empty(t, dirEntries(t, dir))
}

func TestQuery_ChannelDirMissing(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{reply: "1"}
	b := New(backend, Options{Dir: "/nonexistent/turtle/dir"}, nil)

	_, err := b.Heading()
	assert.Error(t, err)
	assert.Empty(t, backend.lines())
}

func TestQuery_ChannelNamesAreUnique(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{reply: "5"}
	b := New(backend, Options{Dir: t.TempDir()}, nil)

	for i := 0; i < 20; i++ {
		_, err := b.PowInt(5, 1)
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	for _, p := range backend.paths {
		assert.False(t, seen[p], "duplicate channel %s", p)
		seen[p] = true
		assert.Contains(t, p, channelPrefix+"powint-")
	}
}
