package turtle

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/turtlert/internal/config"
	"github.com/runger/turtlert/internal/connect"
	"github.com/runger/turtlert/internal/journal"
	tlog "github.com/runger/turtlert/internal/log"
	"github.com/runger/turtlert/internal/transport"
	"github.com/runger/turtlert/internal/turtletest"
)

func testConfig(t *testing.T, addr string) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Backend.TCPAddr = addr
	cfg.Query.ChannelDir = t.TempDir()
	cfg.Query.TimeoutMs = 200
	cfg.Lifecycle.QuitGraceMs = 1
	return cfg
}

// tcpOnly keeps a test from falling through to spawning processes.
func tcpOnly(cfg *config.Config) Option {
	return WithConnector(connect.New(cfg, tlog.Discard(),
		connect.WithGetenv(func(string) string { return "" }),
		connect.WithSpawner(func([]string, transport.SpawnOptions) (transport.Transport, error) {
			return nil, connect.ErrNoBackend
		}),
	))
}

func TestTurtle_DrawsAndQueries(t *testing.T) {
	t.Parallel()

	backend := turtletest.NewBackend(t)
	backend.SetHeading(180)
	cfg := testConfig(t, backend.Addr())

	tt := New(WithConfig(cfg), WithLogger(tlog.Discard()), tcpOnly(cfg))
	tt.Init()
	require.True(t, tt.Connected())

	tt.PenDown()
	tt.Forward(50)
	tt.Back(5)
	tt.Right(90)
	tt.Left(45)
	tt.SetPosition(1, 2)
	tt.SetXY(-3, 4)
	tt.SetX(7)
	tt.SetY(8)
	tt.SetHeading(270)
	tt.SetColor(3)
	tt.SetColorName("red")
	tt.SetColorName("not a color")
	tt.Delay(10)
	tt.Speed(4)
	tt.TurnSpeed(6)
	tt.Center()
	tt.Hide()
	tt.Show()
	tt.PenUp()

	assert.Equal(t, 180, tt.Heading())
	assert.Equal(t, 4, tt.RandInt(5))
	assert.Equal(t, 0, tt.RandInt(0))
	assert.Equal(t, 32, tt.PowInt(2, 5))

	tt.Close()
	assert.False(t, tt.Connected())

	want := []string{
		"PENDOWN", "FORWARD 50", "BACK 5", "RIGHT 90", "LEFT 45",
		"POS 1 2", "POS -3 4", "POSX 7", "POSY 8", "HEADING 270",
		"COLOR 3", "COLORNAME red", "DELAY 10", "SPEED 4", "TURNSPEED 6",
		"CENTER", "HIDE", "SHOW", "PENUP",
	}
	lines := backend.WaitForLines(len(want)+4, 2*time.Second)
	require.Len(t, lines, len(want)+4)
	assert.Equal(t, want, lines[:len(want)])
	assert.Regexp(t, `^GETHEADING "`, lines[len(want)])
	assert.Regexp(t, `^RANDINT 5 "`, lines[len(want)+1])
	assert.Regexp(t, `^POWINT 2 5 "`, lines[len(want)+2])
	assert.Equal(t, "QUIT", lines[len(want)+3])
}

func TestTurtle_NoBackendIsSilent(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "")
	tt := New(WithConfig(cfg), WithLogger(tlog.Discard()), tcpOnly(cfg))

	tt.Init()
	assert.False(t, tt.Connected())

	tt.Forward(10)
	tt.SetColorName("blue")
	assert.Equal(t, 0, tt.Heading())
	assert.Equal(t, 0, tt.RandInt(10))
	assert.Equal(t, 0, tt.PowInt(2, 2))
	tt.Shutdown()
	tt.Close()
}

func TestTurtle_BeforeInitDoesNothing(t *testing.T) {
	t.Parallel()

	backend := turtletest.NewBackend(t)
	cfg := testConfig(t, backend.Addr())
	tt := New(WithConfig(cfg), WithLogger(tlog.Discard()), tcpOnly(cfg))

	tt.Forward(1)
	assert.Equal(t, 0, tt.Heading())
	tt.Shutdown()

	tt.Init()
	tt.Forward(2)
	tt.Shutdown()

	lines := backend.WaitForLines(2, 2*time.Second)
	assert.Equal(t, []string{"FORWARD 2", "QUIT"}, lines)
}

func TestTurtle_QueryTimeoutReturnsZero(t *testing.T) {
	t.Parallel()

	backend := turtletest.NewBackend(t)
	backend.SetSilent(true)
	cfg := testConfig(t, backend.Addr())
	cfg.Query.TimeoutMs = 50

	tt := New(WithConfig(cfg), WithLogger(tlog.Discard()), tcpOnly(cfg))
	tt.Init()
	defer tt.Close()

	start := time.Now()
	assert.Equal(t, 0, tt.Heading())
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestTurtle_SleepMsSendsNothing(t *testing.T) {
	t.Parallel()

	backend := turtletest.NewBackend(t)
	cfg := testConfig(t, backend.Addr())
	tt := New(WithConfig(cfg), WithLogger(tlog.Discard()), tcpOnly(cfg))

	var slept []time.Duration
	tt.sleep = func(d time.Duration) { slept = append(slept, d) }

	tt.Init()
	tt.SleepMs(25)
	tt.SleepMs(0)
	tt.SleepMs(-1)
	tt.Close()

	assert.Equal(t, []time.Duration{25 * time.Millisecond}, slept)
	assert.Equal(t, []string{"QUIT"}, backend.WaitForLines(1, 2*time.Second))
}

func TestTurtle_Journal(t *testing.T) {
	t.Parallel()

	backend := turtletest.NewBackend(t)
	cfg := testConfig(t, backend.Addr())
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")

	tt := New(WithConfig(cfg), WithLogger(tlog.Discard()), tcpOnly(cfg))
	tt.Init()
	tt.Forward(10)
	tt.Right(120)
	tt.Close()

	store, err := journal.Open(cfg.Journal.Path)
	require.NoError(t, err)
	defer store.Close()

	sessions, err := store.ListSessions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "tcp", sessions[0].Strategy)
	assert.Equal(t, backend.Addr(), sessions[0].Target)
	assert.Equal(t, 3, sessions[0].EntryCount)
}

// The package-level functions share one lazily created Turtle.
func TestDefault_FreeFunctions(t *testing.T) {
	backend := turtletest.NewBackend(t)
	backend.SetHeading(90)

	t.Setenv(config.EnvConfig, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv(config.EnvTCPAddr, backend.Addr())
	t.Setenv(config.EnvLogLevel, "error")
	resetDefault()
	t.Cleanup(resetDefault)

	var wg sync.WaitGroup
	got := make([]*Turtle, 4)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Default()
		}(i)
	}
	wg.Wait()
	for _, tt := range got {
		assert.Same(t, got[0], tt)
	}

	Init()
	Init()
	PenDown()
	Forward(10)
	assert.Equal(t, 90, Heading())
	assert.Equal(t, 8, RandInt(9))
	assert.Equal(t, 9, PowInt(3, 2))
	SleepMs(1)
	Shutdown()

	lines := backend.WaitForLines(6, 2*time.Second)
	require.Len(t, lines, 6)
	assert.Equal(t, "PENDOWN", lines[0])
	assert.Equal(t, "FORWARD 10", lines[1])
	assert.Equal(t, "QUIT", lines[5])
}
