package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/runger/turtlert/internal/command"
)

var newline = []byte{'\n'}

// SocketTransport implements Transport over a TCP connection to an embedded
// backend.
type SocketTransport struct {
	conn         net.Conn
	addr         string
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// DialSocket connects to addr ("host:port") within timeout. Every resolved
// address is tried in turn by the dialer.
func DialSocket(ctx context.Context, addr string, timeout time.Duration) (*SocketTransport, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, fmt.Errorf("invalid tcp address %q: %w", addr, err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	return NewSocket(conn, addr), nil
}

// NewSocket wraps an established connection.
func NewSocket(conn net.Conn, addr string) *SocketTransport {
	return &SocketTransport{conn: conn, addr: addr}
}

// SetWriteTimeout bounds each Send. Zero disables the deadline.
func (t *SocketTransport) SetWriteTimeout(d time.Duration) {
	t.writeTimeout = d
}

// Send writes the line and then the newline as two writes; the backend
// frames on the newline, not on write boundaries.
func (t *SocketTransport) Send(cmd command.Command) error {
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}
	if _, err := t.conn.Write([]byte(cmd.String())); err != nil {
		return fmt.Errorf("socket write: %w", err)
	}
	if _, err := t.conn.Write(newline); err != nil {
		return fmt.Errorf("socket write: %w", err)
	}
	return nil
}

// Close closes the connection.
func (t *SocketTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

func (t *SocketTransport) Kind() Kind     { return KindSocket }
func (t *SocketTransport) Target() string { return t.addr }

var _ Transport = (*SocketTransport)(nil)
