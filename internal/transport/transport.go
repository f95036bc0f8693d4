// Package transport delivers encoded commands to the drawing backend.
// It supports a TCP socket to an embedded backend and a stdin pipe to a
// spawned backend process.
package transport

import (
	"github.com/runger/turtlert/internal/command"
)

// Kind identifies the active transport variant.
type Kind int

const (
	KindNone Kind = iota
	KindSocket
	KindPipe
)

func (k Kind) String() string {
	switch k {
	case KindSocket:
		return "socket"
	case KindPipe:
		return "pipe"
	default:
		return "none"
	}
}

// Transport defines the interface for sending commands to the backend.
// Implementations frame each command with a trailing newline and deliver it
// before Send returns. There is no acknowledgment from the backend.
type Transport interface {
	// Send writes one command line. Errors mean the bytes may not have
	// reached the backend; callers treat them as best-effort.
	Send(cmd command.Command) error

	// Close releases the socket or pipe. For a pipe it also waits for the
	// child process to exit. Close is safe to call more than once.
	Close() error

	// Kind returns which variant this is.
	Kind() Kind

	// Target describes the remote end: an address for sockets, the argv
	// for pipes.
	Target() string
}
