// Package transport implements the three wire transports Bellwether speaks
// to an MCP server over: subprocess stdio, Server-Sent Events, and
// streaming HTTP. Each implementation satisfies the same Transport contract
// so Session can drive any of them identically.
package transport

import (
	"context"
)

// Framing selects how stdio messages are delimited on the wire.
type Framing string

const (
	// FramingContentLength uses "Content-Length: N\r\n\r\n" headers followed
	// by N bytes of JSON (LSP-style). Bellwether never selects this itself —
	// Config.StdioOptions always asks for FramingNewlineDelimited — but the
	// reader stays available for a caller driving StdioTransport directly
	// against a server that only speaks it.
	FramingContentLength Framing = "content-length"
	// FramingNewlineDelimited is the framing every stdio MCP server this
	// tool targets speaks: one JSON value per line. NewStdioTransport
	// defaults to this when Framing is left unset.
	FramingNewlineDelimited Framing = "newline-delimited"
)

// Transport is the minimal contract Session needs from any wire protocol:
// send a message, observe the stream of inbound messages, and learn when
// the connection has closed (cleanly or not).
//
// Implementations never interpret message contents — correlation of
// requests to responses, and dispatch of unsolicited notifications, is
// Session's job.
type Transport interface {
	// Send writes a single JSON-RPC message to the server.
	Send(ctx context.Context, payload []byte) error

	// Inbound returns the channel of raw JSON-RPC messages received from
	// the server, in arrival order. Callers must select on Done alongside
	// Inbound to detect termination; Inbound is never closed (avoiding a
	// send-on-closed-channel race with the transport's read goroutine).
	Inbound() <-chan []byte

	// Done is closed when the transport has terminated, whether by Close,
	// by the peer closing the connection, or by a framing/IO error. Err
	// reports why.
	Done() <-chan struct{}

	// Err returns the terminal error, if the transport closed abnormally.
	// It returns nil after a clean Close with no prior error.
	Err() error

	// Close terminates the transport. For a subprocess peer, StdioTransport
	// closes its stdin, kills the process and waits for it to exit.
	Close() error
}
