// Package mcptransport implements the two framed bidirectional JSON
// transports the MCP client speaks: a child process's stdio pipes, and an
// SSE-receive / HTTP-POST-send pair whose send URL is discovered from the
// server's first `endpoint` event.
package mcptransport

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrClosed is returned by Receive once the transport has been closed or
// has observed end-of-stream.
var ErrClosed = errors.New("mcptransport: transport closed")

// Kind tags which concrete transport a Transport value wraps. The set is
// closed by design — dispatch does not need open polymorphism here.
type Kind int

const (
	KindStdio Kind = iota
	KindSSE
)

// Transport is what the MCP client sees: send a JSON value, receive the
// next one (or ErrClosed on EOF), and close down the underlying channel.
type Transport interface {
	Kind() Kind
	Send(ctx context.Context, value json.RawMessage) error
	Receive(ctx context.Context) (json.RawMessage, error)
	Close() error
}
