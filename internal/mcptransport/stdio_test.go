package mcptransport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nullpointer-labs/chatcore/internal/testutil"
)

func TestStdioTransportRoundTripsThroughCat(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, err := NewStdioTransport(ctx, "cat", nil, nil)
	testutil.RequireNoError(t, err, "spawn cat")
	defer transport.Close()

	testutil.RequireEqual(t, transport.Kind(), KindStdio, "stdio kind")

	sent := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	testutil.RequireNoError(t, transport.Send(ctx, sent), "send to cat")

	got, err := transport.Receive(ctx)
	testutil.RequireNoError(t, err, "receive echo from cat")
	testutil.RequireEqual(t, string(got), string(sent), "cat echoes the line back unchanged")
}

func TestStdioTransportReceiveReturnsErrClosedOnEOF(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, err := NewStdioTransport(ctx, "true", nil, nil)
	testutil.RequireNoError(t, err, "spawn true")
	defer transport.Close()

	_, err = transport.Receive(ctx)
	testutil.RequireTrue(t, err == ErrClosed, "receive reports ErrClosed once the child exits and stdout hits EOF")
}
