package mcptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/nullpointer-labs/chatcore/internal/wire"
)

// ErrNoEndpoint is returned by Send before the server's `endpoint` event
// has arrived.
var ErrNoEndpoint = fmt.Errorf("mcptransport: no endpoint discovered")

// SSETransport opens a long-lived SSE GET to receive frames and POSTs
// outgoing JSON-RPC requests to a URL discovered from the server's first
// `endpoint` event. Grounded on
// other_examples/111e6b47_kry4r-nuka-world__internal-mcp-client.go.go's
// readEndpointEvent/resolveURL/background-reader pattern.
type SSETransport struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    *url.URL
	token      string

	mu          sync.Mutex
	endpointURL string
	closed      bool

	readyOnce sync.Once
	ready     chan struct{}
	messages  chan json.RawMessage
	errs      chan error
	cancel    context.CancelFunc
}

// signalReady closes ready at most once, unblocking WaitReady whether
// the endpoint arrived or the read loop gave up without ever seeing one.
func (t *SSETransport) signalReady() {
	t.readyOnce.Do(func() { close(t.ready) })
}

// NewSSETransport opens the SSE connection and starts the background
// reader goroutine. It returns as soon as the GET succeeds, before the
// server's `endpoint` event necessarily arrives; callers that need to Send
// right away (as the initialize handshake in Dial does) should call WaitReady
// first.
func NewSSETransport(ctx context.Context, rawURL string, bearerToken string, logger *zap.Logger) (*SSETransport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("mcptransport: parse sse url: %w", err)
	}

	readCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(readCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("mcptransport: build sse request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("mcptransport: sse connect: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		cancel()
		resp.Body.Close()
		return nil, fmt.Errorf("mcptransport: sse connect status %d", resp.StatusCode)
	}

	t := &SSETransport{
		logger:     logger.With(zap.String("transport", "sse"), zap.String("url", rawURL)),
		httpClient: client,
		baseURL:    base,
		token:      bearerToken,
		ready:      make(chan struct{}),
		messages:   make(chan json.RawMessage, 16),
		errs:       make(chan error, 1),
		cancel:     cancel,
	}
	go t.readLoop(resp.Body)
	return t, nil
}

// WaitReady blocks until the server's `endpoint` event has been observed
// (or the read loop has given up without ever seeing one), or ctx is done.
// mcpclient.Registry.ConnectSSE calls this before Dial so the handshake's first
// Send never races the background reader for the endpoint event.
func (t *SSETransport) WaitReady(ctx context.Context) error {
	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *SSETransport) readLoop(body io.ReadCloser) {
	defer body.Close()
	defer t.signalReady()
	var reader wire.SSEReader
	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, event := range reader.Feed(buf[:n]) {
				t.dispatch(event)
			}
		}
		if err != nil {
			if err != io.EOF {
				select {
				case t.errs <- fmt.Errorf("mcptransport: sse read: %w", err):
				default:
				}
			}
			for _, event := range reader.Close() {
				t.dispatch(event)
			}
			close(t.messages)
			return
		}
	}
}

func (t *SSETransport) dispatch(event wire.SSEEvent) {
	if event.Name == "endpoint" {
		resolved := t.resolveEndpoint(event.Data)
		t.mu.Lock()
		if t.endpointURL == "" {
			t.endpointURL = resolved
		}
		t.mu.Unlock()
		t.signalReady()
		return
	}
	if event.Data == wire.DoneSentinel {
		return
	}
	t.messages <- json.RawMessage(event.Data)
}

func (t *SSETransport) resolveEndpoint(data string) string {
	parsed, err := url.Parse(data)
	if err != nil {
		return data
	}
	if parsed.IsAbs() {
		return data
	}
	return t.baseURL.ResolveReference(parsed).String()
}

// Kind reports the SSE transport tag.
func (t *SSETransport) Kind() Kind { return KindSSE }

// Send POSTs value to the discovered endpoint URL. It fails immediately
// with ErrNoEndpoint if the server's `endpoint` event has not arrived yet,
// rather than waiting for it.
func (t *SSETransport) Send(ctx context.Context, value json.RawMessage) error {
	t.mu.Lock()
	endpoint := t.endpointURL
	t.mu.Unlock()
	if endpoint == "" {
		return ErrNoEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(value))
	if err != nil {
		return fmt.Errorf("mcptransport: build post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mcptransport: post send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mcptransport: post send status %d", resp.StatusCode)
	}
	return nil
}

// Receive returns the next message frame parsed as JSON, or ErrClosed
// once the SSE stream has ended.
func (t *SSETransport) Receive(ctx context.Context) (json.RawMessage, error) {
	select {
	case msg, ok := <-t.messages:
		if !ok {
			select {
			case err := <-t.errs:
				return nil, err
			default:
				return nil, ErrClosed
			}
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears down the SSE connection.
func (t *SSETransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	t.cancel()
	return nil
}
