package mcpclient

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nullpointer-labs/chatcore/internal/mcptransport"
)

// entry is a registry-held, reference-counted client.
type entry struct {
	client   *Client
	refCount int
}

// Registry is a name-keyed set of live MCP client
// connections. Multiple callers connecting under the same name share one
// underlying Client and transport; the connection is only closed once the
// last reference is released. Grounded on
// original_source/commands/chat.rs's ACTIVE_STREAMS lazy-static registry,
// translated to an explicit struct rather than a package-level global so
// tests can construct independent registries.
type Registry struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]*entry
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger, clients: make(map[string]*entry)}
}

// ConnectStdio connects (or attaches to an already-connected) named MCP
// server over a stdio child process transport.
func (r *Registry) ConnectStdio(ctx context.Context, name, command string, args []string) (*Client, error) {
	r.mu.Lock()
	if e, ok := r.clients[name]; ok {
		e.refCount++
		r.mu.Unlock()
		return e.client, nil
	}
	r.mu.Unlock()

	transport, err := mcptransport.NewStdioTransport(ctx, command, args, r.logger)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect stdio %s: %w", name, err)
	}
	client, err := Dial(ctx, name, transport, r.logger)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	return r.store(name, client), nil
}

// ConnectSSE connects (or attaches to an already-connected) named MCP
// server over an SSE-receive/HTTP-POST-send transport.
func (r *Registry) ConnectSSE(ctx context.Context, name, url, bearerToken string) (*Client, error) {
	r.mu.Lock()
	if e, ok := r.clients[name]; ok {
		e.refCount++
		r.mu.Unlock()
		return e.client, nil
	}
	r.mu.Unlock()

	transport, err := mcptransport.NewSSETransport(ctx, url, bearerToken, r.logger)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect sse %s: %w", name, err)
	}
	// Wait for the endpoint event before dialing: the initialize handshake's
	// first Send would otherwise race the background SSE reader and could
	// fail with ErrNoEndpoint even though the server is about to announce one.
	if err := transport.WaitReady(ctx); err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("mcpclient: connect sse %s: wait for endpoint: %w", name, err)
	}
	client, err := Dial(ctx, name, transport, r.logger)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	return r.store(name, client), nil
}

func (r *Registry) store(name string, client *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.clients[name]; ok {
		// Lost a race with a concurrent connect of the same name; keep the
		// winner already stored and close ours.
		e.refCount++
		_ = client.Close()
		return e.client
	}
	r.clients[name] = &entry{client: client, refCount: 1}
	return client
}

// Get returns the named client if connected.
func (r *Registry) Get(name string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.clients[name]
	if !ok {
		return nil, false
	}
	return e.client, true
}

// ListServers returns the names of all currently connected servers.
func (r *Registry) ListServers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// Release decrements the named client's reference count, closing and
// removing it once the count reaches zero. Releasing an unknown name is a
// no-op.
func (r *Registry) Release(name string) error {
	r.mu.Lock()
	e, ok := r.clients[name]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	e.refCount--
	if e.refCount > 0 {
		r.mu.Unlock()
		return nil
	}
	delete(r.clients, name)
	r.mu.Unlock()
	return e.client.Close()
}

// CloseAll releases every connection, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*entry)
	r.mu.Unlock()

	for name, e := range clients {
		if err := e.client.Close(); err != nil {
			r.logger.Warn("error closing mcp client", zap.String("name", name), zap.Error(err))
		}
	}
}
