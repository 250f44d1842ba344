// Package mcpclient implements the MCP JSON-RPC 2.0 client: request/response
// correlation over a Transport, the initialize handshake, and tool
// discovery/invocation.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nullpointer-labs/chatcore/internal/mcptransport"
)

const protocolVersion = "2024-11-05"

// clientName is this module's own MCP client identity, never the name of
// any other application.
const clientName = "chatcore"
const clientVersion = "0.1.0"

// Request is the JSON-RPC 2.0 request/notification envelope. ID is absent
// for notifications (no response expected).
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message) }

// Response is the JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Tool describes one MCP-server-exposed tool.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ContentBlock is one element of a tool call result.
type ContentBlock struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	Data     string           `json:"data,omitempty"`
	MimeType string           `json:"mimeType,omitempty"`
	Resource *EmbeddedResource `json:"resource,omitempty"`
}

// EmbeddedResource is the payload of a "resource" content block.
type EmbeddedResource struct {
	URI      string `json:"uri,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

// CallToolResult is the result of invoking a tool.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ErrConnectionClosed is returned when the transport hits EOF while a
// request is awaiting correlation.
var ErrConnectionClosed = errors.New("mcpclient: connection closed")

// Client is a JSON-RPC client bound to one Transport. Requests and
// responses on one transport are serialized by transportMu, matching the
// spec's "MCP client's transport: one mutex, held across one full
// send-then-correlated-receive" policy.
type Client struct {
	name      string
	transport mcptransport.Transport
	logger    *zap.Logger

	nextID     uint64
	transportMu sync.Mutex
}

// Dial constructs a Client over an already-connected transport and runs
// the initialize handshake. Grounded on original_source/mcp/mod.rs's
// connect/connect_http handshake sequence.
func Dial(ctx context.Context, name string, transport mcptransport.Transport, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := &Client{
		name:      name,
		transport: transport,
		logger:    logger.With(zap.String("mcp_client", name)),
	}

	type clientInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	type capabilities struct {
		Roots    map[string]any `json:"roots"`
		Sampling map[string]any `json:"sampling"`
	}
	params, _ := json.Marshal(struct {
		ProtocolVersion string       `json:"protocol_version"`
		Capabilities    capabilities `json:"capabilities"`
		ClientInfo      clientInfo   `json:"client_info"`
	}{
		ProtocolVersion: protocolVersion,
		Capabilities: capabilities{
			Roots:    map[string]any{"list_changed": false},
			Sampling: map[string]any{},
		},
		ClientInfo: clientInfo{Name: clientName, Version: clientVersion},
	})

	if _, err := client.call(ctx, "initialize", params); err != nil {
		return nil, fmt.Errorf("mcpclient: initialize %s: %w", name, err)
	}
	if err := client.notify(ctx, "notifications/initialized", nil); err != nil {
		return nil, fmt.Errorf("mcpclient: notifications/initialized %s: %w", name, err)
	}
	client.logger.Info("mcp client connected")
	return client, nil
}

// call allocates the next request id, sends, then loops on Receive until a
// response with matching id arrives. Messages with other ids are
// discarded, per spec §4.C.
func (c *Client) call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	c.transportMu.Lock()
	defer c.transportMu.Unlock()

	id := atomic.AddUint64(&c.nextID, 1)
	req := Request{JSONRPC: "2.0", ID: &id, Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: marshal request: %w", err)
	}
	if err := c.transport.Send(ctx, payload); err != nil {
		return nil, fmt.Errorf("mcpclient: send %s: %w", method, err)
	}

	for {
		frame, err := c.transport.Receive(ctx)
		if err != nil {
			if errors.Is(err, mcptransport.ErrClosed) {
				return nil, ErrConnectionClosed
			}
			return nil, fmt.Errorf("mcpclient: receive: %w", err)
		}
		var resp Response
		if err := json.Unmarshal(frame, &resp); err != nil {
			return nil, fmt.Errorf("mcpclient: parse response: %w", err)
		}
		if resp.ID == nil || *resp.ID != id {
			// Not our response; the contract is the caller who allocated
			// id k eventually receives the response for id k.
			continue
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

// notify sends a JSON-RPC notification (no id, no response awaited).
func (c *Client) notify(ctx context.Context, method string, params json.RawMessage) error {
	c.transportMu.Lock()
	defer c.transportMu.Unlock()

	req := Request{JSONRPC: "2.0", Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("mcpclient: marshal notification: %w", err)
	}
	return c.transport.Send(ctx, payload)
}

// ListTools returns the server's tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("mcpclient: parse tools/list result: %w", err)
	}
	return parsed.Tools, nil
}

// CallTool invokes a named tool with its argument object.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (CallToolResult, error) {
	params, err := json.Marshal(struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}{Name: name, Arguments: arguments})
	if err != nil {
		return CallToolResult{}, fmt.Errorf("mcpclient: marshal tools/call params: %w", err)
	}

	result, err := c.call(ctx, "tools/call", params)
	if err != nil {
		return CallToolResult{}, err
	}
	var parsed CallToolResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return CallToolResult{}, fmt.Errorf("mcpclient: parse tools/call result: %w", err)
	}
	return parsed, nil
}

// Name returns the registry name this client was connected under.
func (c *Client) Name() string { return c.name }

// Close tears down the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}
