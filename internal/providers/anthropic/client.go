// Package anthropic implements the event-typed SSE adapter for the
// Anthropic Messages API. Grounded on original_source/providers/anthropic.rs
// for headers, message conversion, and the content-block accumulation state
// machine. Message conversion and stream demultiplexing both live in this
// file; the wire types are in types.go.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/nullpointer-labs/chatcore/internal/model"
	"github.com/nullpointer-labs/chatcore/internal/wire"
)

// Client streams chat turns from the Anthropic Messages API.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs an Anthropic client.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: &http.Client{}, logger: logger.With(zap.String("provider", "anthropic"))}
}

// StreamChat satisfies providers.Adapter.
func (c *Client) StreamChat(
	ctx context.Context,
	config model.ProviderConfig,
	modelName string,
	messages []model.ChatMessage,
	tools []model.ToolDescriptor,
	options model.ChatOptions,
	handler func(model.ProviderEvent) error,
) error {
	maxTokens := defaultMaxTokens
	if options.MaxTokens != nil {
		maxTokens = *options.MaxTokens
	}

	system, converted := convertMessages(messages)
	req := chatRequest{
		Model:       modelName,
		MaxTokens:   maxTokens,
		Stream:      true,
		System:      system,
		Messages:    converted,
		Temperature: options.Temperature,
		TopP:        options.TopP,
		TopK:        options.TopK,
	}
	for _, tool := range tools {
		req.Tools = append(req.Tools, wireTool{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: tool.Function.Parameters,
		})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("anthropic: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(config.ResolvedBaseURL(), "/")+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("anthropic: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return demux(resp.Body, handler, c.logger)
}

// convertMessages splits off any system-role message into Anthropic's
// top-level system field and converts the remainder to content-block form.
func convertMessages(messages []model.ChatMessage) (string, []wireMessage) {
	var system strings.Builder
	out := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			if system.Len() > 0 {
				system.WriteByte('\n')
			}
			system.WriteString(msg.Content)
		case model.RoleTool:
			out = append(out, wireMessage{
				Role: "user",
				Content: []wireContentBlock{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
				}},
			})
		case model.RoleAssistant:
			blocks := []wireContentBlock{}
			if msg.Content != "" {
				blocks = append(blocks, wireContentBlock{Type: "text", Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				input := json.RawMessage(call.Function.Arguments)
				if !json.Valid(input) {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, wireContentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Function.Name,
					Input: input,
				})
			}
			out = append(out, wireMessage{Role: "assistant", Content: blocks})
		default:
			blocks := []wireContentBlock{{Type: "text", Text: msg.Content}}
			for _, image := range msg.Images {
				blocks = append(blocks, wireContentBlock{
					Type:   "image",
					Source: &wireImageSource{Type: "base64", MediaType: "image/jpeg", Data: image},
				})
			}
			out = append(out, wireMessage{Role: "user", Content: blocks})
		}
	}
	return system.String(), out
}

func demux(body io.Reader, handler func(model.ProviderEvent) error, logger *zap.Logger) error {
	var reader wire.SSEReader
	var toolID, toolName string
	var toolArgs strings.Builder
	toolOpen := false
	var inputTokens, outputTokens *int

	flushTool := func() error {
		if !toolOpen {
			return nil
		}
		call := model.ToolCall{
			ID:   toolID,
			Type: "function",
			Function: model.ToolCallFunction{
				Name:      toolName,
				Arguments: toolArgs.String(),
			},
		}
		toolOpen = false
		toolID, toolName = "", ""
		toolArgs.Reset()
		return handler(model.ToolCallEvent(call))
	}

	dispatch := func(event wire.SSEEvent) error {
		var evt streamEvent
		if err := json.Unmarshal([]byte(event.Data), &evt); err != nil {
			logger.Warn("skipping malformed sse event", zap.Error(err), zap.String("data", event.Data))
			return nil
		}
		switch evt.Type {
		case "message_start":
			if evt.Message != nil && evt.Message.Usage != nil {
				inputTokens = evt.Message.Usage.InputTokens
			}
		case "content_block_start":
			if evt.ContentBlock != nil && evt.ContentBlock.Type == "tool_use" {
				toolOpen = true
				toolID = evt.ContentBlock.ID
				toolName = evt.ContentBlock.Name
				toolArgs.Reset()
			}
		case "content_block_delta":
			if evt.Delta == nil {
				return nil
			}
			if evt.Delta.Text != "" {
				if err := handler(model.ContentEvent(evt.Delta.Text)); err != nil {
					return err
				}
			}
			if evt.Delta.PartialJSON != "" {
				toolArgs.WriteString(evt.Delta.PartialJSON)
			}
		case "content_block_stop":
			if err := flushTool(); err != nil {
				return err
			}
		case "message_delta":
			if evt.Usage != nil {
				outputTokens = evt.Usage.OutputTokens
			}
		case "message_stop":
			if inputTokens != nil || outputTokens != nil {
				var total *int
				if inputTokens != nil && outputTokens != nil {
					sum := *inputTokens + *outputTokens
					total = &sum
				}
				return handler(model.UsageEvent(model.Usage{PromptTokens: inputTokens, CompletionTokens: outputTokens, TotalTokens: total}))
			}
		}
		return nil
	}

	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, event := range reader.Feed(buf[:n]) {
				if err := dispatch(event); err != nil {
					return err
				}
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				for _, event := range reader.Close() {
					if err := dispatch(event); err != nil {
						return err
					}
				}
				return nil
			}
			return fmt.Errorf("anthropic: read response body: %w", readErr)
		}
	}
}
