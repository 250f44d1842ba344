// Package orchestrator drives the bounded tool-calling conversation loop
// shared by every provider: it resolves the active adapter, gathers tools
// from every connected MCP client, streams one adapter turn at a time,
// executes requested tool calls, and feeds results back until the model
// stops calling tools or MAX_LOOPS is reached. Grounded primarily on
// original_source/providers/orchestrator.rs (event emission order, the
// double cancel-check, 8000-character truncation, tool-error substitution)
// and generalizes the teacher's internal/agent/stream.go single-provider,
// local-tool-only loop to the provider-polymorphic, MCP-backed design this
// spec calls for.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nullpointer-labs/chatcore/internal/eventsink"
	"github.com/nullpointer-labs/chatcore/internal/mcpclient"
	"github.com/nullpointer-labs/chatcore/internal/model"
	"github.com/nullpointer-labs/chatcore/internal/providers"
)

// MaxLoops bounds the number of adapter invocations within one conversation.
const MaxLoops = 10

// maxToolResultChars is the truncation threshold for materialized tool
// output fed back to the model.
const maxToolResultChars = 8000

// errCancelled is an internal sentinel returned by the event handler to
// stop draining an adapter stream as soon as cancellation is observed; it
// is never returned to callers of RunConversation.
var errCancelled = errors.New("orchestrator: stream cancelled")

// Orchestrator holds the dependencies RunConversation needs: one adapter
// per provider type, the MCP client registry tools are gathered from, the
// stream registry cancellation flags live in, and the event sink the UI
// observes.
type Orchestrator struct {
	adapters       map[model.ProviderType]providers.Adapter
	mcpRegistry    *mcpclient.Registry
	streamRegistry *StreamRegistry
	logger         *zap.Logger
}

// New constructs an Orchestrator.
func New(adapters map[model.ProviderType]providers.Adapter, mcpRegistry *mcpclient.Registry, streamRegistry *StreamRegistry, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		adapters:       adapters,
		mcpRegistry:    mcpRegistry,
		streamRegistry: streamRegistry,
		logger:         logger,
	}
}

// gatherTools enumerates every connected MCP client's tool catalog and
// builds the unified descriptor list plus a name-to-owner map.
func (o *Orchestrator) gatherTools(ctx context.Context) ([]model.ToolDescriptor, map[string]string) {
	descriptors := []model.ToolDescriptor{}
	owners := map[string]string{}
	if o.mcpRegistry == nil {
		return descriptors, owners
	}
	for _, name := range o.mcpRegistry.ListServers() {
		client, ok := o.mcpRegistry.Get(name)
		if !ok {
			continue
		}
		tools, err := client.ListTools(ctx)
		if err != nil {
			o.logger.Warn("failed to list tools from mcp client", zap.String("mcp_client", name), zap.Error(err))
			continue
		}
		for _, tool := range tools {
			descriptors = append(descriptors, model.ToolDescriptor{
				Type: "function",
				Function: model.ToolDescriptorFunc{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  mcpclient.SanitizeInputSchema(tool.InputSchema, o.logger),
				},
			})
			owners[tool.Name] = name
		}
	}
	return descriptors, owners
}

// RunConversation drives the bounded conversation loop described in
// SPEC_FULL.md §4.E. It returns nil on success, on cancellation, and on
// hitting MAX_LOOPS. An adapter failure (a ProviderEvent.Error or an error
// returned by StreamChat) is emitted as chat:error and also returned as a
// non-nil error; a provider type with no registered adapter is returned as
// an error before any event is emitted.
func (o *Orchestrator) RunConversation(
	ctx context.Context,
	config model.ProviderConfig,
	modelName string,
	initialMessages []model.ChatMessage,
	options model.ChatOptions,
	streamID string,
	sink eventsink.Sink,
) error {
	if sink == nil {
		sink = eventsink.NoopSink{}
	}

	adapter, ok := o.adapters[config.Type]
	if !ok {
		return fmt.Errorf("orchestrator: no adapter registered for provider type %q", config.Type)
	}

	cancelFlag := o.streamRegistry.Register(streamID)
	defer o.streamRegistry.Unregister(streamID)

	logger := o.logger.With(zap.String("stream_id", streamID), zap.String("provider", string(config.Type)))

	toolDescriptors, toolOwners := o.gatherTools(ctx)

	sink.Emit("chat:stream-start", map[string]any{"stream_id": streamID})

	messages := append([]model.ChatMessage(nil), initialMessages...)

	for loop := 0; loop < MaxLoops; loop++ {
		if cancelFlag.Load() {
			sink.Emit("chat:cancelled", map[string]any{"stream_id": streamID})
			return nil
		}

		var contentBuilder strings.Builder
		var toolCalls []model.ToolCall
		var streamErr error

		err := adapter.StreamChat(ctx, config, modelName, messages, toolDescriptors, options, func(event model.ProviderEvent) error {
			if cancelFlag.Load() {
				return errCancelled
			}
			switch event.Kind {
			case model.EventContent:
				contentBuilder.WriteString(event.Content)
				sink.Emit("chat:chunk", map[string]any{
					"stream_id": streamID,
					"message":   model.ChatMessage{Role: model.RoleAssistant, Content: event.Content},
					"done":      false,
				})
			case model.EventToolCall:
				toolCalls = append(toolCalls, event.ToolCall)
			case model.EventError:
				streamErr = event.Err
				return event.Err
			case model.EventUsage:
				// Discarded by the core loop; the ambient history store may
				// record it separately.
			}
			return nil
		})

		if err != nil && !errors.Is(err, errCancelled) {
			if streamErr == nil {
				streamErr = err
			}
			logger.Error("adapter stream failed", zap.Error(streamErr))
			sink.Emit("chat:error", map[string]any{"stream_id": streamID, "error": streamErr.Error()})
			return fmt.Errorf("orchestrator: adapter stream failed: %w", streamErr)
		}

		if cancelFlag.Load() {
			sink.Emit("chat:cancelled", map[string]any{"stream_id": streamID})
			return nil
		}

		if len(toolCalls) == 0 {
			sink.Emit("chat:chunk", map[string]any{
				"stream_id": streamID,
				"message":   model.ChatMessage{Role: model.RoleAssistant, Content: ""},
				"done":      true,
			})
			sink.Emit("chat:complete", map[string]any{"stream_id": streamID, "completed": true})
			return nil
		}

		messages = append(messages, model.ChatMessage{
			Role:      model.RoleAssistant,
			Content:   contentBuilder.String(),
			ToolCalls: toolCalls,
		})

		for _, call := range toolCalls {
			sink.Emit("chat:tool-start", map[string]any{"stream_id": streamID, "tool": call.Function.Name, "args": call.Function.Arguments})
			resultText := o.invokeTool(ctx, toolOwners, call, logger)
			messages = append(messages, model.ChatMessage{
				Role:       model.RoleTool,
				Content:    truncateToolResult(resultText),
				ToolCallID: call.ID,
			})
		}
	}

	sink.Emit("chat:complete", map[string]any{"stream_id": streamID, "completed": false, "reason": "max_loops"})
	return nil
}

// invokeTool resolves a tool call's owning MCP client and runs it,
// returning a human-readable error string (instead of aborting the loop)
// when the client, tool, or call itself fails.
func (o *Orchestrator) invokeTool(ctx context.Context, toolOwners map[string]string, call model.ToolCall, logger *zap.Logger) string {
	clientName, ok := toolOwners[call.Function.Name]
	if !ok {
		return fmt.Sprintf("error: no mcp client registered for tool %q", call.Function.Name)
	}
	client, ok := o.mcpRegistry.Get(clientName)
	if !ok {
		return fmt.Sprintf("error: mcp client %q for tool %q is not connected", clientName, call.Function.Name)
	}

	args := json.RawMessage(call.Function.Arguments)
	if !json.Valid(args) {
		args = json.RawMessage("{}")
	}

	result, err := client.CallTool(ctx, call.Function.Name, args)
	if err != nil {
		logger.Warn("tool call failed", zap.String("tool", call.Function.Name), zap.String("mcp_client", clientName), zap.Error(err))
		return fmt.Sprintf("error: tool %q failed: %v", call.Function.Name, err)
	}
	if result.IsError {
		logger.Warn("tool reported an error result", zap.String("tool", call.Function.Name), zap.String("mcp_client", clientName))
	}
	return materializeContent(result)
}

// materializeContent concatenates text and resource-text content blocks,
// newline-separated.
func materializeContent(result mcpclient.CallToolResult) string {
	var parts []string
	for _, block := range result.Content {
		switch {
		case block.Text != "":
			parts = append(parts, block.Text)
		case block.Resource != nil && block.Resource.Text != "":
			parts = append(parts, block.Resource.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// truncateToolResult cuts text at the last newline at or before the 8000
// character threshold and appends a truncation notice, leaving shorter
// text unchanged.
func truncateToolResult(text string) string {
	if len(text) <= maxToolResultChars {
		return text
	}
	cut := strings.LastIndexByte(text[:maxToolResultChars], '\n')
	if cut < 0 {
		cut = maxToolResultChars
	}
	return text[:cut] + "\n...[truncated]"
}
