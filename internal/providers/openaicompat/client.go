// Package openaicompat implements the SSE-with-deltas adapter shared by
// OpenAI itself and OpenAI-compatible gateways (Groq among them).
// Grounded on original_source/providers/openai.rs for request/endpoint
// shape and the Groq failed-generation repair, and on the teacher's
// internal/llm/openai package (stream.go's SSE loop, stream_accumulator.go's
// delta-assembly state machine) for the Go-idiomatic streaming shape.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nullpointer-labs/chatcore/internal/model"
	"github.com/nullpointer-labs/chatcore/internal/wire"
)

// Client streams chat turns from an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs an OpenAI-compatible client.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: &http.Client{}, logger: logger.With(zap.String("provider", "openai-compatible"))}
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
	req := chatRequest{
		Model:       modelName,
		Stream:      true,
		Messages:    convertMessages(messages, len(tools) > 0),
		Temperature: options.Temperature,
		TopP:        options.TopP,
		MaxTokens:   options.MaxTokens,
	}
	for _, tool := range tools {
		raw, err := json.Marshal(tool)
		if err != nil {
			return fmt.Errorf("openaicompat: marshal tool descriptor: %w", err)
		}
		req.Tools = append(req.Tools, raw)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("openaicompat: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, completionsURL(config.ResolvedBaseURL()), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("openaicompat: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("openaicompat: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openaicompat: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return demux(resp.Body, handler, c.logger)
}

// completionsURL appends /chat/completions, avoiding a doubled /v1 segment
// when base already ends in /v1.
func completionsURL(base string) string {
	trimmed := strings.TrimRight(base, "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return trimmed + "/chat/completions"
	}
	return trimmed + "/v1/chat/completions"
}

func convertMessages(messages []model.ChatMessage, withTools bool) []wireMessage {
	out := make([]wireMessage, 0, len(messages)+1)
	if withTools {
		out = append(out, wireMessage{Role: string(model.RoleSystem), Content: toolForbidXMLInstruction})
	}
	for _, msg := range messages {
		out = append(out, convertMessage(msg))
	}
	return out
}

func convertMessage(msg model.ChatMessage) wireMessage {
	out := wireMessage{Role: string(msg.Role), ToolCallID: msg.ToolCallID}

	if msg.Role == model.RoleTool {
		out.Content = msg.Content
		return out
	}

	if len(msg.Images) == 0 {
		out.Content = msg.Content
	} else {
		parts := []wireContentPart{{Type: "text", Text: msg.Content}}
		for _, image := range msg.Images {
			parts = append(parts, wireContentPart{
				Type:     "image_url",
				ImageURL: &wireContentImage{URL: "data:image/jpeg;base64," + image},
			})
		}
		out.Content = parts
	}

	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, wireToolCall{
			ID:   call.ID,
			Type: call.Type,
			Function: wireToolFunction{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}
	return out
}

func demux(body io.Reader, handler func(model.ProviderEvent) error, logger *zap.Logger) error {
	var reader wire.SSEReader
	accumulator := newToolAccumulator()
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, event := range reader.Feed(buf[:n]) {
				done, dispatchErr := dispatchEvent(event, accumulator, handler, logger)
				if dispatchErr != nil {
					return dispatchErr
				}
				if done {
					return nil
				}
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				for _, event := range reader.Close() {
					done, dispatchErr := dispatchEvent(event, accumulator, handler, logger)
					if dispatchErr != nil {
						return dispatchErr
					}
					if done {
						return nil
					}
				}
				return nil
			}
			return fmt.Errorf("openaicompat: read response body: %w", readErr)
		}
	}
}

// dispatchEvent parses one SSE event and dispatches it to handler. A
// malformed chunk is logged and skipped rather than terminating the
// stream, per the wire codec's parse-failure handling.
func dispatchEvent(event wire.SSEEvent, accumulator *toolAccumulator, handler func(model.ProviderEvent) error, logger *zap.Logger) (bool, error) {
	if event.Data == wire.DoneSentinel {
		for _, call := range accumulator.Flush() {
			if err := handler(model.ToolCallEvent(call)); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
		logger.Warn("skipping malformed sse chunk", zap.Error(err), zap.String("data", event.Data))
		return false, nil
	}

	if chunk.Error != nil && chunk.Error.Code == "tool_use_failed" {
		call, err := repairGroqFailedGeneration(chunk.Error.FailedGeneration)
		if err != nil {
			return false, err
		}
		return false, handler(model.ToolCallEvent(call))
	}

	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			if err := handler(model.ContentEvent(choice.Delta.Content)); err != nil {
				return false, err
			}
		}
		for _, toolDelta := range choice.Delta.ToolCalls {
			accumulator.Apply(toolDelta)
		}
		if choice.FinishReason != nil {
			for _, call := range accumulator.Flush() {
				if err := handler(model.ToolCallEvent(call)); err != nil {
					return false, err
				}
			}
		}
	}
	return false, nil
}

var groqFailedGenerationPattern = regexp.MustCompile(`(?s)^<function=([^{]+)(\{.*\})></function>$`)

// repairGroqFailedGeneration parses Groq's `<function=NAME{ARGS}></function>`
// failed-generation text into a synthetic tool call. Grounded on
// original_source/providers/openai.rs's Groq repair branch.
func repairGroqFailedGeneration(failedGeneration string) (model.ToolCall, error) {
	matches := groqFailedGenerationPattern.FindStringSubmatch(strings.TrimSpace(failedGeneration))
	if matches == nil {
		return model.ToolCall{}, fmt.Errorf("openaicompat: could not parse groq failed_generation: %q", failedGeneration)
	}
	name, args := matches[1], matches[2]
	if !json.Valid([]byte(args)) {
		return model.ToolCall{}, fmt.Errorf("openaicompat: groq failed_generation arguments are not valid json: %q", args)
	}
	return model.ToolCall{
		ID:   "groq_call_" + uuid.NewString(),
		Type: "function",
		Function: model.ToolCallFunction{
			Name:      name,
			Arguments: args,
		},
	}, nil
}
