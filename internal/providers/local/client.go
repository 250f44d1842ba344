// Package local implements the NDJSON chat adapter for an Ollama-compatible
// local daemon. Grounded on original_source/providers/ollama.rs: request
// shape, the tools-unsupported fallback, and the per-record usage fields.
package local

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

// toolUnsupportedMarker is the substring the daemon's error body carries
// when the selected model has no tool-calling support.
const toolUnsupportedMarker = "does not support tools"

// toolSystemInstruction is prepended as a system message whenever tools are
// offered to the model, instructing it to use the structured tool-call
// protocol rather than describing actions in prose.
const toolSystemInstruction = "You have access to tools. When a tool call is needed, respond using the model's native tool-calling mechanism rather than describing the action in plain text."

// Client streams chat turns from a local NDJSON daemon.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a local daemon client.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: &http.Client{}, logger: logger.With(zap.String("provider", "local"))}
}

type chatRequest struct {
	Model    string                 `json:"model"`
	Stream   bool                   `json:"stream"`
	Messages []model.ChatMessage    `json:"messages"`
	Options  map[string]any         `json:"options,omitempty"`
	Tools    []model.ToolDescriptor `json:"tools,omitempty"`
}

type chatRecordMessage struct {
	Content   string           `json:"content"`
	ToolCalls []model.ToolCall `json:"tool_calls,omitempty"`
}

type chatRecord struct {
	Message        chatRecordMessage `json:"message"`
	Done           bool              `json:"done"`
	PromptEvalCount *int             `json:"prompt_eval_count,omitempty"`
	EvalCount       *int             `json:"eval_count,omitempty"`
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
	withTools := len(tools) > 0
	if err := c.stream(ctx, config, modelName, messages, tools, options, withTools, handler); err != nil {
		if withTools {
			if apiErr, ok := err.(*statusError); ok && strings.Contains(apiErr.body, toolUnsupportedMarker) {
				c.logger.Info("model does not support tools, retrying without them", zap.String("model", modelName))
				warning := fmt.Sprintf("note: model %q does not support tool calling; continuing without tools.", modelName)
				if handlerErr := handler(model.ContentEvent(warning)); handlerErr != nil {
					return handlerErr
				}
				return c.stream(ctx, config, modelName, messages, nil, options, false, handler)
			}
		}
		return err
	}
	return nil
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("local provider: status %d: %s", e.status, e.body)
}

func (c *Client) stream(
	ctx context.Context,
	config model.ProviderConfig,
	modelName string,
	messages []model.ChatMessage,
	tools []model.ToolDescriptor,
	options model.ChatOptions,
	withTools bool,
	handler func(model.ProviderEvent) error,
) error {
	outgoing := messages
	if withTools {
		outgoing = append([]model.ChatMessage{{Role: model.RoleSystem, Content: toolSystemInstruction}}, messages...)
	}

	req := chatRequest{
		Model:    modelName,
		Stream:   true,
		Messages: outgoing,
		Options:  mappedOptions(options),
	}
	if withTools {
		req.Tools = tools
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("local provider: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(config.ResolvedBaseURL(), "/")+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("local provider: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("local provider: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	return demux(resp.Body, handler, c.logger)
}

func demux(body io.Reader, handler func(model.ProviderEvent) error, logger *zap.Logger) error {
	var reader wire.NDJSONReader
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, line := range reader.Feed(buf[:n]) {
				if err := dispatchLine(line, handler, logger); err != nil {
					return err
				}
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				for _, line := range reader.Close() {
					if err := dispatchLine(line, handler, logger); err != nil {
						return err
					}
				}
				return nil
			}
			return fmt.Errorf("local provider: read response body: %w", readErr)
		}
	}
}

// dispatchLine parses one NDJSON record and dispatches it to handler. A
// malformed record is logged and skipped rather than terminating the
// stream, per the wire codec's parse-failure handling.
func dispatchLine(line string, handler func(model.ProviderEvent) error, logger *zap.Logger) error {
	var record chatRecord
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		logger.Warn("skipping malformed ndjson record", zap.Error(err), zap.String("line", line))
		return nil
	}
	if record.Message.Content != "" {
		if err := handler(model.ContentEvent(record.Message.Content)); err != nil {
			return err
		}
	}
	for _, call := range record.Message.ToolCalls {
		if err := handler(model.ToolCallEvent(call)); err != nil {
			return err
		}
	}
	if record.Done {
		var sum int
		if record.PromptEvalCount != nil {
			sum += *record.PromptEvalCount
		}
		if record.EvalCount != nil {
			sum += *record.EvalCount
		}
		usage := model.Usage{PromptTokens: record.PromptEvalCount, CompletionTokens: record.EvalCount, TotalTokens: &sum}
		if err := handler(model.UsageEvent(usage)); err != nil {
			return err
		}
	}
	return nil
}

func mappedOptions(options model.ChatOptions) map[string]any {
	out := map[string]any{}
	if options.Temperature != nil {
		out["temperature"] = *options.Temperature
	}
	if options.TopP != nil {
		out["top_p"] = *options.TopP
	}
	if options.TopK != nil {
		out["top_k"] = *options.TopK
	}
	if options.MaxTokens != nil {
		out["num_predict"] = *options.MaxTokens
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
