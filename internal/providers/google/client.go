// Package google implements the JSON-per-event SSE adapter for the Gemini
// streamGenerateContent API. Grounded on original_source/providers/google.rs
// line-for-line for endpoint shape, role mapping, and the known
// function-call-id-equals-name limitation (kept per the decided Open
// Question in SPEC_FULL.md §9).
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/nullpointer-labs/chatcore/internal/model"
	"github.com/nullpointer-labs/chatcore/internal/wire"
)

// imageMediaType is hardcoded per the decided Open Question: every image
// attachment is assumed JPEG-encoded.
const imageMediaType = "image/jpeg"

// Client streams chat turns from the Gemini streamGenerateContent API.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a Google client.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: &http.Client{}, logger: logger.With(zap.String("provider", "google"))}
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
		Contents:          convertContents(messages),
		SystemInstruction: convertSystemInstruction(messages),
	}
	if len(tools) > 0 {
		declarations := make([]wireFunctionDeclaration, 0, len(tools))
		for _, tool := range tools {
			declarations = append(declarations, wireFunctionDeclaration{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			})
		}
		req.Tools = []wireTool{{FunctionDeclarations: declarations}}
	}
	if cfg := convertGenerationConfig(options); cfg != nil {
		req.GenerationConfig = cfg
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("google: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf(
		"%s/v1beta/models/%s:streamGenerateContent?alt=sse&key=%s",
		strings.TrimRight(config.ResolvedBaseURL(), "/"),
		url.PathEscape(modelName),
		url.QueryEscape(config.APIKey),
	)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("google: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("google: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("google: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return demux(resp.Body, handler, c.logger)
}

func convertSystemInstruction(messages []model.ChatMessage) *wireSystemInstruction {
	var builder strings.Builder
	for _, msg := range messages {
		if msg.Role != model.RoleSystem {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(msg.Content)
	}
	if builder.Len() == 0 {
		return nil
	}
	return &wireSystemInstruction{Parts: []wirePart{{Text: builder.String()}}}
}

func convertContents(messages []model.ChatMessage) []wireContent {
	out := make([]wireContent, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			continue
		case model.RoleAssistant:
			parts := []wirePart{}
			if msg.Content != "" {
				parts = append(parts, wirePart{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				args := json.RawMessage(call.Function.Arguments)
				if !json.Valid(args) {
					args = json.RawMessage("{}")
				}
				parts = append(parts, wirePart{FunctionCall: &wireFunctionCall{Name: call.Function.Name, Args: args}})
			}
			out = append(out, wireContent{Role: "model", Parts: parts})
		case model.RoleTool:
			out = append(out, wireContent{
				Role: "function",
				Parts: []wirePart{{
					FunctionResponse: &wireFunctionResult{
						Name:     msg.ToolCallID,
						Response: map[string]any{"result": msg.Content},
					},
				}},
			})
		default:
			parts := []wirePart{{Text: msg.Content}}
			for _, image := range msg.Images {
				parts = append(parts, wirePart{InlineData: &wireInlineData{MimeType: imageMediaType, Data: image}})
			}
			out = append(out, wireContent{Role: "user", Parts: parts})
		}
	}
	return out
}

func convertGenerationConfig(options model.ChatOptions) *generationConfig {
	if options.Temperature == nil && options.TopP == nil && options.TopK == nil && options.MaxTokens == nil {
		return nil
	}
	return &generationConfig{
		Temperature:     options.Temperature,
		TopP:            options.TopP,
		TopK:            options.TopK,
		MaxOutputTokens: options.MaxTokens,
	}
}

func demux(body io.Reader, handler func(model.ProviderEvent) error, logger *zap.Logger) error {
	var reader wire.SSEReader
	dispatch := func(event wire.SSEEvent) error {
		if event.Data == wire.DoneSentinel {
			return nil
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
			logger.Warn("skipping malformed sse chunk", zap.Error(err), zap.String("data", event.Data))
			return nil
		}
		if len(chunk.Candidates) > 0 {
			for _, part := range chunk.Candidates[0].Content.Parts {
				if part.Text != "" {
					if err := handler(model.ContentEvent(part.Text)); err != nil {
						return err
					}
				}
				if part.FunctionCall != nil {
					call := model.ToolCall{
						ID:   part.FunctionCall.Name,
						Type: "function",
						Function: model.ToolCallFunction{
							Name:      part.FunctionCall.Name,
							Arguments: string(part.FunctionCall.Args),
						},
					}
					if err := handler(model.ToolCallEvent(call)); err != nil {
						return err
					}
				}
			}
		}
		if chunk.UsageMetadata != nil {
			usage := model.Usage{
				PromptTokens:     chunk.UsageMetadata.PromptTokenCount,
				CompletionTokens: chunk.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      chunk.UsageMetadata.TotalTokenCount,
			}
			if err := handler(model.UsageEvent(usage)); err != nil {
				return err
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
			return fmt.Errorf("google: read response body: %w", readErr)
		}
	}
}
