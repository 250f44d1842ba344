package openaicompat

import "encoding/json"

// toolForbidXMLInstruction is inserted as a system message whenever tools
// are offered, since some OpenAI-compatible gateways otherwise emit
// XML-style pseudo tool calls in plain content instead of using the
// structured tool_calls delta.
const toolForbidXMLInstruction = "Use the provided function-calling interface for any tool invocation. Do not emit tool calls as inline XML or prose."

type wireContentPart struct {
	Type     string             `json:"type"`
	Text     string             `json:"text,omitempty"`
	ImageURL *wireContentImage `json:"image_url,omitempty"`
}

type wireContentImage struct {
	URL string `json:"url"`
}

type wireToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type wireMessage struct {
	Role       string        `json:"role"`
	Content    any           `json:"content,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type chatRequest struct {
	Model       string                 `json:"model"`
	Stream      bool                   `json:"stream"`
	Messages    []wireMessage          `json:"messages"`
	Tools       []json.RawMessage      `json:"tools,omitempty"`
	Temperature *float64               `json:"temperature,omitempty"`
	TopP        *float64               `json:"top_p,omitempty"`
	MaxTokens   *int                   `json:"max_tokens,omitempty"`
}

type streamChunk struct {
	Choices []streamChoice `json:"choices"`
	Error   *streamError   `json:"error,omitempty"`
}

type streamChoice struct {
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type streamDelta struct {
	Content   string             `json:"content"`
	ToolCalls []streamToolDelta  `json:"tool_calls,omitempty"`
}

type streamToolDelta struct {
	Index    int              `json:"index"`
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function wireToolFunction `json:"function"`
}

type streamError struct {
	Code             string `json:"code"`
	FailedGeneration string `json:"failed_generation"`
}
