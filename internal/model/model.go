// Package model holds the shared vocabulary between provider adapters and
// the orchestrator: chat messages, tool calls, provider configuration, and
// the provider event stream contract.
package model

import "encoding/json"

// Role identifies the speaker of a ChatMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage is one conversational turn, shared across every provider.
//
// A tool message must carry a non-empty ToolCallID matching exactly one
// prior assistant tool-call id within the same conversation. An assistant
// message may carry both Content and ToolCalls; if ToolCalls is non-empty
// the orchestrator loop runs again after executing them.
type ChatMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Images     []string   `json:"images,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCallFunction names a function invocation and its arguments.
//
// Arguments is kept as a raw string end-to-end through providers, because
// streaming deltas can only be concatenated meaningfully as strings. It is
// parsed to structured JSON only where the orchestrator hands it to a tool.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is one element of ChatMessage.ToolCalls. It is opaque to the
// orchestrator except for its id, function name, and argument string.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ProviderType enumerates the supported provider families.
type ProviderType string

const (
	ProviderLocal          ProviderType = "local"
	ProviderOpenAICompat   ProviderType = "openai-compatible"
	ProviderAnthropic      ProviderType = "anthropic"
	ProviderGoogle         ProviderType = "google"
	ProviderOther          ProviderType = "other"
	LocalDefaultProviderID              = "local-default"
)

// ProviderConfig describes one configured model provider endpoint.
type ProviderConfig struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Type    ProviderType `json:"provider_type"`
	APIKey  string       `json:"api_key,omitempty"`
	BaseURL string       `json:"base_url,omitempty"`
	Enabled bool         `json:"enabled"`
}

// LocalDefault returns the distinguished, non-deletable local provider.
func LocalDefault() ProviderConfig {
	return ProviderConfig{
		ID:      LocalDefaultProviderID,
		Name:    "Local (Ollama-compatible)",
		Type:    ProviderLocal,
		BaseURL: "http://localhost:11434",
		Enabled: true,
	}
}

// ResolvedBaseURL resolves the effective base URL for a provider config, applying
// the per-type default when none is configured.
func (p ProviderConfig) ResolvedBaseURL() string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	switch p.Type {
	case ProviderLocal:
		return "http://localhost:11434"
	case ProviderOpenAICompat:
		return "https://api.openai.com"
	case ProviderAnthropic:
		return "https://api.anthropic.com"
	case ProviderGoogle:
		return "https://generativelanguage.googleapis.com"
	default:
		return "https://api.example.com"
	}
}

// ChatOptions carries sampling parameters common across providers.
type ChatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// Usage reports token accounting for one provider turn.
type Usage struct {
	PromptTokens     *int `json:"prompt_tokens,omitempty"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`
	TotalTokens      *int `json:"total_tokens,omitempty"`
}

// EventKind tags the variant held by a ProviderEvent.
type EventKind int

const (
	EventContent EventKind = iota
	EventToolCall
	EventUsage
	EventError
)

// ProviderEvent is the tagged variant yielded by every adapter's stream.
// Exactly one of the payload fields is meaningful, selected by Kind.
type ProviderEvent struct {
	Kind     EventKind
	Content  string
	ToolCall ToolCall
	Usage    Usage
	Err      error
}

// ContentEvent constructs a Content variant.
func ContentEvent(text string) ProviderEvent { return ProviderEvent{Kind: EventContent, Content: text} }

// ToolCallEvent constructs a ToolCall variant.
func ToolCallEvent(call ToolCall) ProviderEvent { return ProviderEvent{Kind: EventToolCall, ToolCall: call} }

// UsageEvent constructs a Usage variant.
func UsageEvent(usage Usage) ProviderEvent { return ProviderEvent{Kind: EventUsage, Usage: usage} }

// ErrorEvent constructs an Error variant; it terminates the stream.
func ErrorEvent(err error) ProviderEvent { return ProviderEvent{Kind: EventError, Err: err} }

// ToolDescriptor is the unified, provider-facing tool shape the orchestrator
// hands to adapters: `{type:"function", function:{name, description, parameters}}`.
type ToolDescriptor struct {
	Type     string             `json:"type"`
	Function ToolDescriptorFunc `json:"function"`
}

// ToolDescriptorFunc is the function payload of a ToolDescriptor.
type ToolDescriptorFunc struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}
