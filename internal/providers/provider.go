// Package providers defines the one shared contract every provider adapter
// implements: a single streaming chat call that drives a callback with
// ProviderEvent values as the HTTP response body arrives.
package providers

import (
	"context"

	"github.com/nullpointer-labs/chatcore/internal/model"
)

// EventHandler receives one ProviderEvent at a time, in arrival order. A
// non-nil return stops the stream early and is propagated out of
// StreamChat.
type EventHandler = func(model.ProviderEvent) error

// Adapter is implemented once per provider family (local daemon,
// OpenAI-compatible, Anthropic, Google). StreamChat issues one network
// request and demultiplexes its body into ProviderEvent values; the local
// adapter reissues the request once, without tools, when the model rejects
// tool calling.
type Adapter interface {
	StreamChat(
		ctx context.Context,
		config model.ProviderConfig,
		modelName string,
		messages []model.ChatMessage,
		tools []model.ToolDescriptor,
		options model.ChatOptions,
		handler EventHandler,
	) error
}
