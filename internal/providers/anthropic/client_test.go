package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nullpointer-labs/chatcore/internal/model"
	"github.com/nullpointer-labs/chatcore/internal/testutil"
)

func TestStreamChatAccumulatesToolUseBlockAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.RequireEqual(t, r.URL.Path, "/v1/messages", "posts to /v1/messages")
		testutil.RequireEqual(t, r.Header.Get("x-api-key"), "secret", "x-api-key header")
		testutil.RequireEqual(t, r.Header.Get("anthropic-version"), anthropicVersion, "anthropic-version header")
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		write := func(s string) {
			fmt.Fprint(w, s)
			flusher.Flush()
		}
		write("event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"usage\":{\"input_tokens\":12}}}\n\n")
		write("event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"hi\"}}\n\n")
		write("event: content_block_start\ndata: {\"type\":\"content_block_start\",\"content_block\":{\"type\":\"tool_use\",\"id\":\"tool_1\",\"name\":\"echo\"}}\n\n")
		write("event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"{\\\"a\\\":1}\"}}\n\n")
		write("event: content_block_stop\ndata: {\"type\":\"content_block_stop\"}\n\n")
		write("event: message_delta\ndata: {\"type\":\"message_delta\",\"usage\":{\"output_tokens\":8}}\n\n")
		write("event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer server.Close()

	client := NewClient(nil)
	config := model.ProviderConfig{Type: model.ProviderAnthropic, BaseURL: server.URL, APIKey: "secret"}

	var events []model.ProviderEvent
	err := client.StreamChat(context.Background(), config, "claude-test", nil, nil, model.ChatOptions{}, func(e model.ProviderEvent) error {
		events = append(events, e)
		return nil
	})
	testutil.RequireNoError(t, err, "stream chat")
	testutil.RequireEqual(t, len(events), 3, "content, tool call, usage")
	testutil.RequireEqual(t, events[0].Content, "hi", "text delta")
	testutil.RequireEqual(t, events[1].ToolCall.ID, "tool_1", "tool use id")
	testutil.RequireEqual(t, events[1].ToolCall.Function.Arguments, "{\"a\":1}", "accumulated partial_json")
	testutil.RequireEqual(t, *events[2].Usage.PromptTokens, 12, "input tokens")
	testutil.RequireEqual(t, *events[2].Usage.CompletionTokens, 8, "output tokens")
}

func TestConvertMessagesSplitsSystemAndConvertsToolResult(t *testing.T) {
	messages := []model.ChatMessage{
		{Role: model.RoleSystem, Content: "be terse"},
		{Role: model.RoleUser, Content: "hello"},
		{Role: model.RoleTool, Content: "result text", ToolCallID: "tool_1"},
	}
	system, converted := convertMessages(messages)
	testutil.RequireEqual(t, system, "be terse", "system message hoisted")
	testutil.RequireEqual(t, len(converted), 2, "user and tool-result messages remain")
	testutil.RequireEqual(t, converted[1].Role, "user", "tool role becomes a user message")
	testutil.RequireEqual(t, converted[1].Content[0].Type, "tool_result", "tool_result content block")
	testutil.RequireEqual(t, converted[1].Content[0].ToolUseID, "tool_1", "tool_use_id preserved")
}
