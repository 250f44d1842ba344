package local

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nullpointer-labs/chatcore/internal/model"
	"github.com/nullpointer-labs/chatcore/internal/testutil"
)

func TestStreamChatEmitsContentToolCallsAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.RequireEqual(t, r.URL.Path, "/api/chat", "posts to /api/chat")
		fmt.Fprintln(w, `{"message":{"content":"hel"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"","tool_calls":[{"id":"1","type":"function","function":{"name":"echo","arguments":"{}"}}]},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":""},"done":true,"prompt_eval_count":5,"eval_count":7}`)
	}))
	defer server.Close()

	client := NewClient(nil)
	config := model.ProviderConfig{Type: model.ProviderLocal, BaseURL: server.URL}

	var events []model.ProviderEvent
	err := client.StreamChat(context.Background(), config, "llama3", nil, []model.ToolDescriptor{{Type: "function"}}, model.ChatOptions{}, func(e model.ProviderEvent) error {
		events = append(events, e)
		return nil
	})
	testutil.RequireNoError(t, err, "stream chat")
	testutil.RequireEqual(t, len(events), 4, "two content events, one tool call, one usage")
	testutil.RequireEqual(t, events[0].Content, "hel", "first content chunk")
	testutil.RequireEqual(t, events[1].Content, "lo", "second content chunk")
	testutil.RequireEqual(t, events[2].ToolCall.Function.Name, "echo", "tool call name")
	testutil.RequireEqual(t, *events[3].Usage.PromptTokens, 5, "prompt tokens")
	testutil.RequireEqual(t, *events[3].Usage.CompletionTokens, 7, "completion tokens")
}

func TestStreamChatRetriesWithoutToolsOnUnsupportedError(t *testing.T) {
	attempt := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt++
		if attempt == 1 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `model "tiny" does not support tools`)
			return
		}
		fmt.Fprintln(w, `{"message":{"content":"ok"},"done":true}`)
	}))
	defer server.Close()

	client := NewClient(nil)
	config := model.ProviderConfig{Type: model.ProviderLocal, BaseURL: server.URL}

	var contents []string
	err := client.StreamChat(context.Background(), config, "tiny", nil, []model.ToolDescriptor{{Type: "function"}}, model.ChatOptions{}, func(e model.ProviderEvent) error {
		if e.Kind == model.EventContent {
			contents = append(contents, e.Content)
		}
		return nil
	})
	testutil.RequireNoError(t, err, "stream chat falls back")
	testutil.RequireEqual(t, attempt, 2, "two requests issued: with tools, then without")
	testutil.RequireTrue(t, len(contents) == 2, "warning content event then real content")
	testutil.RequireStringContains(t, contents[0], "does not support tool calling", "warning message mentions tool support")
	testutil.RequireEqual(t, contents[1], "ok", "real content after fallback")
}
