package google

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nullpointer-labs/chatcore/internal/model"
	"github.com/nullpointer-labs/chatcore/internal/testutil"
)

func TestStreamChatEmitsTextFunctionCallAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.RequireTrue(t, strings.Contains(r.URL.Path, "gemini-test:streamGenerateContent"), "model-scoped streamGenerateContent path")
		testutil.RequireEqual(t, r.URL.Query().Get("alt"), "sse", "alt=sse query param")
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"hi\"}]}}]}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"functionCall\":{\"name\":\"echo\",\"args\":{\"a\":1}}}]}}]}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "data: {\"candidates\":[],\"usage_metadata\":{\"prompt_token_count\":3,\"candidates_token_count\":5}}\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	client := NewClient(nil)
	config := model.ProviderConfig{Type: model.ProviderGoogle, BaseURL: server.URL, APIKey: "key"}

	var events []model.ProviderEvent
	err := client.StreamChat(context.Background(), config, "gemini-test", nil, nil, model.ChatOptions{}, func(e model.ProviderEvent) error {
		events = append(events, e)
		return nil
	})
	testutil.RequireNoError(t, err, "stream chat")
	testutil.RequireEqual(t, len(events), 3, "text, function call, usage")
	testutil.RequireEqual(t, events[0].Content, "hi", "text part")
	testutil.RequireEqual(t, events[1].ToolCall.ID, "echo", "id equals function name per known limitation")
	testutil.RequireEqual(t, *events[2].Usage.PromptTokens, 3, "prompt tokens")
}

func TestConvertContentsMapsRolesAndSkipsSystem(t *testing.T) {
	messages := []model.ChatMessage{
		{Role: model.RoleSystem, Content: "be terse"},
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleTool, Content: "result", ToolCallID: "echo"},
	}
	contents := convertContents(messages)
	testutil.RequireEqual(t, len(contents), 2, "system message excluded from contents")
	testutil.RequireEqual(t, contents[0].Role, "user", "user role preserved")
	testutil.RequireEqual(t, contents[1].Role, "function", "tool role maps to function")
	testutil.RequireEqual(t, contents[1].Parts[0].FunctionResponse.Response["result"], "result", "tool content becomes function response result")
}
