package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nullpointer-labs/chatcore/internal/eventsink"
	"github.com/nullpointer-labs/chatcore/internal/model"
	"github.com/nullpointer-labs/chatcore/internal/testutil"
)

func TestListenForEventTranslatesChunk(t *testing.T) {
	sink := eventsink.NewChannelSink(4)
	sink.Emit("chat:chunk", map[string]any{
		"message": model.ChatMessage{Role: model.RoleAssistant, Content: "hi"},
		"done":    false,
	})

	msg := listenForEvent(sink.Events())()
	chunk, ok := msg.(chunkMsg)
	testutil.RequireTrue(t, ok, "expected a chunkMsg")
	testutil.RequireEqual(t, chunk.text, "hi", "chunk text")
	testutil.RequireEqual(t, chunk.done, false, "chunk done flag")
}

func TestListenForEventTranslatesToolStart(t *testing.T) {
	sink := eventsink.NewChannelSink(4)
	sink.Emit("chat:tool-start", map[string]any{"tool": "search", "args": "{}"})

	msg := listenForEvent(sink.Events())()
	toolMsg, ok := msg.(toolStartMsg)
	testutil.RequireTrue(t, ok, "expected a toolStartMsg")
	testutil.RequireEqual(t, toolMsg.tool, "search", "tool name")
}

func TestListenForEventTranslatesComplete(t *testing.T) {
	sink := eventsink.NewChannelSink(4)
	sink.Emit("chat:complete", map[string]any{"completed": false, "reason": "max_loops"})

	msg := listenForEvent(sink.Events())()
	done, ok := msg.(turnDoneMsg)
	testutil.RequireTrue(t, ok, "expected a turnDoneMsg")
	testutil.RequireEqual(t, done.completed, false, "completed flag")
	testutil.RequireEqual(t, done.reason, "max_loops", "reason")
}

func TestLiveChatModelUpdateAccumulatesChunks(t *testing.T) {
	sink := eventsink.NewChannelSink(4)
	m := newLiveChatModel(sink)

	updated, _ := m.Update(chunkMsg{text: "Hel"})
	updated, _ = updated.(liveChatModel).Update(chunkMsg{text: "lo"})
	live := updated.(liveChatModel)

	testutil.RequireEqual(t, live.content, "Hello", "accumulated content")
	testutil.RequireTrue(t, !live.done, "model should not be done yet")
}

func TestLiveChatModelUpdateQuitsOnError(t *testing.T) {
	sink := eventsink.NewChannelSink(4)
	m := newLiveChatModel(sink)

	updated, cmd := m.Update(turnErrorMsg{message: "boom"})
	live := updated.(liveChatModel)

	testutil.RequireTrue(t, live.done, "model should be done after an error")
	testutil.RequireTrue(t, live.err != nil, "model should carry the error")
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
}

func TestLiveChatModelUpdateQuitsOnCancellation(t *testing.T) {
	sink := eventsink.NewChannelSink(4)
	m := newLiveChatModel(sink)

	updated, cmd := m.Update(turnCancelledMsg{})
	live := updated.(liveChatModel)

	testutil.RequireTrue(t, live.done, "model should be done after cancellation")
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
}

func TestLiveChatModelUpdateHandlesCtrlC(t *testing.T) {
	sink := eventsink.NewChannelSink(4)
	m := newLiveChatModel(sink)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected ctrl+c to produce a quit command")
	}
}
