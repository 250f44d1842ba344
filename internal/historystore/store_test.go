package historystore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nullpointer-labs/chatcore/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	testutil.RequireNoError(t, err, "open store")
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func TestCreateChatThenAppendMessageTouchesUpdatedAt(t *testing.T) {
	store := newTestStore(t)
	chat, err := store.CreateChat(strPtr("llama3"), nil, nil)
	testutil.RequireNoError(t, err, "create chat")
	testutil.RequireTrue(t, chat.ID != "", "chat has an id")

	originalUpdatedAt := chat.UpdatedAt
	_, err = store.AppendMessage(chat.ID, "user", "hello", nil)
	testutil.RequireNoError(t, err, "append message")

	chats, err := store.ListChats(10)
	testutil.RequireNoError(t, err, "list chats")
	testutil.RequireEqual(t, len(chats), 1, "one chat")
	testutil.RequireTrue(t, chats[0].UpdatedAt >= originalUpdatedAt, "updated_at advanced or equal")
}

func TestListMessagesReturnsChronologicalOrder(t *testing.T) {
	store := newTestStore(t)
	chat, err := store.CreateChat(nil, nil, nil)
	testutil.RequireNoError(t, err, "create chat")

	_, err = store.AppendMessage(chat.ID, "user", "first", nil)
	testutil.RequireNoError(t, err, "append first")
	_, err = store.AppendMessage(chat.ID, "assistant", "second", nil)
	testutil.RequireNoError(t, err, "append second")

	messages, err := store.ListMessages(chat.ID, 0)
	testutil.RequireNoError(t, err, "list messages")
	testutil.RequireEqual(t, len(messages), 2, "two messages")
	testutil.RequireEqual(t, messages[0].Content, "first", "first message first")
	testutil.RequireEqual(t, messages[1].Content, "second", "second message second")
}

func TestListChatsWithFlagsReportsHasMessages(t *testing.T) {
	store := newTestStore(t)
	emptyChat, err := store.CreateChat(nil, nil, nil)
	testutil.RequireNoError(t, err, "create empty chat")
	fullChat, err := store.CreateChat(nil, nil, nil)
	testutil.RequireNoError(t, err, "create full chat")
	_, err = store.AppendMessage(fullChat.ID, "user", "hi", nil)
	testutil.RequireNoError(t, err, "append message")

	chats, err := store.ListChatsWithFlags(10)
	testutil.RequireNoError(t, err, "list chats with flags")
	testutil.RequireEqual(t, len(chats), 2, "two chats")

	flagByID := map[string]bool{}
	for _, chat := range chats {
		flagByID[chat.ID] = chat.HasMessages
	}
	testutil.RequireTrue(t, !flagByID[emptyChat.ID], "empty chat has no messages")
	testutil.RequireTrue(t, flagByID[fullChat.ID], "full chat has messages")
}

func TestSetChatTitleAndModelReportMatch(t *testing.T) {
	store := newTestStore(t)
	chat, err := store.CreateChat(nil, nil, nil)
	testutil.RequireNoError(t, err, "create chat")

	matched, err := store.SetChatTitle(chat.ID, "My Chat")
	testutil.RequireNoError(t, err, "set chat title")
	testutil.RequireTrue(t, matched, "title update matched")

	matched, err = store.SetChatModel(chat.ID, "gpt-4o")
	testutil.RequireNoError(t, err, "set chat model")
	testutil.RequireTrue(t, matched, "model update matched")

	matched, err = store.SetChatTitle("missing", "x")
	testutil.RequireNoError(t, err, "set chat title on missing chat")
	testutil.RequireTrue(t, !matched, "no match for unknown chat id")
}

func TestDeleteChatCascadesToMessages(t *testing.T) {
	store := newTestStore(t)
	chat, err := store.CreateChat(nil, nil, nil)
	testutil.RequireNoError(t, err, "create chat")
	_, err = store.AppendMessage(chat.ID, "user", "hi", nil)
	testutil.RequireNoError(t, err, "append message")

	deleted, err := store.DeleteChat(chat.ID)
	testutil.RequireNoError(t, err, "delete chat")
	testutil.RequireTrue(t, deleted, "chat deleted")

	messages, err := store.ListMessages(chat.ID, 0)
	testutil.RequireNoError(t, err, "list messages after delete")
	testutil.RequireEqual(t, len(messages), 0, "messages cascaded away")
}

func TestUpdateMessageRewritesContent(t *testing.T) {
	store := newTestStore(t)
	chat, err := store.CreateChat(nil, nil, nil)
	testutil.RequireNoError(t, err, "create chat")
	message, err := store.AppendMessage(chat.ID, "user", "original", nil)
	testutil.RequireNoError(t, err, "append message")

	matched, err := store.UpdateMessage(message.ID, "edited")
	testutil.RequireNoError(t, err, "update message")
	testutil.RequireTrue(t, matched, "update matched")

	messages, err := store.ListMessages(chat.ID, 0)
	testutil.RequireNoError(t, err, "list messages")
	testutil.RequireEqual(t, messages[0].Content, "edited", "content rewritten")
}

func TestDeleteMessagesAfterRemovesOnlyNewer(t *testing.T) {
	store := newTestStore(t)
	chat, err := store.CreateChat(nil, nil, nil)
	testutil.RequireNoError(t, err, "create chat")

	first, err := store.AppendMessage(chat.ID, "user", "old", nil)
	testutil.RequireNoError(t, err, "append first")
	time.Sleep(2 * time.Millisecond)
	_, err = store.AppendMessage(chat.ID, "assistant", "new", nil)
	testutil.RequireNoError(t, err, "append second")

	removed, err := store.DeleteMessagesAfter(chat.ID, first.CreatedAt)
	testutil.RequireNoError(t, err, "delete messages after")
	testutil.RequireTrue(t, removed >= 1, "at least one message removed")

	messages, err := store.ListMessages(chat.ID, 0)
	testutil.RequireNoError(t, err, "list messages")
	testutil.RequireEqual(t, len(messages), 1, "only the old message remains")
	testutil.RequireEqual(t, messages[0].Content, "old", "surviving message is the old one")
}
