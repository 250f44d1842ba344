// Package historystore persists chats and messages to a local SQLite
// database. Grounded operation-for-operation on
// original_source/commands/db.rs and original_source/db/mod.rs (schema,
// WAL + foreign_keys pragmas, touch-on-append, has_messages flag), wired
// through modernc.org/sqlite (the teacher's go.mod already carries it for
// a different purpose; here it is the conversation history backend) via
// database/sql rather than sqlx, following the teacher's plain
// database/sql usage elsewhere for local persistence.
package historystore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Chat is one row of the chats table.
type Chat struct {
	ID           string
	CreatedAt    int64
	UpdatedAt    int64
	Model        *string
	SystemPrompt *string
	ParamsJSON   *string
	Title        *string
}

// ChatWithFlags augments Chat with whether it has any messages.
type ChatWithFlags struct {
	Chat
	HasMessages bool
}

// Message is one row of the messages table.
type Message struct {
	ID        string
	ChatID    string
	Role      string
	Content   string
	CreatedAt int64
	MetaJSON  *string
}

// Store wraps a *sql.DB opened against one SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// applies the schema and pragmas.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("historystore: open database: %w", err)
	}
	// Required for WAL + FK pragmas to apply to every connection the pool
	// hands out, and because SQLite serializes writers regardless.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	statements := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		`CREATE TABLE IF NOT EXISTS chats (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			model TEXT,
			system_prompt TEXT,
			params_json TEXT,
			title TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			meta_json TEXT,
			FOREIGN KEY(chat_id) REFERENCES chats(id) ON DELETE CASCADE
		)`,
	}
	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return fmt.Errorf("historystore: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// CreateChat inserts a new chat row and returns it.
func (s *Store) CreateChat(model, systemPrompt, paramsJSON *string) (Chat, error) {
	chat := Chat{
		ID:           uuid.NewString(),
		CreatedAt:    nowMillis(),
		Model:        model,
		SystemPrompt: systemPrompt,
		ParamsJSON:   paramsJSON,
	}
	chat.UpdatedAt = chat.CreatedAt
	_, err := s.db.Exec(
		"INSERT INTO chats (id, created_at, updated_at, model, system_prompt, params_json, title) VALUES (?,?,?,?,?,?,?)",
		chat.ID, chat.CreatedAt, chat.UpdatedAt, chat.Model, chat.SystemPrompt, chat.ParamsJSON, chat.Title,
	)
	if err != nil {
		return Chat{}, fmt.Errorf("historystore: create chat: %w", err)
	}
	return chat, nil
}

// AppendMessage inserts a message and touches the parent chat's
// updated_at timestamp.
func (s *Store) AppendMessage(chatID, role, content string, metaJSON *string) (Message, error) {
	message := Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: nowMillis(),
		MetaJSON:  metaJSON,
	}
	_, err := s.db.Exec(
		"INSERT INTO messages (id, chat_id, role, content, created_at, meta_json) VALUES (?,?,?,?,?,?)",
		message.ID, message.ChatID, message.Role, message.Content, message.CreatedAt, message.MetaJSON,
	)
	if err != nil {
		return Message{}, fmt.Errorf("historystore: append message: %w", err)
	}
	if err := s.touchChatUpdated(chatID); err != nil {
		return Message{}, err
	}
	return message, nil
}

func (s *Store) touchChatUpdated(chatID string) error {
	_, err := s.db.Exec("UPDATE chats SET updated_at=? WHERE id=?", nowMillis(), chatID)
	if err != nil {
		return fmt.Errorf("historystore: touch chat updated_at: %w", err)
	}
	return nil
}

// SetChatModel updates a chat's model, reporting whether a row matched.
func (s *Store) SetChatModel(chatID, model string) (bool, error) {
	result, err := s.db.Exec("UPDATE chats SET model = ? WHERE id = ?", model, chatID)
	if err != nil {
		return false, fmt.Errorf("historystore: set chat model: %w", err)
	}
	return rowsAffected(result)
}

// SetChatTitle updates a chat's title, reporting whether a row matched.
func (s *Store) SetChatTitle(chatID, title string) (bool, error) {
	result, err := s.db.Exec("UPDATE chats SET title = ? WHERE id = ?", title, chatID)
	if err != nil {
		return false, fmt.Errorf("historystore: set chat title: %w", err)
	}
	return rowsAffected(result)
}

// ListChats returns the most recently updated chats, newest first, up to
// limit (defaulting to 100 when limit <= 0).
func (s *Store) ListChats(limit int) ([]Chat, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		"SELECT id, created_at, updated_at, model, system_prompt, params_json, title FROM chats ORDER BY updated_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("historystore: list chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ID, &chat.CreatedAt, &chat.UpdatedAt, &chat.Model, &chat.SystemPrompt, &chat.ParamsJSON, &chat.Title); err != nil {
			return nil, fmt.Errorf("historystore: scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// ListChatsWithFlags is ListChats augmented with a has_messages flag per
// chat.
func (s *Store) ListChatsWithFlags(limit int) ([]ChatWithFlags, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT c.id, c.created_at, c.updated_at, c.model, c.system_prompt, c.params_json, c.title,
		   EXISTS(SELECT 1 FROM messages m WHERE m.chat_id = c.id LIMIT 1) AS has_messages
		 FROM chats c ORDER BY c.updated_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("historystore: list chats with flags: %w", err)
	}
	defer rows.Close()

	var chats []ChatWithFlags
	for rows.Next() {
		var chat ChatWithFlags
		if err := rows.Scan(&chat.ID, &chat.CreatedAt, &chat.UpdatedAt, &chat.Model, &chat.SystemPrompt, &chat.ParamsJSON, &chat.Title, &chat.HasMessages); err != nil {
			return nil, fmt.Errorf("historystore: scan chat-with-flags row: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// ListMessages returns a chat's messages in chronological order, up to
// limit (defaulting to 500 when limit <= 0).
func (s *Store) ListMessages(chatID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.Query(
		"SELECT id, chat_id, role, content, created_at, meta_json FROM messages WHERE chat_id = ? ORDER BY created_at ASC LIMIT ?",
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("historystore: list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var message Message
		if err := rows.Scan(&message.ID, &message.ChatID, &message.Role, &message.Content, &message.CreatedAt, &message.MetaJSON); err != nil {
			return nil, fmt.Errorf("historystore: scan message row: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// DeleteChat removes a chat (cascading to its messages), reporting
// whether a row matched.
func (s *Store) DeleteChat(chatID string) (bool, error) {
	result, err := s.db.Exec("DELETE FROM chats WHERE id = ?", chatID)
	if err != nil {
		return false, fmt.Errorf("historystore: delete chat: %w", err)
	}
	return rowsAffected(result)
}

// UpdateMessage rewrites a message's content, reporting whether a row
// matched.
func (s *Store) UpdateMessage(messageID, content string) (bool, error) {
	result, err := s.db.Exec("UPDATE messages SET content = ? WHERE id = ?", content, messageID)
	if err != nil {
		return false, fmt.Errorf("historystore: update message: %w", err)
	}
	return rowsAffected(result)
}

// DeleteMessagesAfter removes every message in a chat created strictly
// after timestamp, returning the number removed.
func (s *Store) DeleteMessagesAfter(chatID string, timestamp int64) (int64, error) {
	result, err := s.db.Exec("DELETE FROM messages WHERE chat_id = ? AND created_at > ?", chatID, timestamp)
	if err != nil {
		return 0, fmt.Errorf("historystore: delete messages after: %w", err)
	}
	return result.RowsAffected()
}

func rowsAffected(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("historystore: read rows affected: %w", err)
	}
	return affected > 0, nil
}
