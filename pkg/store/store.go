// Package store persists conversation history in a local SQLite database.
// Every message seen on any transport is recorded, including the bot's own
// outgoing replies, so reply context survives restarts.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Message is one stored conversation event.
type Message struct {
	ID         int64
	Platform   string
	ChatID     string
	SenderID   string
	SenderName string
	Text       string
	Timestamp  time.Time
	IsFromSelf bool
	IsGroup    bool
}

// ChatSummary describes one chat for the active-chat listing.
type ChatSummary struct {
	ChatID       string
	Platform     string
	LastActivity time.Time
	MessageCount int
}

// Stats is an aggregate snapshot of the store.
type Stats struct {
	TotalMessages int
	TotalChats    int
	SelfMessages  int
}

// MessageStore wraps the SQLite connection. Safe for concurrent use; the
// sql package serializes access to the single underlying connection.
type MessageStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	platform TEXT NOT NULL,
	chat_id TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	sender_name TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	is_from_self INTEGER NOT NULL DEFAULT 0,
	is_group INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_time ON messages(chat_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_messages_time ON messages(timestamp);
`

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*MessageStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open message store: %w", err)
	}
	// A single conn avoids SQLITE_BUSY between the pipeline and the
	// RPC handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize message store schema: %w", err)
	}

	return &MessageStore{db: db}, nil
}

// Close releases the database connection.
func (s *MessageStore) Close() error {
	return s.db.Close()
}

// Store persists one message and fills in its assigned ID.
func (s *MessageStore) Store(msg *Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO messages (platform, chat_id, sender_id, sender_name, text, timestamp, is_from_self, is_group)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.Platform, msg.ChatID, msg.SenderID, msg.SenderName, msg.Text,
		msg.Timestamp.UnixMilli(), boolToInt(msg.IsFromSelf), boolToInt(msg.IsGroup),
	)
	if err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		msg.ID = id
	}
	return nil
}

// Recent returns up to limit messages for a chat, ordered oldest first.
func (s *MessageStore) Recent(chatID string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT id, platform, chat_id, sender_id, sender_name, text, timestamp, is_from_self, is_group
		 FROM messages WHERE chat_id = ?
		 ORDER BY timestamp DESC, id DESC LIMIT ?`,
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recent messages: %w", err)
	}

	// Fetched newest-first for the LIMIT; callers want oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// WasLastFromSelf reports whether the most recent message in a chat was
// sent by the bot. An empty chat reports false.
func (s *MessageStore) WasLastFromSelf(chatID string) (bool, error) {
	var fromSelf int
	err := s.db.QueryRow(
		`SELECT is_from_self FROM messages WHERE chat_id = ?
		 ORDER BY timestamp DESC, id DESC LIMIT 1`,
		chatID,
	).Scan(&fromSelf)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check last sender: %w", err)
	}
	return fromSelf != 0, nil
}

// RecentChats lists chats by most recent activity, newest first.
func (s *MessageStore) RecentChats(limit int) ([]ChatSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT chat_id, platform, MAX(timestamp), COUNT(*)
		 FROM messages GROUP BY chat_id, platform
		 ORDER BY MAX(timestamp) DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []ChatSummary
	for rows.Next() {
		var c ChatSummary
		var ts int64
		if err := rows.Scan(&c.ChatID, &c.Platform, &ts, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan chat summary: %w", err)
		}
		c.LastActivity = time.UnixMilli(ts)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// Stats returns aggregate counts across the whole store.
func (s *MessageStore) Stats() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT chat_id), COALESCE(SUM(is_from_self), 0) FROM messages`,
	).Scan(&st.TotalMessages, &st.TotalChats, &st.SelfMessages)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read store stats: %w", err)
	}
	return st, nil
}

// CleanupOlderThan deletes messages older than the cutoff and returns the
// number removed.
func (s *MessageStore) CleanupOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM messages WHERE timestamp < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up old messages: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanMessage(rows *sql.Rows) (Message, error) {
	var msg Message
	var ts int64
	var fromSelf, isGroup int
	if err := rows.Scan(&msg.ID, &msg.Platform, &msg.ChatID, &msg.SenderID,
		&msg.SenderName, &msg.Text, &ts, &fromSelf, &isGroup); err != nil {
		return Message{}, fmt.Errorf("failed to scan message: %w", err)
	}
	msg.Timestamp = time.UnixMilli(ts)
	msg.IsFromSelf = fromSelf != 0
	msg.IsGroup = isGroup != 0
	return msg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
