package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *MessageStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "messages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAndRecentOldestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		err := s.Store(&Message{
			Platform:  "whatsapp",
			ChatID:    "chat-a",
			SenderID:  "+15550001111",
			Text:      string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	msgs, err := s.Recent("chat-a", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "c", msgs[0].Text)
	assert.Equal(t, "d", msgs[1].Text)
	assert.Equal(t, "e", msgs[2].Text)
}

func TestRecentIsolatesChats(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Store(&Message{Platform: "whatsapp", ChatID: "chat-a", SenderID: "x", Text: "one"}))
	require.NoError(t, s.Store(&Message{Platform: "whatsapp", ChatID: "chat-b", SenderID: "y", Text: "two"}))

	msgs, err := s.Recent("chat-a", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "one", msgs[0].Text)
}

func TestWasLastFromSelf(t *testing.T) {
	s := openTestStore(t)
	base := time.Now()

	ok, err := s.WasLastFromSelf("chat-a")
	require.NoError(t, err)
	assert.False(t, ok, "empty chat")

	require.NoError(t, s.Store(&Message{Platform: "whatsapp", ChatID: "chat-a", SenderID: "them", Text: "hi", Timestamp: base}))
	require.NoError(t, s.Store(&Message{Platform: "whatsapp", ChatID: "chat-a", SenderID: "me", Text: "hello", IsFromSelf: true, Timestamp: base.Add(time.Second)}))

	ok, err = s.WasLastFromSelf("chat-a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Store(&Message{Platform: "whatsapp", ChatID: "chat-a", SenderID: "them", Text: "hey again", Timestamp: base.Add(2 * time.Second)}))

	ok, err = s.WasLastFromSelf("chat-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecentChatsOrderedByActivity(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Store(&Message{Platform: "whatsapp", ChatID: "old", SenderID: "a", Text: "x", Timestamp: base}))
	require.NoError(t, s.Store(&Message{Platform: "imessage", ChatID: "new", SenderID: "b", Text: "y", Timestamp: base.Add(time.Hour)}))
	require.NoError(t, s.Store(&Message{Platform: "imessage", ChatID: "new", SenderID: "b", Text: "z", Timestamp: base.Add(2 * time.Hour)}))

	chats, err := s.RecentChats(10)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "new", chats[0].ChatID)
	assert.Equal(t, 2, chats[0].MessageCount)
	assert.Equal(t, "old", chats[1].ChatID)
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Store(&Message{Platform: "whatsapp", ChatID: "a", SenderID: "x", Text: "1"}))
	require.NoError(t, s.Store(&Message{Platform: "whatsapp", ChatID: "a", SenderID: "me", Text: "2", IsFromSelf: true}))
	require.NoError(t, s.Store(&Message{Platform: "whatsapp", ChatID: "b", SenderID: "y", Text: "3"}))

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalMessages)
	assert.Equal(t, 2, st.TotalChats)
	assert.Equal(t, 1, st.SelfMessages)
}

func TestCleanupOlderThan(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Store(&Message{Platform: "whatsapp", ChatID: "a", SenderID: "x", Text: "stale", Timestamp: base}))
	require.NoError(t, s.Store(&Message{Platform: "whatsapp", ChatID: "a", SenderID: "x", Text: "fresh", Timestamp: base.Add(48 * time.Hour)}))

	n, err := s.CleanupOlderThan(base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msgs, err := s.Recent("a", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "fresh", msgs[0].Text)
}
