package database

import (
	"time"
)

// Session represents the persisted conversational state for one chat.
// SessionState is an opaque JSON document holding cross-turn memory:
// last created artifacts, the last bot reply snippet, dynamic aliases,
// and temporary authorizations. There is exactly one row per chat id.
type Session struct {
	ID           string    `db:"id"`
	ChatID       string    `db:"chat_id"`
	State        []byte    `db:"session_state"`
	LastActivity time.Time `db:"last_activity"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ConversationEntry is one line of the append-only conversation log
// owned by a session. Role is either "user" or "assistant".
type ConversationEntry struct {
	ID        uint      `db:"id"`
	SessionID string    `db:"session_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}
