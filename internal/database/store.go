package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store defines the interface for durable session and conversation operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetSession retrieves a session by chat ID. Returns nil, nil if not found.
	GetSession(ctx context.Context, chatID string) (*Session, error)

	// UpsertSession creates the session row for a chat if it does not exist
	// and returns the current row. Safe under concurrent webhook deliveries
	// for a brand-new chat.
	UpsertSession(ctx context.Context, chatID string) (*Session, error)

	// SaveSessionState replaces the serialized session state for a chat and
	// bumps last_activity.
	SaveSessionState(ctx context.Context, chatID string, state []byte) error

	// AppendConversation inserts one conversation log entry.
	AppendConversation(ctx context.Context, sessionID, role, content string) error

	// GetConversation retrieves the most recent 'limit' entries for a session,
	// oldest first.
	GetConversation(ctx context.Context, sessionID string, limit int) ([]ConversationEntry, error)

	// ResetSessionState resets a chat's state to the empty document.
	ResetSessionState(ctx context.Context, chatID string) error

	// ResetIdleSessions resets the state of sessions with no activity since
	// the cutoff and returns how many were touched.
	ResetIdleSessions(ctx context.Context, cutoff time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves a session by chat ID. Returns nil, nil if not found.
func (s *sqlxStore) GetSession(ctx context.Context, chatID string) (*Session, error) {
	if chatID == "" {
		return nil, fmt.Errorf("chat_id cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var session Session
	query := `SELECT id, chat_id, session_state, last_activity, created_at, updated_at
	          FROM sessions WHERE chat_id = ?`

	err := s.db.GetContext(ctx, &session, query, chatID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No session found", "chat_id", chatID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching session",
			"chat_id", chatID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting session", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get session for chat %s: %w", chatID, err)
	}

	return &session, nil
}

// UpsertSession creates the session row for a chat if it does not exist and
// returns the current row. INSERT OR IGNORE keeps the create idempotent when
// two webhook deliveries race on a brand-new chat.
func (s *sqlxStore) UpsertSession(ctx context.Context, chatID string) (*Session, error) {
	if chatID == "" {
		return nil, fmt.Errorf("chat_id cannot be empty")
	}

	now := time.Now().UTC()
	session := &Session{
		ID:           uuid.NewString(),
		ChatID:       chatID,
		State:        []byte("{}"),
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := `
        INSERT OR IGNORE INTO sessions (id, chat_id, session_state, last_activity, created_at, updated_at)
        VALUES (:id, :chat_id, :session_state, :last_activity, :created_at, :updated_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, session)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating session", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to create session for chat %s: %w", chatID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 1 {
		s.logger.DebugContext(ctx, "Session created", "chat_id", chatID, "session_id", session.ID)
		return session, nil
	}

	// Row already existed (either before the call or via a racing insert);
	// read back whichever row won.
	existing, err := s.GetSession(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("session for chat %s vanished after upsert", chatID)
	}
	return existing, nil
}

// SaveSessionState replaces the serialized session state and bumps last_activity.
func (s *sqlxStore) SaveSessionState(ctx context.Context, chatID string, state []byte) error {
	if chatID == "" {
		return fmt.Errorf("chat_id cannot be empty")
	}
	if len(state) == 0 {
		state = []byte("{}")
	}

	now := time.Now().UTC()
	query := `UPDATE sessions SET session_state = ?, last_activity = ?, updated_at = ? WHERE chat_id = ?`

	result, err := s.db.ExecContext(ctx, query, state, now, now, chatID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving session state", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to save session state for chat %s: %w", chatID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when saving session state",
			"chat_id", chatID, "affected", affected)
	}

	s.logger.DebugContext(ctx, "Session state saved", "chat_id", chatID, "state_size", len(state))
	return nil
}

// AppendConversation inserts one conversation log entry.
func (s *sqlxStore) AppendConversation(ctx context.Context, sessionID, role, content string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}
	if role != "user" && role != "assistant" {
		return fmt.Errorf("invalid conversation role %q", role)
	}

	entry := &ConversationEntry{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	query := `
        INSERT INTO conversations (session_id, role, content, created_at)
        VALUES (:session_id, :role, :content, :created_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error appending conversation entry",
			"session_id", sessionID, "role", role, "error", err)
		return fmt.Errorf("failed to append conversation entry for session %s: %w", sessionID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		entry.ID = uint(id)
	}

	s.logger.DebugContext(ctx, "Conversation entry appended",
		"session_id", sessionID, "role", role, "entry_id", entry.ID)
	return nil
}

// GetConversation retrieves the most recent 'limit' entries for a session, oldest first.
func (s *sqlxStore) GetConversation(ctx context.Context, sessionID string, limit int) ([]ConversationEntry, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id cannot be empty")
	}
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}

	var entries []ConversationEntry
	query := `
        SELECT id, session_id, role, content, created_at
        FROM (
            SELECT id, session_id, role, content, created_at
            FROM conversations
            WHERE session_id = ?
            ORDER BY created_at DESC, id DESC
            LIMIT ?
        )
        ORDER BY created_at ASC, id ASC;
    `

	err := s.db.SelectContext(ctx, &entries, query, sessionID, limit)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching conversation",
			"session_id", sessionID, "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting conversation entries",
			"session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to get conversation for session %s: %w", sessionID, err)
	}

	return entries, nil
}

// ResetSessionState resets a chat's state to the empty document.
func (s *sqlxStore) ResetSessionState(ctx context.Context, chatID string) error {
	return s.SaveSessionState(ctx, chatID, []byte("{}"))
}

// ResetIdleSessions resets the state of sessions idle since before the cutoff.
func (s *sqlxStore) ResetIdleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE sessions SET session_state = '{}', updated_at = ?
	          WHERE last_activity < ? AND session_state != '{}'`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), cutoff.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error resetting idle sessions", "error", err)
		return 0, fmt.Errorf("failed to reset idle sessions: %w", err)
	}

	count, _ := result.RowsAffected()
	if count > 0 {
		s.logger.InfoContext(ctx, "Reset idle session state", "count", count, "cutoff", cutoff)
	}
	return count, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
