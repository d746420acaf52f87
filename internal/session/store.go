package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/clarahexa/clarabot/internal/database"
)

// ErrStateTooLarge signals that a merge pushed the serialized session state
// past the configured cap and the state was reset to the empty document.
// Callers log it and carry on; it never fails the request.
var ErrStateTooLarge = errors.New("session state exceeds size cap, state was reset")

// Store is the two-tier session store. Reads hit the cache first and fall
// back to the durable store; writes go through the durable store and refresh
// the cache. Concurrent read-merge-write cycles for one chat are last-write-
// wins; the size cap is the only per-chat defense against unbounded growth.
type Store struct {
	db         database.Store
	cache      Cache
	ttl        time.Duration
	sizeCap    int
	maxContent int
	logger     *slog.Logger
}

// Options bound the store's cache TTL, serialized state size, and
// conversation entry length.
type Options struct {
	CacheTTL         time.Duration
	StateSizeCap     int
	MaxContentLength int
}

// NewStore creates a two-tier session store over the given durable store and cache.
func NewStore(db database.Store, cache Cache, opts Options, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.StateSizeCap <= 0 {
		opts.StateSizeCap = 1 << 20
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = 4000
	}
	return &Store{
		db:         db,
		cache:      cache,
		ttl:        opts.CacheTTL,
		sizeCap:    opts.StateSizeCap,
		maxContent: opts.MaxContentLength,
		logger:     logger.With("component", "session_store"),
	}
}

func cacheKey(chatID string) string {
	return "session:" + chatID
}

// Get retrieves the session for a chat, cache first. Returns nil, nil when
// the chat has no session yet. Cache failures and oversized or undecodable
// cached payloads degrade to a durable read.
func (s *Store) Get(ctx context.Context, chatID string) (*database.Session, error) {
	key := cacheKey(chatID)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "Cache read failed, falling back to database",
			"chat_id", chatID, "error", err)
	} else if cached != nil {
		if len(cached) > s.sizeCap {
			s.logger.WarnContext(ctx, "Evicting oversized cached session",
				"chat_id", chatID, "size", len(cached), "cap", s.sizeCap)
			s.evict(ctx, chatID)
		} else {
			var sess database.Session
			if err := json.Unmarshal(cached, &sess); err != nil {
				s.logger.WarnContext(ctx, "Evicting undecodable cached session",
					"chat_id", chatID, "error", err)
				s.evict(ctx, chatID)
			} else {
				return &sess, nil
			}
		}
	}

	sess, err := s.db.GetSession(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	s.fill(ctx, sess)
	return sess, nil
}

// Create creates the session for a chat if it does not exist and returns it.
// Idempotent under races between concurrent webhook deliveries.
func (s *Store) Create(ctx context.Context, chatID string) (*database.Session, error) {
	sess, err := s.db.UpsertSession(ctx, chatID)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, sess)
	return sess, nil
}

// UpdateState merges a state delta into the chat's session state per the
// declared merge law and persists the result. When the merged document
// exceeds the size cap the durable state is reset to the empty document,
// the cache entry is invalidated, and the reset session is returned together
// with ErrStateTooLarge.
func (s *Store) UpdateState(ctx context.Context, chatID string, delta map[string]any) (*database.Session, error) {
	sess, err := s.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess, err = s.Create(ctx, chatID)
		if err != nil {
			return nil, err
		}
	}

	existing := map[string]any{}
	if len(sess.State) > 0 {
		if err := json.Unmarshal(sess.State, &existing); err != nil {
			s.logger.WarnContext(ctx, "Undecodable session state, starting from empty",
				"chat_id", chatID, "error", err)
			existing = map[string]any{}
		}
	}

	merged := Merge(existing, delta)

	serialized, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize merged state for chat %s: %w", chatID, err)
	}

	if len(serialized) > s.sizeCap {
		s.logger.ErrorContext(ctx, "Merged session state over size cap, resetting",
			"chat_id", chatID, "size", len(serialized), "cap", s.sizeCap)
		if resetErr := s.db.ResetSessionState(ctx, chatID); resetErr != nil {
			return nil, fmt.Errorf("failed to reset oversized state for chat %s: %w", chatID, resetErr)
		}
		s.evict(ctx, chatID)
		sess.State = []byte("{}")
		return sess, ErrStateTooLarge
	}

	if err := s.db.SaveSessionState(ctx, chatID, serialized); err != nil {
		return nil, err
	}

	sess.State = serialized
	sess.LastActivity = time.Now().UTC()
	s.fill(ctx, sess)
	return sess, nil
}

// AppendConversation appends one entry to the chat's conversation log.
// Content is capped to bound row size.
func (s *Store) AppendConversation(ctx context.Context, chatID, role, content string) error {
	sess, err := s.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("no session for chat %s", chatID)
	}

	if runes := []rune(content); len(runes) > s.maxContent {
		content = string(runes[:s.maxContent])
	}

	return s.db.AppendConversation(ctx, sess.ID, role, content)
}

// Clear performs an administrative reset: cache entry removed and durable
// state reset to the empty document.
func (s *Store) Clear(ctx context.Context, chatID string) error {
	s.evict(ctx, chatID)
	return s.db.ResetSessionState(ctx, chatID)
}

func (s *Store) fill(ctx context.Context, sess *database.Session) {
	payload, err := json.Marshal(sess)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to serialize session for cache", "chat_id", sess.ChatID, "error", err)
		return
	}
	if err := s.cache.Set(ctx, cacheKey(sess.ChatID), payload, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "Cache write failed", "chat_id", sess.ChatID, "error", err)
	}
}

func (s *Store) evict(ctx context.Context, chatID string) {
	if err := s.cache.Delete(ctx, cacheKey(chatID)); err != nil {
		s.logger.WarnContext(ctx, "Cache delete failed", "chat_id", chatID, "error", err)
	}
}
