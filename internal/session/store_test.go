package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/clarahexa/clarabot/internal/database"
	"github.com/clarahexa/clarabot/internal/session"
)

type fakeDB struct {
	sessions map[string]*database.Session
	appended []database.ConversationEntry
	getErr   error
	resets   []string
}

func newFakeDB() *fakeDB {
	return &fakeDB{sessions: map[string]*database.Session{}}
}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) GetSession(_ context.Context, chatID string) (*database.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	sess, ok := f.sessions[chatID]
	if !ok {
		return nil, nil
	}
	copied := *sess
	return &copied, nil
}

func (f *fakeDB) UpsertSession(_ context.Context, chatID string) (*database.Session, error) {
	if sess, ok := f.sessions[chatID]; ok {
		copied := *sess
		return &copied, nil
	}
	sess := &database.Session{ID: "sess-" + chatID, ChatID: chatID, State: []byte("{}")}
	f.sessions[chatID] = sess
	copied := *sess
	return &copied, nil
}

func (f *fakeDB) SaveSessionState(_ context.Context, chatID string, state []byte) error {
	sess, ok := f.sessions[chatID]
	if !ok {
		return errors.New("no such session")
	}
	sess.State = state
	sess.LastActivity = time.Now().UTC()
	return nil
}

func (f *fakeDB) AppendConversation(_ context.Context, sessionID, role, content string) error {
	f.appended = append(f.appended, database.ConversationEntry{SessionID: sessionID, Role: role, Content: content})
	return nil
}

func (f *fakeDB) GetConversation(context.Context, string, int) ([]database.ConversationEntry, error) {
	return nil, nil
}

func (f *fakeDB) ResetSessionState(_ context.Context, chatID string) error {
	f.resets = append(f.resets, chatID)
	if sess, ok := f.sessions[chatID]; ok {
		sess.State = []byte("{}")
	}
	return nil
}

func (f *fakeDB) ResetIdleSessions(context.Context, time.Time) (int64, error) { return 0, nil }
func (f *fakeDB) RunSQLMaintenance(context.Context) error                    { return nil }

type fakeCache struct {
	entries map[string][]byte
	getErr  error
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	val, ok := f.entries[key]
	if !ok {
		return nil, nil
	}
	return val, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.entries[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	delete(f.entries, key)
	return nil
}

func newStore(db *fakeDB, cache *fakeCache, sizeCap int) *session.Store {
	return session.NewStore(db, cache, session.Options{
		CacheTTL:         time.Minute,
		StateSizeCap:     sizeCap,
		MaxContentLength: 50,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStore_GetMissReturnsNil(t *testing.T) {
	t.Parallel()

	store := newStore(newFakeDB(), newFakeCache(), 4096)

	sess, err := store.Get(context.Background(), "123@c.us")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess != nil {
		t.Errorf("Get() = %+v, want nil for unknown chat", sess)
	}
}

func TestStore_CreateIsIdempotentAndFillsCache(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	cache := newFakeCache()
	store := newStore(db, cache, 4096)
	ctx := context.Background()

	first, err := store.Create(ctx, "123@c.us")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := store.Create(ctx, "123@c.us")
	if err != nil {
		t.Fatalf("Create() second call error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Create() returned different sessions: %q vs %q", first.ID, second.ID)
	}
	if _, ok := cache.entries["session:123@c.us"]; !ok {
		t.Error("Create() did not fill the cache")
	}
}

func TestStore_GetPrefersCache(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	cache := newFakeCache()
	store := newStore(db, cache, 4096)

	cached, _ := json.Marshal(database.Session{ID: "cached", ChatID: "123@c.us", State: []byte(`{"x":1}`)})
	cache.entries["session:123@c.us"] = cached
	db.getErr = errors.New("db must not be hit")

	sess, err := store.Get(context.Background(), "123@c.us")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess == nil || sess.ID != "cached" {
		t.Errorf("Get() = %+v, want the cached session", sess)
	}
}

func TestStore_GetCacheFailureDegradesToDB(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	db.sessions["123@c.us"] = &database.Session{ID: "durable", ChatID: "123@c.us", State: []byte("{}")}
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	store := newStore(db, cache, 4096)

	sess, err := store.Get(context.Background(), "123@c.us")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess == nil || sess.ID != "durable" {
		t.Errorf("Get() = %+v, want the durable session", sess)
	}
}

func TestStore_GetEvictsUndecodableCacheEntry(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	db.sessions["123@c.us"] = &database.Session{ID: "durable", ChatID: "123@c.us", State: []byte("{}")}
	cache := newFakeCache()
	cache.entries["session:123@c.us"] = []byte("not json")
	store := newStore(db, cache, 4096)

	sess, err := store.Get(context.Background(), "123@c.us")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess == nil || sess.ID != "durable" {
		t.Errorf("Get() = %+v, want the durable session", sess)
	}
	if len(cache.deletes) == 0 {
		t.Error("expected the corrupt cache entry to be evicted")
	}
}

func TestStore_UpdateStateMergesAndPersists(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	store := newStore(db, newFakeCache(), 4096)
	ctx := context.Background()

	if _, err := store.UpdateState(ctx, "123@c.us", map[string]any{
		"createdForms": []any{map[string]any{"id": "1"}},
	}); err != nil {
		t.Fatalf("UpdateState() first error = %v", err)
	}
	if _, err := store.UpdateState(ctx, "123@c.us", map[string]any{
		"createdForms": []any{map[string]any{"id": "2"}},
		"lastFormId":   "2",
	}); err != nil {
		t.Fatalf("UpdateState() second error = %v", err)
	}

	var state struct {
		CreatedForms []map[string]string `json:"createdForms"`
		LastFormID   string              `json:"lastFormId"`
	}
	if err := json.Unmarshal(db.sessions["123@c.us"].State, &state); err != nil {
		t.Fatalf("persisted state is not valid JSON: %v", err)
	}
	if len(state.CreatedForms) != 2 {
		t.Errorf("createdForms has %d entries, want 2", len(state.CreatedForms))
	}
	if state.LastFormID != "2" {
		t.Errorf("lastFormId = %q, want %q", state.LastFormID, "2")
	}
}

func TestStore_UpdateStateOverCapResets(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	cache := newFakeCache()
	store := newStore(db, cache, 128)
	ctx := context.Background()

	sess, err := store.UpdateState(ctx, "123@c.us", map[string]any{
		"blob": strings.Repeat("x", 512),
	})
	if !errors.Is(err, session.ErrStateTooLarge) {
		t.Fatalf("UpdateState() error = %v, want ErrStateTooLarge", err)
	}
	if sess == nil || string(sess.State) != "{}" {
		t.Errorf("UpdateState() session state = %q, want the empty document", sess.State)
	}
	if len(db.resets) != 1 {
		t.Errorf("durable resets = %d, want 1", len(db.resets))
	}
	if _, ok := cache.entries["session:123@c.us"]; ok {
		t.Error("cache entry should have been invalidated")
	}
}

func TestStore_AppendConversationCapsContent(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	store := newStore(db, newFakeCache(), 4096)
	ctx := context.Background()

	if _, err := store.Create(ctx, "123@c.us"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.AppendConversation(ctx, "123@c.us", "user", strings.Repeat("a", 200)); err != nil {
		t.Fatalf("AppendConversation() error = %v", err)
	}

	if len(db.appended) != 1 {
		t.Fatalf("appended %d entries, want 1", len(db.appended))
	}
	if got := len(db.appended[0].Content); got != 50 {
		t.Errorf("stored content length = %d, want 50", got)
	}
}

func TestStore_ClearEvictsAndResets(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	cache := newFakeCache()
	store := newStore(db, cache, 4096)
	ctx := context.Background()

	if _, err := store.Create(ctx, "123@c.us"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Clear(ctx, "123@c.us"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if len(db.resets) != 1 {
		t.Errorf("durable resets = %d, want 1", len(db.resets))
	}
	if len(cache.deletes) == 0 {
		t.Error("expected the cache entry to be deleted")
	}
}
