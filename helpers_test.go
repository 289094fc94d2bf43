package goAuthFlow

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/MrEthical07/goAuthFlow/challenge"
	"github.com/MrEthical07/goAuthFlow/password"
)

const (
	testAccountID      = "acct-1"
	testAccountVersion = uint32(3)
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One shared in-memory database per pool.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// mockFieldProvider serves account fields from an in-memory map keyed
// "accountID/fieldID".
type mockFieldProvider struct {
	mu     sync.Mutex
	fields map[string]string
	calls  int
}

func newMockFields() *mockFieldProvider {
	return &mockFieldProvider{fields: map[string]string{}}
}

func (m *mockFieldProvider) set(accountID, fieldID, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[accountID+"/"+fieldID] = value
}

func (m *mockFieldProvider) GetField(_ context.Context, _ uint32, accountID, fieldID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	value, ok := m.fields[accountID+"/"+fieldID]
	if !ok {
		return "", fmt.Errorf("field %s/%s not found", accountID, fieldID)
	}
	return value, nil
}

// recordingSink collects audit events synchronously for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *recordingSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make([]string, 0, len(s.events))
	for _, e := range s.events {
		types = append(types, e.EventType)
	}
	return types
}

func newTestEngine(t *testing.T, cfg Config, fields *mockFieldProvider, handlers ...challenge.Handler) *Engine {
	t.Helper()

	builder := New().
		WithConfig(cfg).
		WithDB(newTestDB(t)).
		WithDialect(DialectSQLite).
		WithFieldProvider(fields).
		WithHandlers(handlers...)

	if cfg.RateLimit.Enabled {
		_, rdb := newTestRedis(t)
		builder = builder.WithRedis(rdb)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if err := engine.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return engine
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Metrics.Enabled = true
	return cfg
}

func seedPasswordDef(t *testing.T, engine *Engine, challengeID string) {
	t.Helper()
	if err := engine.SeedChallengeDef(context.Background(), challengeID, testAccountVersion, challenge.TypePassword, nil); err != nil {
		t.Fatalf("seed password def: %v", err)
	}
}

func seedSignatureDef(t *testing.T, engine *Engine, challengeID string) {
	t.Helper()
	if err := engine.SeedChallengeDef(context.Background(), challengeID, testAccountVersion, challenge.TypeDigitalSignature, nil); err != nil {
		t.Fatalf("seed signature def: %v", err)
	}
}

func hashPassword(t *testing.T, plaintext string) string {
	t.Helper()

	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	hash, err := hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func newPendingSession(t *testing.T, engine *Engine) *Session {
	t.Helper()

	sess, err := engine.CreateSession(context.Background(), testAccountID, testAccountVersion)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return sess
}

// passwordResponse builds the client response payload for a password message.
func passwordResponsePayload(t *testing.T, fieldID, plaintext string) json.RawMessage {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"fields": []map[string]string{{"id": fieldID, "password": plaintext}},
	})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return raw
}
