package session

import (
	"context"
	"testing"
	"time"

	"github.com/accordmusic/accord-backend/pkg/config"
	"github.com/accordmusic/accord-backend/pkg/enums"
	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type memStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *memStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	switch v := value.(type) {
	case []byte:
		s.values[key] = string(v)
	case string:
		s.values[key] = v
	}
	s.ttls[key] = ttl
	return nil
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (s *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *memStore) SessionKey(token string) string {
	return "accord:session:" + token
}

func codeOf(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return ""
}

func newManager(t *testing.T, store *memStore) *Manager {
	t.Helper()
	m, err := NewManager(store, config.SessionConfig{TTL: 2 * time.Hour})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestCreateResolveRoundTrip(t *testing.T) {
	store := newMemStore()
	m := newManager(t, store)
	ctx := context.Background()

	token, err := m.Create(ctx, Identity{UserID: 42, Role: enums.RoleManager})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if got := store.ttls[store.SessionKey(token)]; got != 2*time.Hour {
		t.Fatalf("expected configured ttl, got %v", got)
	}

	identity, err := m.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if identity.UserID != 42 || identity.Role != enums.RoleManager {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestCreateRejectsInvalidIdentity(t *testing.T) {
	m := newManager(t, newMemStore())
	ctx := context.Background()

	if _, err := m.Create(ctx, Identity{UserID: 0, Role: enums.RoleClient}); codeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := m.Create(ctx, Identity{UserID: 7, Role: enums.Role("dj")}); codeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	m := newManager(t, newMemStore())

	_, err := m.Resolve(context.Background(), "nope")
	if codeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	_, err = m.Resolve(context.Background(), "")
	if codeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for empty token, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	store := newMemStore()
	m := newManager(t, store)
	ctx := context.Background()

	token, err := m.Create(ctx, Identity{UserID: 9, Role: enums.RoleCourier})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := m.Resolve(ctx, token); codeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized after revoke, got %v", err)
	}
	if err := m.Revoke(ctx, ""); err != nil {
		t.Fatalf("revoking empty token should be a no-op, got %v", err)
	}
}
