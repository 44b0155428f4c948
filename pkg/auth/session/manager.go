// Package session stores authenticated identities in redis keyed by an
// opaque token carried in the session cookie.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/accordmusic/accord-backend/pkg/config"
	"github.com/accordmusic/accord-backend/pkg/enums"
	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Identity is the payload resolved from a session token.
type Identity struct {
	UserID int64      `json:"user_id"`
	Role   enums.Role `json:"role"`
}

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SessionKey(token string) string
}

type Manager struct {
	store store
	ttl   time.Duration
}

func NewManager(st store, cfg config.SessionConfig) (*Manager, error) {
	if st == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &Manager{store: st, ttl: cfg.TTL}, nil
}

// Create issues a fresh token for the identity and persists it with the
// configured TTL.
func (m *Manager) Create(ctx context.Context, identity Identity) (string, error) {
	if identity.UserID <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "identity requires a user id")
	}
	if !identity.Role.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "identity requires a valid role")
	}

	payload, err := json.Marshal(identity)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding session payload")
	}

	token := uuid.NewString()
	if err := m.store.Set(ctx, m.store.SessionKey(token), payload, m.ttl); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing session")
	}
	return token, nil
}

// Resolve looks up the identity behind a token. Unknown or expired tokens
// resolve to an Unauthorized error.
func (m *Manager) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session token")
	}

	raw, err := m.store.Get(ctx, m.store.SessionKey(token))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired or unknown")
		}
		return Identity{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading session")
	}

	var identity Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return Identity{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding session payload")
	}
	if identity.UserID <= 0 || !identity.Role.IsValid() {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session payload is invalid")
	}
	return identity, nil
}

// Revoke deletes the token. Revoking an unknown token is not an error.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Del(ctx, m.store.SessionKey(token)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoking session")
	}
	return nil
}
