package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/carline-backend/pkg/config"
	redisclient "github.com/angelmondragon/carline-backend/pkg/redis"
)

var errBlankAccessID = errors.New("access id is required")

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// Manager tracks live logins in redis, one key per JWT jti holding the owning
// user id. Logout deletes the key, so a revoked token fails auth even though
// its signature and expiry are still good.
type Manager struct {
	store store
	ttl   time.Duration
}

// AccessSessionChecker is the read side used by the auth middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string, userID uuid.UUID) (bool, error)
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return newManager(client, cfg.TTL())
}

func newManager(s store, ttl time.Duration) (*Manager, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	return &Manager{store: s, ttl: ttl}, nil
}

// TTL matches the token lifetime so the session and its JWT expire together.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) key(accessID string) (string, error) {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return "", errBlankAccessID
	}
	return m.store.AccessSessionKey(accessID), nil
}

func (m *Manager) Register(ctx context.Context, accessID string, userID uuid.UUID) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, key, userID.String(), m.ttl)
}

// Revoke is a no-op for sessions that already expired.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// HasSession reports whether accessID is live and owned by userID.
func (m *Manager) HasSession(ctx context.Context, accessID string, userID uuid.UUID) (bool, error) {
	key, err := m.key(accessID)
	if err != nil {
		return false, err
	}
	owner, err := m.store.Get(ctx, key)
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return owner == userID.String(), nil
}

// NewAccessID mints the jti that doubles as the session key.
func NewAccessID() string {
	return uuid.NewString()
}
