package redis

import (
	"context"
	"testing"
	"time"

	"github.com/accordmusic/accord-backend/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	setKey   string
	setValue any
	setTTL   time.Duration
	getValue string
	delKeys  []string
}

func (s *stubStore) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusCmd(ctx)
}

func (s *stubStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	s.setKey = key
	s.setValue = value
	s.setTTL = ttl
	return redis.NewStatusCmd(ctx)
}

func (s *stubStore) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal(s.getValue)
	return cmd
}

func (s *stubStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	s.delKeys = append(s.delKeys, keys...)
	return redis.NewIntCmd(ctx)
}

func TestSessionKey(t *testing.T) {
	c := &Client{store: &stubStore{}}
	assert.Equal(t, "accord:session:abc123", c.SessionKey("abc123"))
}

func TestSetGetDel(t *testing.T) {
	store := &stubStore{getValue: "payload"}
	c := &Client{store: store}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "accord:session:tok", "payload", time.Hour))
	assert.Equal(t, "accord:session:tok", store.setKey)
	assert.Equal(t, time.Hour, store.setTTL)

	got, err := c.Get(ctx, "accord:session:tok")
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	require.NoError(t, c.Del(ctx, "accord:session:tok"))
	assert.Equal(t, []string{"accord:session:tok"}, store.delKeys)
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:      "redis://localhost:6379/2",
		PoolSize: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 5, opts.PoolSize)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "127.0.0.1:6380", DB: 1})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6380", opts.Addr)
	assert.Equal(t, 1, opts.DB)
}
