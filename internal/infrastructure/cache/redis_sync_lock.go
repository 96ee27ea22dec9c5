package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/config"
)

const defaultLockPrefix = "shiphub:lock:"

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSyncLock implements integration.SyncLock with SET NX PX.
// It is shared by every instance pointing at the same Redis.
type RedisSyncLock struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisSyncLock connects to Redis and verifies the connection
func NewRedisSyncLock(cfg config.RedisConfig) (*RedisSyncLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisSyncLockWithClient(client, ""), nil
}

// NewRedisSyncLockWithClient creates a lock over an existing client
func NewRedisSyncLockWithClient(client redis.UniversalClient, keyPrefix string) *RedisSyncLock {
	if keyPrefix == "" {
		keyPrefix = defaultLockPrefix
	}
	return &RedisSyncLock{client: client, keyPrefix: keyPrefix}
}

// TryLock acquires key for ttl without blocking
func (l *RedisSyncLock) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	fullKey := l.keyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %q: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %q: %w", key, err)
		}
		return nil
	}
	return unlock, true, nil
}

// Close closes the Redis client
func (l *RedisSyncLock) Close() error {
	return l.client.Close()
}

var _ integration.SyncLock = (*RedisSyncLock)(nil)
