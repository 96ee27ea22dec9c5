package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/config"
)

// SyncLockFactory creates sync locks based on configuration
type SyncLockFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	connect               func(config.RedisConfig) (integration.SyncLock, error)
}

// SyncLockFactoryOption is a functional option for configuring the factory
type SyncLockFactoryOption func(*SyncLockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SyncLockFactoryOption {
	return func(f *SyncLockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory lock
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) SyncLockFactoryOption {
	return func(f *SyncLockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSyncLockFactory creates a new factory
func NewSyncLockFactory(cfg config.RedisConfig, opts ...SyncLockFactoryOption) *SyncLockFactory {
	f := &SyncLockFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		connect: func(cfg config.RedisConfig) (integration.SyncLock, error) {
			return NewRedisSyncLock(cfg)
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateLock returns a Redis lock when Redis is enabled and reachable,
// the in-memory lock otherwise.
func (f *SyncLockFactory) CreateLock() (integration.SyncLock, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory sync lock")
		return NewInMemorySyncLock(), nil
	}

	lock, err := f.connect(f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis sync lock", zap.String("addr", f.redisConfig.Addr()))
		return lock, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for sync lock but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory sync lock. "+
		"Overlapping runs across instances will not be coalesced.",
		zap.Error(err),
	)
	return NewInMemorySyncLock(), nil
}
