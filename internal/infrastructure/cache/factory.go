package cache

import (
	"fmt"

	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StoreOption configures NewIdempotencyStore
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger        *zap.Logger
	allowFallback bool
}

// WithLogger sets the logger used to report the chosen store
func WithLogger(logger *zap.Logger) StoreOption {
	return func(o *storeOptions) { o.logger = logger }
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store. Default true.
func WithInMemoryFallback(allow bool) StoreOption {
	return func(o *storeOptions) { o.allowFallback = allow }
}

// NewIdempotencyStore returns a Redis store when redis.host is configured and
// reachable, the in-memory store otherwise. The in-memory store is only safe
// for a single server process.
func NewIdempotencyStore(cfg config.RedisConfig, opts ...StoreOption) (shared.IdempotencyStore, error) {
	o := storeOptions{logger: zap.NewNop(), allowFallback: true}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Host == "" {
		o.logger.Info("Redis not configured, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(cfg)
	if err == nil {
		o.logger.Info("Using Redis idempotency store", zap.String("addr", cfg.Addr()))
		return store, nil
	}
	if !o.allowFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}
	o.logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
		zap.String("addr", cfg.Addr()),
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
