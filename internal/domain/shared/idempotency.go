package shared

import (
	"context"
	"time"
)

// IdempotencyStore is a TTL key-value store shared by the outbox follow-up
// handlers (one key per event and handler) and the Idempotency-Key header
// of the batch endpoints (key to the ids the first request produced).
type IdempotencyStore interface {
	// MarkProcessed sets key if absent and reports whether this call set it
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Get returns "" for a missing or expired key
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// IdempotencyConfig controls the follow-up handler deduplication
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig remembers handled events for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: 24 * time.Hour, Enabled: true}
}
