package cache

import (
	"testing"

	"github.com/paintworks/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdempotencyStore(t *testing.T) {
	t.Run("no redis host uses memory", func(t *testing.T) {
		store, err := NewIdempotencyStore(config.RedisConfig{})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		store, err := NewIdempotencyStore(config.RedisConfig{Host: "127.0.0.1", Port: 1})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		_, err := NewIdempotencyStore(config.RedisConfig{Host: "127.0.0.1", Port: 1}, WithInMemoryFallback(false))
		assert.Error(t, err)
	})
}
