package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	BaseDomainEvent
}

func newTestEntry() *OutboxEntry {
	ev := &testEvent{BaseDomainEvent: NewBaseDomainEvent("TestEvent", "ProductionBatch", uuid.New())}
	return NewOutboxEntry(ev, []byte(`{}`))
}

func TestNewOutboxEntry(t *testing.T) {
	entry := newTestEntry()

	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, "TestEvent", entry.EventType)
	assert.Equal(t, "ProductionBatch", entry.AggregateType)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
	assert.Zero(t, entry.RetryCount)
	assert.Equal(t, "outbox_events", OutboxEntry{}.TableName())
}

func TestOutboxEntry_MarkFailed(t *testing.T) {
	t.Run("schedules exponential retry", func(t *testing.T) {
		entry := newTestEntry()
		require.NoError(t, entry.MarkProcessing())

		before := time.Now()
		entry.MarkFailed("order link failed")

		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		assert.Equal(t, "order link failed", entry.LastError)
		require.NotNil(t, entry.NextRetryAt)
		assert.True(t, entry.NextRetryAt.After(before))
		assert.True(t, entry.CanRetry())

		entry.MarkFailed("again")
		assert.True(t, entry.NextRetryAt.Sub(before) >= 2*DefaultBaseBackoff)
	})

	t.Run("moves to dead letter after max retries", func(t *testing.T) {
		entry := newTestEntry()
		for i := 0; i < DefaultMaxRetries; i++ {
			entry.MarkFailed("boom")
		}

		assert.True(t, entry.IsDead())
		assert.False(t, entry.CanRetry())
	})
}

func TestOutboxEntry_MarkProcessing(t *testing.T) {
	entry := newTestEntry()
	require.NoError(t, entry.MarkProcessing())
	assert.Error(t, entry.MarkProcessing())

	entry.MarkSent()
	assert.True(t, entry.IsSent())
	assert.NotNil(t, entry.ProcessedAt)
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	t.Run("resets dead letter entry", func(t *testing.T) {
		entry := newTestEntry()
		for i := 0; i < DefaultMaxRetries; i++ {
			entry.MarkFailed("boom")
		}

		require.NoError(t, entry.ResetForRetry())
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Zero(t, entry.RetryCount)
		assert.Empty(t, entry.LastError)
		assert.Nil(t, entry.NextRetryAt)
	})

	t.Run("rejects live entries", func(t *testing.T) {
		for _, status := range []OutboxStatus{OutboxStatusPending, OutboxStatusProcessing, OutboxStatusSent, OutboxStatusFailed} {
			entry := &OutboxEntry{ID: uuid.New(), Status: status}
			assert.True(t, HasCode(entry.ResetForRetry(), CodeIllegalStateTransition), status)
		}
	})
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, DefaultBaseBackoff, RetryBackoff(0))
	assert.Equal(t, DefaultBaseBackoff, RetryBackoff(1))
	assert.Equal(t, 2*DefaultBaseBackoff, RetryBackoff(2))
	assert.Equal(t, 16*DefaultBaseBackoff, RetryBackoff(5))
	assert.Equal(t, MaxBackoff, RetryBackoff(30))
}
