package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(t *testing.T) *shared.OutboxEntry {
	t.Helper()
	evt := newStartedEvent()
	payload, err := NewProductionEventSerializer().Serialize(evt)
	require.NoError(t, err)
	return shared.NewOutboxEntry(evt, payload)
}

func TestGormOutboxRepository_SaveAndFindPending(t *testing.T) {
	repo := NewGormOutboxRepository(newTestDB(t))
	ctx := context.Background()

	first, second := newEntry(t), newEntry(t)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, first, second))
	require.NoError(t, repo.Save(ctx))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, first.Payload, pending[0].Payload)

	limited, err := repo.FindPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormOutboxRepository_MarkProcessing(t *testing.T) {
	repo := NewGormOutboxRepository(newTestDB(t))
	ctx := context.Background()

	pending, sent := newEntry(t), newEntry(t)
	sent.MarkSent()
	require.NoError(t, repo.Save(ctx, pending, sent))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{pending.ID, sent.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, pending.ID, claimed[0].ID)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{pending.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "an entry already being processed cannot be claimed twice")
}

func TestGormOutboxRepository_FindRetryable(t *testing.T) {
	repo := NewGormOutboxRepository(newTestDB(t))
	ctx := context.Background()

	due := newEntry(t)
	due.MarkFailed("handler failed")
	past := time.Now().Add(-time.Minute)
	due.NextRetryAt = &past
	notYet := newEntry(t)
	notYet.MarkFailed("handler failed")
	future := time.Now().Add(time.Hour)
	notYet.NextRetryAt = &future
	require.NoError(t, repo.Save(ctx, due, notYet))

	entries, err := repo.FindRetryable(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, due.ID, entries[0].ID)
}

func TestGormOutboxRepository_DeadLettersAndCounts(t *testing.T) {
	repo := NewGormOutboxRepository(newTestDB(t))
	ctx := context.Background()

	dead := newEntry(t)
	dead.MaxRetries = 1
	dead.MarkFailed("gave up")
	require.True(t, dead.IsDead())
	sent := newEntry(t)
	sent.MarkSent()
	require.NoError(t, repo.Save(ctx, dead, sent, newEntry(t)))

	entries, total, err := repo.FindDead(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, "gave up", entries[0].LastError)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])
}

func TestGormOutboxRepository_DeleteOlderThan(t *testing.T) {
	repo := NewGormOutboxRepository(newTestDB(t))
	ctx := context.Background()

	old := newEntry(t)
	old.MarkSent()
	longAgo := time.Now().Add(-30 * 24 * time.Hour)
	old.ProcessedAt = &longAgo
	recent := newEntry(t)
	recent.MarkSent()
	require.NoError(t, repo.Save(ctx, old, recent, newEntry(t)))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, old.ID)
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
	got, err := repo.FindByID(ctx, recent.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSent())
}
