package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	apporder "github.com/paintworks/backend/internal/application/order"
	appprod "github.com/paintworks/backend/internal/application/production"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransactionScope(t *testing.T) (*GormTransactionScope, *batchFixture, *GormBatchRepository) {
	t.Helper()
	db := newSQLiteDB(t)
	publisher := event.NewOutboxPublisher(event.NewProductionEventSerializer(), 3)
	repo := NewGormBatchRepository(db)
	f := newBatchFixture(t, repo)
	return NewGormTransactionScope(db, publisher), &f, repo
}

func TestGormTransactionScope_CommitsBatchStockAndOutbox(t *testing.T) {
	scope, f, batches := newTestTransactionScope(t)
	ctx := context.Background()
	b := f.newBatch(t, "0001-10-2026", nil, false)

	var entries []*shared.OutboxEntry
	err := scope.Execute(ctx, func(repos appprod.TransactionalRepositories) error {
		if err := repos.Batches().Create(ctx, b); err != nil {
			return err
		}
		if err := repos.Materials().Consume(ctx, f.tio2, dec("60")); err != nil {
			return err
		}
		tx, err := inventory.NewInventoryTransaction(f.tio2, inventory.ProductKindMaster,
			inventory.TransactionTypeBatchConsumption, dec("60"), inventory.ReferenceTypeBatch, b.ID)
		if err != nil {
			return err
		}
		if err := repos.Transactions().Append(ctx, tx); err != nil {
			return err
		}
		entries, err = repos.Outbox().Save(ctx, b.GetDomainEvents()...)
		return err
	})
	require.NoError(t, err)

	_, err = batches.FindByID(ctx, b.ID)
	require.NoError(t, err)

	levels, err := NewGormRawMaterialPool(batches.db).Levels(ctx, []uuid.UUID{f.tio2})
	require.NoError(t, err)
	assertDecimal(t, "40", levels[f.tio2])

	movements, err := NewGormInventoryTransactionRepository(batches.db).FindByReference(ctx, inventory.ReferenceTypeBatch, b.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assertDecimal(t, "-60", movements[0].SignedQuantity)

	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].MaxRetries)
	stored, err := event.NewGormOutboxRepository(batches.db).FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, b.ID, stored[0].AggregateID)
}

func TestGormTransactionScope_RollsBackEverything(t *testing.T) {
	scope, f, batches := newTestTransactionScope(t)
	ctx := context.Background()
	b := f.newBatch(t, "0001-10-2026", nil, false)
	boom := errors.New("packaging check failed")

	err := scope.Execute(ctx, func(repos appprod.TransactionalRepositories) error {
		require.NoError(t, repos.Batches().Create(ctx, b))
		require.NoError(t, repos.Materials().Consume(ctx, f.tio2, dec("60")))
		_, err := repos.Outbox().Save(ctx, b.GetDomainEvents()...)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = batches.FindByID(ctx, b.ID)
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))

	levels, err := NewGormRawMaterialPool(batches.db).Levels(ctx, []uuid.UUID{f.tio2})
	require.NoError(t, err)
	assertDecimal(t, "100", levels[f.tio2])

	stored, err := event.NewGormOutboxRepository(batches.db).FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestGormOrderTransactionScope_RollsBack(t *testing.T) {
	db := newSQLiteDB(t)
	scope := NewGormOrderTransactionScope(db)
	ctx := context.Background()
	paint := seedMaster(t, db, "EM-WHITE", catalog.ProductTypeFinishedGood, "0")
	sku := seedSKU(t, db, "EMW-4L", paint.ID, "10", "0")

	err := scope.Execute(ctx, func(repos apporder.TransactionalRepositories) error {
		require.NoError(t, repos.FinishedGoods().Reserve(ctx, sku.ID, dec("4"), dec("24")))
		return shared.ErrConcurrencyConflict
	})
	require.Error(t, err)

	got, err := NewGormSKURepository(db).FindByID(ctx, sku.ID)
	require.NoError(t, err)
	assertDecimal(t, "0", got.ReservedQuantity)
}

// Row locks only render on postgres; the sqlite dialect drops the clause.
func TestLockingQueriesUseForUpdate(t *testing.T) {
	t.Run("batch", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "production_batches" WHERE id = \$1 .*FOR UPDATE`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := NewGormBatchRepository(db.DB).FindByIDForUpdate(context.Background(), id)

		assert.True(t, shared.HasCode(err, shared.CodeNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("materials in id order", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
		b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
		mock.ExpectQuery(`SELECT id, available_quantity FROM "master_products" WHERE id IN \(\$1,\$2\) ORDER BY id ASC FOR UPDATE`).
			WithArgs(a, b).
			WillReturnRows(sqlmock.NewRows([]string{"id", "available_quantity"}).AddRow(a.String(), "12.5"))

		levels, err := NewGormRawMaterialPool(db.DB).LockMaterials(context.Background(), []uuid.UUID{b, a})

		require.NoError(t, err)
		assertDecimal(t, "12.5", levels[a])
		assert.NotContains(t, levels, b)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skus", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		id := uuid.New()
		mock.ExpectQuery(`FROM "skus" WHERE id IN \(\$1\) ORDER BY id ASC FOR UPDATE`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id", "available_quantity", "reserved_quantity", "available_weight", "reserved_weight"}).
				AddRow(id.String(), "10", "4", "60", "24"))

		levels, err := NewGormFinishedGoodStock(db.DB).LockSKUs(context.Background(), []uuid.UUID{id})

		require.NoError(t, err)
		assertDecimal(t, "4", levels[id].ReservedQuantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
