package persistence

import (
	"context"

	apporder "github.com/paintworks/backend/internal/application/order"
	appprod "github.com/paintworks/backend/internal/application/production"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/paintworks/backend/internal/domain/production"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/event"
	"gorm.io/gorm"
)

// GormTransactionScope implements the production TransactionScope using GORM
// transactions. Outbox entries are written through the same transaction.
type GormTransactionScope struct {
	db        *gorm.DB
	publisher *event.OutboxPublisher
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB, publisher *event.OutboxPublisher) *GormTransactionScope {
	return &GormTransactionScope{db: db, publisher: publisher}
}

// Execute runs fn within a database transaction. If fn returns an error the
// transaction is rolled back, otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appprod.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, publisher: s.publisher})
	})
}

// GormOrderTransactionScope implements the order TransactionScope using GORM transactions
type GormOrderTransactionScope struct {
	db *gorm.DB
}

// NewGormOrderTransactionScope creates a new GormOrderTransactionScope
func NewGormOrderTransactionScope(db *gorm.DB) *GormOrderTransactionScope {
	return &GormOrderTransactionScope{db: db}
}

// Execute runs fn within a database transaction
func (s *GormOrderTransactionScope) Execute(ctx context.Context, fn func(repos apporder.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx        *gorm.DB
	publisher *event.OutboxPublisher
}

// Batches returns the batch repository scoped to the current transaction
func (r *gormTransactionalRepositories) Batches() production.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

// Materials returns the raw material pool scoped to the current transaction
func (r *gormTransactionalRepositories) Materials() inventory.RawMaterialPool {
	return NewGormRawMaterialPool(r.tx)
}

// FinishedGoods returns the SKU stock scoped to the current transaction
func (r *gormTransactionalRepositories) FinishedGoods() inventory.FinishedGoodStock {
	return NewGormFinishedGoodStock(r.tx)
}

// Transactions returns the inventory transaction log scoped to the current transaction
func (r *gormTransactionalRepositories) Transactions() inventory.InventoryTransactionRepository {
	return NewGormInventoryTransactionRepository(r.tx)
}

// Orders returns the order repository scoped to the current transaction
func (r *gormTransactionalRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx)
}

// SKUs returns the SKU repository scoped to the current transaction
func (r *gormTransactionalRepositories) SKUs() catalog.SKURepository {
	return NewGormSKURepository(r.tx)
}

// Masters returns the master product repository scoped to the current transaction
func (r *gormTransactionalRepositories) Masters() catalog.MasterProductRepository {
	return NewGormMasterProductRepository(r.tx)
}

// Formulas returns the formula repository scoped to the current transaction
func (r *gormTransactionalRepositories) Formulas() catalog.FormulaRepository {
	return NewGormFormulaRepository(r.tx)
}

// Outbox returns a writer that stores events in the current transaction
func (r *gormTransactionalRepositories) Outbox() appprod.OutboxWriter {
	return &txOutboxWriter{tx: r.tx, publisher: r.publisher}
}

type txOutboxWriter struct {
	tx        *gorm.DB
	publisher *event.OutboxPublisher
}

func (w *txOutboxWriter) Save(ctx context.Context, events ...shared.DomainEvent) ([]*shared.OutboxEntry, error) {
	return w.publisher.PublishWithTx(ctx, w.tx, events...)
}

var (
	_ appprod.TransactionScope           = (*GormTransactionScope)(nil)
	_ apporder.TransactionScope          = (*GormOrderTransactionScope)(nil)
	_ appprod.TransactionalRepositories  = (*gormTransactionalRepositories)(nil)
	_ apporder.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
