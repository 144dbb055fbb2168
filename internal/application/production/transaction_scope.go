package production

import (
	"context"

	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/paintworks/backend/internal/domain/production"
	"github.com/paintworks/backend/internal/domain/shared"
)

// TransactionScope runs the critical path of a batch operation atomically.
// Everything done through the repositories handed to fn, outbox writes
// included, commits or rolls back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// OutboxWriter stores domain events as outbox entries in the current transaction
type OutboxWriter interface {
	Save(ctx context.Context, events ...shared.DomainEvent) ([]*shared.OutboxEntry, error)
}

// TransactionalRepositories gives access to repositories sharing one transaction.
//
// Reads that must happen while the transaction is open go through these
// repositories as well: with a single-connection database a read on the
// outer pool would wait for the transaction it runs inside of.
type TransactionalRepositories interface {
	Batches() production.BatchRepository
	Materials() inventory.RawMaterialPool
	FinishedGoods() inventory.FinishedGoodStock
	Transactions() inventory.InventoryTransactionRepository
	Orders() order.Repository
	SKUs() catalog.SKURepository
	Outbox() OutboxWriter
}

// NoOpTransactionScope runs fn without a transaction. Used by tests that
// drive the service with mocked repositories.
type NoOpTransactionScope struct {
	batches       production.BatchRepository
	materials     inventory.RawMaterialPool
	finishedGoods inventory.FinishedGoodStock
	transactions  inventory.InventoryTransactionRepository
	orders        order.Repository
	skus          catalog.SKURepository
	outbox        OutboxWriter
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	batches production.BatchRepository,
	materials inventory.RawMaterialPool,
	finishedGoods inventory.FinishedGoodStock,
	transactions inventory.InventoryTransactionRepository,
	orders order.Repository,
	skus catalog.SKURepository,
	outbox OutboxWriter,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		batches:       batches,
		materials:     materials,
		finishedGoods: finishedGoods,
		transactions:  transactions,
		orders:        orders,
		skus:          skus,
		outbox:        outbox,
	}
}

// Execute runs fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Batches() production.BatchRepository {
	return s.batches
}

func (s *NoOpTransactionScope) Materials() inventory.RawMaterialPool {
	return s.materials
}

func (s *NoOpTransactionScope) FinishedGoods() inventory.FinishedGoodStock {
	return s.finishedGoods
}

func (s *NoOpTransactionScope) Transactions() inventory.InventoryTransactionRepository {
	return s.transactions
}

func (s *NoOpTransactionScope) Orders() order.Repository {
	return s.orders
}

func (s *NoOpTransactionScope) SKUs() catalog.SKURepository {
	return s.skus
}

func (s *NoOpTransactionScope) Outbox() OutboxWriter {
	return s.outbox
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
