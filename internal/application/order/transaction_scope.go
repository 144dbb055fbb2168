package order

import (
	"context"

	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/order"
)

// TransactionScope runs an order stock movement atomically
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories sharing one transaction
type TransactionalRepositories interface {
	Orders() order.Repository
	SKUs() catalog.SKURepository
	Masters() catalog.MasterProductRepository
	Formulas() catalog.FormulaRepository
	FinishedGoods() inventory.FinishedGoodStock
	Transactions() inventory.InventoryTransactionRepository
}

// NoOpTransactionScope runs fn without a transaction, for tests with mocked repositories
type NoOpTransactionScope struct {
	orders        order.Repository
	skus          catalog.SKURepository
	masters       catalog.MasterProductRepository
	formulas      catalog.FormulaRepository
	finishedGoods inventory.FinishedGoodStock
	transactions  inventory.InventoryTransactionRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	orders order.Repository,
	skus catalog.SKURepository,
	masters catalog.MasterProductRepository,
	formulas catalog.FormulaRepository,
	finishedGoods inventory.FinishedGoodStock,
	transactions inventory.InventoryTransactionRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orders:        orders,
		skus:          skus,
		masters:       masters,
		formulas:      formulas,
		finishedGoods: finishedGoods,
		transactions:  transactions,
	}
}

// Execute runs fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Orders() order.Repository {
	return s.orders
}

func (s *NoOpTransactionScope) SKUs() catalog.SKURepository {
	return s.skus
}

func (s *NoOpTransactionScope) Masters() catalog.MasterProductRepository {
	return s.masters
}

func (s *NoOpTransactionScope) Formulas() catalog.FormulaRepository {
	return s.formulas
}

func (s *NoOpTransactionScope) FinishedGoods() inventory.FinishedGoodStock {
	return s.finishedGoods
}

func (s *NoOpTransactionScope) Transactions() inventory.InventoryTransactionRepository {
	return s.transactions
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
