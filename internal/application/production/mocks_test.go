package production

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/paintworks/backend/internal/domain/production"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]order.Order, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindEligible(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateDeliveryDates(ctx context.Context, dates map[uuid.UUID]time.Time) (int64, error) {
	args := m.Called(ctx, dates)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) SumAcceptedQuantities(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[uuid.UUID]decimal.Decimal), args.Error(1)
}

// MockBatchRepository is a mock implementation of production.BatchRepository
type MockBatchRepository struct {
	mock.Mock
}

func (m *MockBatchRepository) Create(ctx context.Context, batch *production.ProductionBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.ProductionBatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*production.ProductionBatch), args.Error(1)
}

func (m *MockBatchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*production.ProductionBatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*production.ProductionBatch), args.Error(1)
}

func (m *MockBatchRepository) Save(ctx context.Context, batch *production.ProductionBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepository) List(ctx context.Context, filter production.BatchFilter) ([]production.ProductionBatch, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]production.ProductionBatch), args.Get(1).(int64), args.Error(2)
}

func (m *MockBatchRepository) LatestSequence(ctx context.Context, period time.Time) (int, error) {
	args := m.Called(ctx, period)
	return args.Int(0), args.Error(1)
}

func (m *MockBatchRepository) FindStatusesByOrder(ctx context.Context, orderID uuid.UUID) ([]production.BatchStatus, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]production.BatchStatus), args.Error(1)
}

// MockActivityLogRepository is a mock implementation of production.ActivityLogRepository
type MockActivityLogRepository struct {
	mock.Mock
}

func (m *MockActivityLogRepository) Append(ctx context.Context, entry *production.ActivityLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockActivityLogRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]production.ActivityLogEntry, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]production.ActivityLogEntry), args.Error(1)
}

// MockMasterProductRepository is a mock implementation of catalog.MasterProductRepository
type MockMasterProductRepository struct {
	mock.Mock
}

func (m *MockMasterProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.MasterProduct, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.MasterProduct), args.Error(1)
}

func (m *MockMasterProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.MasterProduct, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.MasterProduct), args.Error(1)
}

// MockFormulaRepository is a mock implementation of catalog.FormulaRepository
type MockFormulaRepository struct {
	mock.Mock
}

func (m *MockFormulaRepository) FindByMasterProduct(ctx context.Context, masterProductID uuid.UUID) ([]catalog.Formula, error) {
	args := m.Called(ctx, masterProductID)
	return args.Get(0).([]catalog.Formula), args.Error(1)
}

// MockSKURepository is a mock implementation of catalog.SKURepository
type MockSKURepository struct {
	mock.Mock
}

func (m *MockSKURepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.SKU, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.SKU), args.Error(1)
}

func (m *MockSKURepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.SKU, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.SKU), args.Error(1)
}

func (m *MockSKURepository) FindByMasterProduct(ctx context.Context, masterProductID uuid.UUID) ([]catalog.SKU, error) {
	args := m.Called(ctx, masterProductID)
	return args.Get(0).([]catalog.SKU), args.Error(1)
}

func (m *MockSKURepository) FindFinishedGoods(ctx context.Context) ([]catalog.SKU, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalog.SKU), args.Error(1)
}

func (m *MockSKURepository) UpdateUnitWeight(ctx context.Context, id uuid.UUID, unitWeight decimal.Decimal) error {
	args := m.Called(ctx, id, unitWeight)
	return args.Error(0)
}

// MockInventoryTransactionRepository is a mock implementation of inventory.InventoryTransactionRepository
type MockInventoryTransactionRepository struct {
	mock.Mock
}

func (m *MockInventoryTransactionRepository) Append(ctx context.Context, txs ...*inventory.InventoryTransaction) error {
	args := m.Called(ctx, txs)
	return args.Error(0)
}

func (m *MockInventoryTransactionRepository) FindByReference(ctx context.Context, refType inventory.ReferenceType, refID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	args := m.Called(ctx, refType, refID)
	return args.Get(0).([]inventory.InventoryTransaction), args.Error(1)
}

// MockOutboxWriter is a mock implementation of OutboxWriter
type MockOutboxWriter struct {
	mock.Mock
}

func (m *MockOutboxWriter) Save(ctx context.Context, events ...shared.DomainEvent) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, events)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

// recordingMetrics counts collisions and partial failures
type recordingMetrics struct {
	noopMetrics
	collisions      int
	partialFailures []string
}

func (r *recordingMetrics) BatchNumberCollision(context.Context) {
	r.collisions++
}

func (r *recordingMetrics) PartialFailure(_ context.Context, stage string) {
	r.partialFailures = append(r.partialFailures, stage)
}
