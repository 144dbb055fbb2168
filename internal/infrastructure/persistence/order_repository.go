package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID loads an order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).Preload("Lines").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Order", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the orders that exist among ids with their lines
func (r *GormOrderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]order.Order, error) {
	if len(ids) == 0 {
		return []order.Order{}, nil
	}
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id IN ?", ids).
		Order("order_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(rows), nil
}

// FindEligible lists ACCEPTED orders without a batch, earliest delivery first by default
func (r *GormOrderRepository) FindEligible(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("status = ? AND batch_id IS NULL", order.StatusAccepted)
	if filter.Search != "" {
		query = query.Where("order_number LIKE ?", "%"+filter.Search+"%")
	}
	if customerID, ok := filter.Filters["customer_id"]; ok {
		query = query.Where("customer_id = ?", customerID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, OrderSortFields, "expected_delivery_date")
	sortDir := "ASC"
	if filter.OrderBy != "" {
		sortDir = ValidateSortOrder(filter.OrderDir)
	}
	query = query.Order(sortField + " " + sortDir).Order("order_number ASC")
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.OrderModel
	if err := query.Preload("Lines").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainOrders(rows), total, nil
}

// Save writes status, delivery and linkage fields. The stored version must
// match o.Version; on success o.Version is incremented.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", o.ID, o.Version).
		Updates(map[string]interface{}{
			"status":                 o.Status,
			"expected_delivery_date": o.ExpectedDeliveryDate,
			"delivery_notes":         o.DeliveryNotes,
			"batch_id":               o.BatchID,
			"stock_reserved":         o.StockReserved,
			"version":                o.Version + 1,
			"updated_at":             o.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithDetails(map[string]string{"order_id": o.ID.String()})
	}
	o.IncrementVersion()
	return nil
}

// Create inserts an order with its lines; used by seeding and tests
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	model := &models.OrderModel{}
	model.FromDomain(o)
	return r.db.WithContext(ctx).Create(model).Error
}

// UpdateDeliveryDates sets expected delivery dates, skipping dispatched and
// cancelled orders, and returns how many orders changed
func (r *GormOrderRepository) UpdateDeliveryDates(ctx context.Context, dates map[uuid.UUID]time.Time) (int64, error) {
	var updated int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, date := range dates {
			result := tx.Model(&models.OrderModel{}).
				Where("id = ? AND status NOT IN ?", id, []order.Status{order.StatusDispatched, order.StatusCancelled}).
				Updates(map[string]interface{}{
					"expected_delivery_date": date,
					"version":                gorm.Expr("version + 1"),
					"updated_at":             time.Now().UTC(),
				})
			if result.Error != nil {
				return result.Error
			}
			updated += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// SumAcceptedQuantities sums line quantities of ACCEPTED orders per SKU
func (r *GormOrderRepository) SumAcceptedQuantities(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error) {
	var rows []struct {
		SKUID uuid.UUID       `gorm:"column:sku_id"`
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.WithContext(ctx).
		Table("order_lines ol").
		Select("ol.sku_id AS sku_id, COALESCE(SUM(ol.quantity), 0) AS total").
		Joins("JOIN orders o ON o.id = ol.order_id").
		Where("o.status = ?", order.StatusAccepted).
		Group("ol.sku_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	totals := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		totals[row.SKUID] = row.Total
	}
	return totals, nil
}

func toDomainOrders(rows []models.OrderModel) []order.Order {
	orders := make([]order.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, *rows[i].ToDomain())
	}
	return orders
}

var _ order.Repository = (*GormOrderRepository)(nil)
