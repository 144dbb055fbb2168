package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Repository persists the planning view of orders
type Repository interface {
	// FindByID loads an order with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByIDs loads orders with their lines; unknown ids are absent
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Order, error)
	// FindEligible lists ACCEPTED orders that no batch feeds yet
	FindEligible(ctx context.Context, filter shared.Filter) ([]Order, int64, error)
	// Save writes status, delivery and linkage fields with an optimistic version check
	Save(ctx context.Context, o *Order) error
	// UpdateDeliveryDates sets the expected delivery date of many orders at once
	UpdateDeliveryDates(ctx context.Context, dates map[uuid.UUID]time.Time) (int64, error)
	// SumAcceptedQuantities sums line quantities of ACCEPTED orders per SKU
	SumAcceptedQuantities(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error)
}
