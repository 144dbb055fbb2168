package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService covers what production planning does with customer orders:
// picking eligible orders, delivery metadata, stock holds and dispatch
type OrderService struct {
	scope  TransactionScope
	orders order.Repository
	logger *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(scope TransactionScope, orders order.Repository, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{scope: scope, orders: orders, logger: logger}
}

// ListEligibleOrders returns ACCEPTED orders that no batch feeds yet
func (s *OrderService) ListEligibleOrders(ctx context.Context, filter EligibleOrderFilter) ([]OrderResponse, int64, error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}.Normalized("", "")
	if filter.CustomerID != "" {
		customerID, err := uuid.Parse(filter.CustomerID)
		if err != nil {
			return nil, 0, shared.NewValidationError("Invalid customer ID %q", filter.CustomerID)
		}
		domainFilter.Filters["customer_id"] = customerID
	}

	orders, total, err := s.orders.FindEligible(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderResponses(orders), total, nil
}

// GetOrder retrieves an order with its lines
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// UpdateDeliveryMetadata changes the expected delivery date and notes of an order
func (s *OrderService) UpdateDeliveryMetadata(ctx context.Context, id uuid.UUID, req UpdateDeliveryRequest) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.UpdateDelivery(req.ExpectedDeliveryDate, req.DeliveryNotes); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// BulkUpdateDeliveryDates sets expected delivery dates of many orders.
// Dispatched and cancelled orders are skipped.
func (s *OrderService) BulkUpdateDeliveryDates(ctx context.Context, req BulkDeliveryDatesRequest) (*BulkDeliveryDatesResponse, error) {
	if len(req.Dates) == 0 {
		return nil, shared.NewValidationError("At least one delivery date is required")
	}
	dates := make(map[uuid.UUID]time.Time, len(req.Dates))
	for _, item := range req.Dates {
		if item.OrderID == uuid.Nil {
			return nil, shared.NewValidationError("Order ID cannot be empty")
		}
		dates[item.OrderID] = item.ExpectedDeliveryDate
	}

	updated, err := s.orders.UpdateDeliveryDates(ctx, dates)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Delivery dates updated",
		zap.Int("requested", len(dates)),
		zap.Int64("updated", updated),
	)
	return &BulkDeliveryDatesResponse{Requested: len(dates), Updated: updated}, nil
}

// ReserveOrderStock holds free finished goods for every line of the order.
// Reserving an order that already holds stock changes nothing.
func (s *OrderService) ReserveOrderStock(ctx context.Context, actor string, id uuid.UUID) (*OrderResponse, error) {
	return s.toggleStock(ctx, actor, id, true)
}

// ReleaseOrderStock gives the held finished goods of the order back.
// Releasing an order that holds nothing changes nothing.
func (s *OrderService) ReleaseOrderStock(ctx context.Context, actor string, id uuid.UUID) (*OrderResponse, error) {
	return s.toggleStock(ctx, actor, id, false)
}

func (s *OrderService) toggleStock(ctx context.Context, actor string, id uuid.UUID, reserve bool) (*OrderResponse, error) {
	var result *order.Order
	changed := false
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}
		result = o
		if reserve {
			changed, err = o.ReserveStock()
		} else {
			changed, err = o.ReleaseStock()
		}
		if err != nil || !changed {
			return err
		}

		moves, err := lockMoves(ctx, repos, o)
		if err != nil {
			return err
		}
		txType := inventory.TransactionTypeOrderRelease
		if reserve {
			if shortfalls := freeShortfalls(moves); len(shortfalls) > 0 {
				return inventory.NewInsufficientStockError(shortfalls)
			}
			txType = inventory.TransactionTypeOrderReserve
		}
		for _, m := range moves {
			if reserve {
				err = repos.FinishedGoods().Reserve(ctx, m.sku.ID, m.units, m.weight)
			} else {
				err = repos.FinishedGoods().Release(ctx, m.sku.ID, m.units, m.weight)
			}
			if err != nil {
				return err
			}
		}
		if err := appendMoves(ctx, repos, o, moves, txType, actor); err != nil {
			return err
		}
		return repos.Orders().Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("Order stock hold changed",
			zap.String("order_id", result.ID.String()),
			zap.String("order_number", result.OrderNumber),
			zap.Bool("reserved", result.StockReserved),
		)
	}
	resp := ToOrderResponse(result)
	return &resp, nil
}

// SendToDispatch hands a READY_FOR_DISPATCH order over to dispatch and takes
// its units out of finished goods stock. An order without a hold needs enough
// free stock to cover it.
func (s *OrderService) SendToDispatch(ctx context.Context, actor string, id uuid.UUID) (*OrderResponse, error) {
	var result *order.Order
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}
		held := o.StockReserved
		if err := o.Dispatch(); err != nil {
			return err
		}

		moves, err := lockMoves(ctx, repos, o)
		if err != nil {
			return err
		}
		if !held {
			if shortfalls := freeShortfalls(moves); len(shortfalls) > 0 {
				return inventory.NewInsufficientStockError(shortfalls)
			}
			for _, m := range moves {
				if err := repos.FinishedGoods().Reserve(ctx, m.sku.ID, m.units, m.weight); err != nil {
					return err
				}
			}
		}
		for _, m := range moves {
			if err := repos.FinishedGoods().Ship(ctx, m.sku.ID, m.units, m.weight); err != nil {
				return err
			}
		}
		if err := appendMoves(ctx, repos, o, moves, inventory.TransactionTypeDispatch, actor); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order dispatched",
		zap.String("order_id", result.ID.String()),
		zap.String("order_number", result.OrderNumber),
		zap.String("actor", actor),
	)
	resp := ToOrderResponse(result)
	return &resp, nil
}

// stockMove is the finished goods movement of one SKU of an order
type stockMove struct {
	sku    *catalog.SKU
	units  decimal.Decimal
	weight decimal.Decimal
	level  inventory.SKULevel
}

// lockMoves locks the SKU rows of the order and prices each line in weight
// from the cached unit weight of its SKU, or from the resolved density when
// no weight is cached
func lockMoves(ctx context.Context, repos TransactionalRepositories, o *order.Order) ([]stockMove, error) {
	ids, quantities := o.SKUQuantities()
	if len(ids) == 0 {
		return nil, shared.NewValidationError("Order %s has no lines", o.OrderNumber)
	}
	levels, err := repos.FinishedGoods().LockSKUs(ctx, ids)
	if err != nil {
		return nil, err
	}
	skus, err := repos.SKUs().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.SKU, len(skus))
	for i := range skus {
		byID[skus[i].ID] = &skus[i]
	}
	densities, err := resolveDensities(ctx, repos, skus)
	if err != nil {
		return nil, err
	}

	moves := make([]stockMove, 0, len(ids))
	for _, id := range ids {
		sku, ok := byID[id]
		if !ok {
			return nil, shared.NewNotFoundError("SKU", id)
		}
		units := quantities[id]
		moves = append(moves, stockMove{
			sku:    sku,
			units:  units,
			weight: sku.WeightFor(units, densities[id]),
			level:  levels[id],
		})
	}
	return moves, nil
}

// resolveDensities returns the density each SKU is weighed with. The master
// and active formula are only read for SKUs with neither a cached unit weight
// nor a filling density of their own.
func resolveDensities(ctx context.Context, repos TransactionalRepositories, skus []catalog.SKU) (map[uuid.UUID]decimal.Decimal, error) {
	type source struct {
		master  *catalog.MasterProduct
		formula *catalog.Formula
	}
	sources := make(map[uuid.UUID]source)
	densities := make(map[uuid.UUID]decimal.Decimal, len(skus))
	for i := range skus {
		sku := &skus[i]
		if !sku.UnitWeight.IsZero() || sku.FillingDensity.IsPositive() {
			densities[sku.ID] = sku.FillingDensity
			continue
		}
		src, ok := sources[sku.MasterProductID]
		if !ok {
			master, err := repos.Masters().FindByID(ctx, sku.MasterProductID)
			if err != nil {
				return nil, err
			}
			formulas, err := repos.Formulas().FindByMasterProduct(ctx, sku.MasterProductID)
			if err != nil {
				return nil, err
			}
			formula, err := catalog.ResolveActiveFormula(sku.MasterProductID, formulas)
			if err != nil {
				return nil, err
			}
			src = source{master: master, formula: formula}
			sources[sku.MasterProductID] = src
		}
		densities[sku.ID], _ = catalog.ResolveDensity(sku, src.formula, src.master)
	}
	return densities, nil
}

func freeShortfalls(moves []stockMove) []inventory.Shortfall {
	demands := make([]inventory.MaterialDemand, 0, len(moves))
	free := make(map[uuid.UUID]decimal.Decimal, len(moves))
	for _, m := range moves {
		demands = append(demands, inventory.MaterialDemand{
			MaterialID:   m.sku.ID,
			MaterialName: m.sku.Code,
			Required:     m.units,
		})
		free[m.sku.ID] = m.level.Free()
	}
	return inventory.FindShortfalls(demands, free)
}

func appendMoves(
	ctx context.Context,
	repos TransactionalRepositories,
	o *order.Order,
	moves []stockMove,
	txType inventory.TransactionType,
	actor string,
) error {
	txs := make([]*inventory.InventoryTransaction, 0, len(moves))
	for _, m := range moves {
		tx, err := inventory.NewInventoryTransaction(
			m.sku.ID, inventory.ProductKindSKU, txType, m.units, inventory.ReferenceTypeOrder, o.ID)
		if err != nil {
			return err
		}
		txs = append(txs, tx.WithWeight(m.weight).WithActor(actor).WithNotes(o.OrderNumber))
	}
	return repos.Transactions().Append(ctx, txs...)
}
