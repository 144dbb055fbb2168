package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RawMaterialPool is the single available counter kept per master product for raw
// materials and packaging. Consumption is committed the moment a batch is
// scheduled; there is no reserved bucket.
//
// Every mutation is a clamped update: the counter never drops below zero, whatever
// delta is requested. Callers that must not overcommit lock the rows first and
// check the locked levels before consuming.
type RawMaterialPool interface {
	// LockMaterials locks the pool rows for the current transaction (ascending id
	// order) and returns their available quantities.
	LockMaterials(ctx context.Context, materialIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	// Levels reads available quantities without locking.
	Levels(ctx context.Context, materialIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	// Consume subtracts qty, flooring at zero.
	Consume(ctx context.Context, materialID uuid.UUID, qty decimal.Decimal) error
	// Restore adds qty back.
	Restore(ctx context.Context, materialID uuid.UUID, qty decimal.Decimal) error
}

// SKULevel is a snapshot of a SKU's finished-good counters
type SKULevel struct {
	SKUID             uuid.UUID
	AvailableQuantity decimal.Decimal
	ReservedQuantity  decimal.Decimal
	AvailableWeight   decimal.Decimal
	ReservedWeight    decimal.Decimal
}

// Free returns max(0, available - reserved)
func (l SKULevel) Free() decimal.Decimal {
	free := l.AvailableQuantity.Sub(l.ReservedQuantity)
	if free.IsNegative() {
		return decimal.Zero
	}
	return free
}

// FinishedGoodStock holds the available and reserved counters of sellable SKUs.
// Batch completion only credits available; reserve and release are driven by
// dispatch planning per order. Reserved never exceeds available after a reserve,
// and no counter drops below zero.
type FinishedGoodStock interface {
	LockSKUs(ctx context.Context, skuIDs []uuid.UUID) (map[uuid.UUID]SKULevel, error)
	// Credit adds produced units and weight to available.
	Credit(ctx context.Context, skuID uuid.UUID, units, weight decimal.Decimal) error
	// Reserve moves units into reserved, capped at available.
	Reserve(ctx context.Context, skuID uuid.UUID, units, weight decimal.Decimal) error
	// Release takes units out of reserved, flooring at zero.
	Release(ctx context.Context, skuID uuid.UUID, units, weight decimal.Decimal) error
	// Ship removes dispatched units from both available and reserved.
	Ship(ctx context.Context, skuID uuid.UUID, units, weight decimal.Decimal) error
}
