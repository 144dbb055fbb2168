package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MasterProductRepository reads master products
type MasterProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MasterProduct, error)
	// FindByIDs returns the masters that exist; missing ids are simply absent
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]MasterProduct, error)
}

// FormulaRepository reads formulas with their components loaded
type FormulaRepository interface {
	FindByMasterProduct(ctx context.Context, masterProductID uuid.UUID) ([]Formula, error)
}

// SKURepository reads sellable units
type SKURepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SKU, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]SKU, error)
	FindByMasterProduct(ctx context.Context, masterProductID uuid.UUID) ([]SKU, error)
	// FindFinishedGoods lists SKUs whose master product is a finished good
	FindFinishedGoods(ctx context.Context) ([]SKU, error)
	// UpdateUnitWeight rewrites the cached unit weight of a SKU
	UpdateUnitWeight(ctx context.Context, id uuid.UUID, unitWeight decimal.Decimal) error
}
