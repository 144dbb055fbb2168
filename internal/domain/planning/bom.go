// Package planning resolves bills of materials from formulas and checks them
// against raw material stock.
package planning

import (
	"context"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MaterialRequirement is one resolved BOM line
type MaterialRequirement struct {
	MaterialID        uuid.UUID       `json:"material_id"`
	MaterialName      string          `json:"material_name"`
	Percentage        decimal.Decimal `json:"percentage"`
	RequiredQuantity  decimal.Decimal `json:"required_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	Sequence          int             `json:"sequence"`
	WaitingTime       int             `json:"waiting_time"`
}

// IsCovered reports whether available stock covers the requirement
func (r MaterialRequirement) IsCovered() bool {
	return r.AvailableQuantity.GreaterThanOrEqual(r.RequiredQuantity)
}

// Resolver expands the active formula of a product into material quantities
type Resolver struct {
	skus     catalog.SKURepository
	masters  catalog.MasterProductRepository
	formulas catalog.FormulaRepository
}

// NewResolver creates a BOM resolver
func NewResolver(
	skus catalog.SKURepository,
	masters catalog.MasterProductRepository,
	formulas catalog.FormulaRepository,
) *Resolver {
	return &Resolver{skus: skus, masters: masters, formulas: formulas}
}

// Resolve returns the material requirements for producing quantity of a SKU's
// master product. A product without an active formula resolves to an empty
// list, which is not an error.
func (r *Resolver) Resolve(ctx context.Context, skuID uuid.UUID, quantity decimal.Decimal) ([]MaterialRequirement, error) {
	if quantity.IsNegative() {
		return nil, shared.NewValidationError("Quantity cannot be negative")
	}
	sku, err := r.skus.FindByID(ctx, skuID)
	if err != nil {
		return nil, err
	}
	return r.ResolveForMasterProduct(ctx, sku.MasterProductID, quantity)
}

// ResolveForMasterProduct resolves directly from a master product
func (r *Resolver) ResolveForMasterProduct(ctx context.Context, masterProductID uuid.UUID, quantity decimal.Decimal) ([]MaterialRequirement, error) {
	if quantity.IsNegative() {
		return nil, shared.NewValidationError("Quantity cannot be negative")
	}
	formula, err := r.ActiveFormula(ctx, masterProductID)
	if err != nil {
		return nil, err
	}
	if formula == nil {
		return []MaterialRequirement{}, nil
	}
	return r.Explode(ctx, formula, quantity)
}

// ActiveFormula returns the active formula of a master product, nil when none
func (r *Resolver) ActiveFormula(ctx context.Context, masterProductID uuid.UUID) (*catalog.Formula, error) {
	formulas, err := r.formulas.FindByMasterProduct(ctx, masterProductID)
	if err != nil {
		return nil, err
	}
	return catalog.ResolveActiveFormula(masterProductID, formulas)
}

// Explode computes percentage/100 * quantity for every component of a formula
// and attaches each material's current stock, floored at zero.
func (r *Resolver) Explode(ctx context.Context, formula *catalog.Formula, quantity decimal.Decimal) ([]MaterialRequirement, error) {
	components := formula.OrderedComponents()
	ids := make([]uuid.UUID, 0, len(components))
	for _, c := range components {
		ids = append(ids, c.MaterialID)
	}

	masters, err := r.masters.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.MasterProduct, len(masters))
	for i := range masters {
		byID[masters[i].ID] = &masters[i]
	}

	out := make([]MaterialRequirement, 0, len(components))
	for _, c := range components {
		req := MaterialRequirement{
			MaterialID:        c.MaterialID,
			Percentage:        c.Percentage,
			RequiredQuantity:  c.Percentage.Mul(quantity).Div(hundred),
			AvailableQuantity: decimal.Zero,
			Sequence:          c.Sequence,
			WaitingTime:       c.WaitingTime,
		}
		if m, ok := byID[c.MaterialID]; ok {
			req.MaterialName = m.Name
			req.AvailableQuantity = m.AvailableStock()
		}
		out = append(out, req)
	}
	return out, nil
}
