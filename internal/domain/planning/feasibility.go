package planning

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FeasibilityResult tells whether stock covers a production plan
type FeasibilityResult struct {
	Feasible   bool                  `json:"feasible"`
	NoRecipe   bool                  `json:"no_recipe"`
	Materials  []MaterialRequirement `json:"materials"`
	Shortfalls []inventory.Shortfall `json:"shortfalls"`
	// MissingRecipeSKUs is set in group mode when some products lack a formula
	MissingRecipeSKUs []uuid.UUID `json:"missing_recipe_skus,omitempty"`
}

// Checker compares requirements with raw material stock
type Checker struct {
	resolver   *Resolver
	aggregator *Aggregator
	masters    catalog.MasterProductRepository
}

// NewChecker creates a feasibility checker
func NewChecker(resolver *Resolver, aggregator *Aggregator, masters catalog.MasterProductRepository) *Checker {
	return &Checker{resolver: resolver, aggregator: aggregator, masters: masters}
}

// CheckProduct checks one SKU and production quantity
func (c *Checker) CheckProduct(ctx context.Context, skuID uuid.UUID, quantity decimal.Decimal) (*FeasibilityResult, error) {
	reqs, err := c.resolver.Resolve(ctx, skuID, quantity)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return &FeasibilityResult{NoRecipe: true, Materials: reqs, Shortfalls: []inventory.Shortfall{}}, nil
	}
	return evaluate(reqs), nil
}

// CheckGroup checks the combined production gap of several SKUs
func (c *Checker) CheckGroup(ctx context.Context, demands []Demand) (*FeasibilityResult, error) {
	bom, err := c.aggregator.Aggregate(ctx, demands)
	if err != nil {
		if errors.Is(err, shared.ErrNoBOMConfigured) {
			return &FeasibilityResult{
				NoRecipe:          true,
				Materials:         []MaterialRequirement{},
				Shortfalls:        []inventory.Shortfall{},
				MissingRecipeSKUs: missingFrom(err),
			}, nil
		}
		return nil, err
	}
	if bom.IsEmpty() {
		return &FeasibilityResult{NoRecipe: true, Materials: bom.Materials, Shortfalls: []inventory.Shortfall{}}, nil
	}
	result := evaluate(bom.Materials)
	result.MissingRecipeSKUs = bom.MissingRecipeSKUs
	return result, nil
}

// CheckMaterials checks explicitly supplied material quantities against
// current stock. An empty result means every material is covered.
func (c *Checker) CheckMaterials(ctx context.Context, demands []inventory.MaterialDemand) ([]inventory.Shortfall, error) {
	merged := inventory.MergeDemands(demands)
	ids := make([]uuid.UUID, 0, len(merged))
	for _, d := range merged {
		if d.Required.IsNegative() {
			return nil, shared.NewValidationError("Required quantity cannot be negative")
		}
		ids = append(ids, d.MaterialID)
	}
	masters, err := c.masters.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	available := make(map[uuid.UUID]decimal.Decimal, len(masters))
	names := make(map[uuid.UUID]string, len(masters))
	for i := range masters {
		available[masters[i].ID] = masters[i].AvailableStock()
		names[masters[i].ID] = masters[i].Name
	}
	for i := range merged {
		if merged[i].MaterialName == "" {
			merged[i].MaterialName = names[merged[i].MaterialID]
		}
	}
	return inventory.FindShortfalls(merged, available), nil
}

func evaluate(reqs []MaterialRequirement) *FeasibilityResult {
	available := make(map[uuid.UUID]decimal.Decimal, len(reqs))
	for _, r := range reqs {
		available[r.MaterialID] = r.AvailableQuantity
	}
	shortfalls := inventory.FindShortfalls(ToMaterialDemands(reqs), available)
	if shortfalls == nil {
		shortfalls = []inventory.Shortfall{}
	}
	return &FeasibilityResult{
		Feasible:   len(shortfalls) == 0,
		Materials:  reqs,
		Shortfalls: shortfalls,
	}
}

func missingFrom(err error) []uuid.UUID {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return nil
	}
	if details, ok := de.Details.(map[string]interface{}); ok {
		if ids, ok := details["sku_ids"].([]uuid.UUID); ok {
			return ids
		}
	}
	return nil
}

// ToMaterialDemands converts resolved requirements into stock demands
func ToMaterialDemands(reqs []MaterialRequirement) []inventory.MaterialDemand {
	out := make([]inventory.MaterialDemand, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, inventory.MaterialDemand{
			MaterialID:   r.MaterialID,
			MaterialName: r.MaterialName,
			Required:     r.RequiredQuantity,
		})
	}
	return out
}
