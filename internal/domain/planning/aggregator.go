package planning

import (
	"context"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Demand is a quantity of a SKU to plan for
type Demand struct {
	SKUID    uuid.UUID       `json:"sku_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ConsolidatedBOM is the merged requirement of many demands
type ConsolidatedBOM struct {
	Materials []MaterialRequirement `json:"materials"`
	// MissingRecipeSKUs lists demanded SKUs whose product has no active formula
	MissingRecipeSKUs []uuid.UUID `json:"missing_recipe_skus"`
}

// IsEmpty reports whether no material was resolved
func (c *ConsolidatedBOM) IsEmpty() bool {
	return len(c.Materials) == 0
}

// Aggregator merges resolver output across demands
type Aggregator struct {
	resolver *Resolver
}

// NewAggregator creates an aggregator over a resolver
func NewAggregator(resolver *Resolver) *Aggregator {
	return &Aggregator{resolver: resolver}
}

// Aggregate sums required quantities per material in first-seen order. The
// first demand to reference a material supplies its display data.
//
// A partially resolvable set is returned as is with the missing SKUs listed;
// NO_BOM_CONFIGURED is returned only when nothing resolved and at least one
// SKU had no recipe.
func (a *Aggregator) Aggregate(ctx context.Context, demands []Demand) (*ConsolidatedBOM, error) {
	result := &ConsolidatedBOM{
		Materials:         make([]MaterialRequirement, 0),
		MissingRecipeSKUs: make([]uuid.UUID, 0),
	}
	index := make(map[uuid.UUID]int)
	missing := make(map[uuid.UUID]struct{})

	for _, d := range demands {
		reqs, err := a.resolver.Resolve(ctx, d.SKUID, d.Quantity)
		if err != nil {
			return nil, err
		}
		if len(reqs) == 0 {
			if _, seen := missing[d.SKUID]; !seen {
				missing[d.SKUID] = struct{}{}
				result.MissingRecipeSKUs = append(result.MissingRecipeSKUs, d.SKUID)
			}
			continue
		}
		for _, r := range reqs {
			if i, ok := index[r.MaterialID]; ok {
				result.Materials[i].RequiredQuantity = result.Materials[i].RequiredQuantity.Add(r.RequiredQuantity)
				continue
			}
			index[r.MaterialID] = len(result.Materials)
			result.Materials = append(result.Materials, r)
		}
	}

	if result.IsEmpty() && len(result.MissingRecipeSKUs) > 0 {
		return nil, shared.ErrNoBOMConfigured.WithDetails(map[string]interface{}{
			"sku_ids": result.MissingRecipeSKUs,
		})
	}
	return result, nil
}
