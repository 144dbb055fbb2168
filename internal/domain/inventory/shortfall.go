package inventory

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MaterialDemand is a quantity of one material a caller intends to consume
type MaterialDemand struct {
	MaterialID   uuid.UUID       `json:"material_id"`
	MaterialName string          `json:"material_name"`
	Required     decimal.Decimal `json:"required"`
}

// Shortfall describes one material that cannot cover its demand
type Shortfall struct {
	MaterialID   uuid.UUID       `json:"material_id"`
	MaterialName string          `json:"material_name"`
	Required     decimal.Decimal `json:"required"`
	Available    decimal.Decimal `json:"available"`
	Shortfall    decimal.Decimal `json:"shortfall"`
}

// MergeDemands sums demands per material, keeping first-seen order and names
func MergeDemands(demands []MaterialDemand) []MaterialDemand {
	index := make(map[uuid.UUID]int, len(demands))
	merged := make([]MaterialDemand, 0, len(demands))
	for _, d := range demands {
		if i, ok := index[d.MaterialID]; ok {
			merged[i].Required = merged[i].Required.Add(d.Required)
			continue
		}
		index[d.MaterialID] = len(merged)
		merged = append(merged, d)
	}
	return merged
}

// FindShortfalls compares merged demands against available stock.
// A material passes when available >= required; missing stock counts as zero.
func FindShortfalls(demands []MaterialDemand, available map[uuid.UUID]decimal.Decimal) []Shortfall {
	var shortfalls []Shortfall
	for _, d := range MergeDemands(demands) {
		have := available[d.MaterialID]
		if have.IsNegative() {
			have = decimal.Zero
		}
		if have.GreaterThanOrEqual(d.Required) {
			continue
		}
		shortfalls = append(shortfalls, Shortfall{
			MaterialID:   d.MaterialID,
			MaterialName: d.MaterialName,
			Required:     d.Required,
			Available:    have,
			Shortfall:    d.Required.Sub(have),
		})
	}
	return shortfalls
}

// NewInsufficientStockError wraps a shortfall list into an INSUFFICIENT_STOCK error
func NewInsufficientStockError(shortfalls []Shortfall) *shared.DomainError {
	names := make([]string, 0, len(shortfalls))
	for _, s := range shortfalls {
		names = append(names, fmt.Sprintf("%s (short %s)", s.MaterialName, s.Shortfall.String()))
	}
	err := shared.NewDomainError(shared.CodeInsufficientStock,
		"Insufficient stock: "+strings.Join(names, ", "))
	return err.WithDetails(shortfalls)
}
