package catalog

import (
	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// weightPlaces is the precision cached unit weights are kept at
const weightPlaces = 4

// SKU is a concrete sellable unit: a master product filled into a specific package.
// The quantity counters are mutated only through inventory.FinishedGoodStock.
type SKU struct {
	shared.BaseAggregateRoot
	Code            string
	Name            string
	MasterProductID uuid.UUID
	PackagingID     *uuid.UUID
	// PackageCapacity is the fill volume of one unit
	PackageCapacity decimal.Decimal
	// FillingDensity overrides the formula density for this package when > 0
	FillingDensity decimal.Decimal
	// UnitWeight caches PackageCapacity * resolved density
	UnitWeight        decimal.Decimal
	AvailableQuantity decimal.Decimal
	ReservedQuantity  decimal.Decimal
	AvailableWeight   decimal.Decimal
	ReservedWeight    decimal.Decimal
}

// FreeQuantity returns max(0, available - reserved)
func (s *SKU) FreeQuantity() decimal.Decimal {
	free := s.AvailableQuantity.Sub(s.ReservedQuantity)
	if free.IsNegative() {
		return decimal.Zero
	}
	return free
}

// FreeWeight returns max(0, availableWeight - reservedWeight)
func (s *SKU) FreeWeight() decimal.Decimal {
	free := s.AvailableWeight.Sub(s.ReservedWeight)
	if free.IsNegative() {
		return decimal.Zero
	}
	return free
}

// ExpectedUnitWeight computes the unit weight for a density
func (s *SKU) ExpectedUnitWeight(density decimal.Decimal) decimal.Decimal {
	return s.PackageCapacity.Mul(density).Round(weightPlaces)
}

// HasStaleUnitWeight reports whether the cached unit weight no longer matches the density
func (s *SKU) HasStaleUnitWeight(density decimal.Decimal) bool {
	if density.IsZero() {
		return false
	}
	return !s.UnitWeight.Round(weightPlaces).Equal(s.ExpectedUnitWeight(density))
}

// WeightFor returns the weight of units, falling back to the expected weight when
// the cached value is missing.
func (s *SKU) WeightFor(units decimal.Decimal, density decimal.Decimal) decimal.Decimal {
	unitWeight := s.UnitWeight
	if unitWeight.IsZero() {
		unitWeight = s.ExpectedUnitWeight(density)
	}
	return units.Mul(unitWeight)
}
