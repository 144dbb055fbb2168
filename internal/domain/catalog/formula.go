package catalog

import (
	"sort"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FormulaStatus is the authoring status of a formula
type FormulaStatus string

const (
	FormulaStatusDraft    FormulaStatus = "DRAFT"
	FormulaStatusApproved FormulaStatus = "APPROVED"
	FormulaStatusArchived FormulaStatus = "ARCHIVED"
)

// percentageTolerance is how far a formula may drift from 100% before it is flagged
var percentageTolerance = decimal.NewFromFloat(0.5)

// Formula is a percentage based recipe for one master product.
// A product may have many formulas over time; IsActive marks the single one
// used for BOM resolution.
type Formula struct {
	shared.BaseEntity
	MasterProductID uuid.UUID
	Version         int
	IsActive        bool
	Status          FormulaStatus
	Density         decimal.Decimal
	Viscosity       decimal.Decimal
	WaterPercentage decimal.Decimal
	ProductionHours decimal.Decimal
	Components      []FormulaComponent
}

// FormulaComponent is one line of a formula
type FormulaComponent struct {
	ID         uuid.UUID
	FormulaID  uuid.UUID
	MaterialID uuid.UUID
	Percentage decimal.Decimal
	Sequence   int
	// WaitingTime is the mixing wait after adding this material, in minutes
	WaitingTime int
}

// FormulationSnapshot is the subset of a formula copied onto a batch when it is created
type FormulationSnapshot struct {
	FormulaID       *uuid.UUID
	Density         decimal.Decimal
	Viscosity       decimal.Decimal
	WaterPercentage decimal.Decimal
}

// PercentageTotal sums component percentages
func (f *Formula) PercentageTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range f.Components {
		total = total.Add(c.Percentage)
	}
	return total
}

// IsBalanced reports whether components add up to ~100%.
// Informational only; resolution does not depend on it.
func (f *Formula) IsBalanced() bool {
	return f.PercentageTotal().Sub(decimal.NewFromInt(100)).Abs().LessThanOrEqual(percentageTolerance)
}

// OrderedComponents returns components sorted by sequence
func (f *Formula) OrderedComponents() []FormulaComponent {
	out := make([]FormulaComponent, len(f.Components))
	copy(out, f.Components)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// Snapshot copies the formulation values that a batch keeps for audit
func (f *Formula) Snapshot() FormulationSnapshot {
	id := f.ID
	return FormulationSnapshot{
		FormulaID:       &id,
		Density:         f.Density,
		Viscosity:       f.Viscosity,
		WaterPercentage: f.WaterPercentage,
	}
}

// ResolveActiveFormula picks the formula flagged active among a product's formulas.
// No active formula yields (nil, nil): the product has no recipe.
// More than one active formula is an error rather than a guess.
func ResolveActiveFormula(masterProductID uuid.UUID, formulas []Formula) (*Formula, error) {
	var active *Formula
	for i := range formulas {
		f := &formulas[i]
		if f.MasterProductID != masterProductID || !f.IsActive {
			continue
		}
		if active != nil {
			return nil, shared.ErrFormulaAmbiguous.WithDetails(map[string]interface{}{
				"master_product_id": masterProductID,
				"formula_ids":       []uuid.UUID{active.ID, f.ID},
			})
		}
		active = f
	}
	return active, nil
}
