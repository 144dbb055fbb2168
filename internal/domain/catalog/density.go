package catalog

import "github.com/shopspring/decimal"

// DensitySource tells which record supplied a resolved density
type DensitySource string

const (
	DensitySourceSKUOverride   DensitySource = "SKU_OVERRIDE"
	DensitySourceFormula       DensitySource = "FORMULA"
	DensitySourceMasterDefault DensitySource = "MASTER_DEFAULT"
	DensitySourceNone          DensitySource = "NONE"
)

// ResolveDensity returns the density to use for a SKU and where it came from.
// Priority: SKU filling density, then the active formula, then the master default.
// Non-positive values are treated as unset. Any argument may be nil.
func ResolveDensity(sku *SKU, formula *Formula, master *MasterProduct) (decimal.Decimal, DensitySource) {
	if sku != nil && sku.FillingDensity.IsPositive() {
		return sku.FillingDensity, DensitySourceSKUOverride
	}
	if formula != nil && formula.Density.IsPositive() {
		return formula.Density, DensitySourceFormula
	}
	if master != nil && master.DefaultDensity.IsPositive() {
		return master.DefaultDensity, DensitySourceMasterDefault
	}
	return decimal.Zero, DensitySourceNone
}
