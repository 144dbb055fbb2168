package catalog

import (
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductType classifies a master product
type ProductType string

const (
	// ProductTypeFinishedGood is a manufacturable end product
	ProductTypeFinishedGood ProductType = "FINISHED_GOOD"
	// ProductTypeRawMaterial is an input consumed during production
	ProductTypeRawMaterial ProductType = "RAW_MATERIAL"
	// ProductTypePackaging is the container a batch is packed into
	ProductTypePackaging ProductType = "PACKAGING"
)

// IsValid returns true if the product type is valid
func (t ProductType) IsValid() bool {
	switch t {
	case ProductTypeFinishedGood, ProductTypeRawMaterial, ProductTypePackaging:
		return true
	}
	return false
}

// String returns the string representation of ProductType
func (t ProductType) String() string {
	return string(t)
}

// MasterProduct is the abstract product definition shared by SKUs, packaging and
// raw-material variants. AvailableQuantity is the raw-material (or packaging)
// pool counter; it is only mutated through inventory.RawMaterialPool.
type MasterProduct struct {
	shared.BaseAggregateRoot
	Code              string
	Name              string
	Type              ProductType
	Unit              string
	DefaultDensity    decimal.Decimal
	DefaultViscosity  decimal.Decimal
	AvailableQuantity decimal.Decimal
}

// IsRawMaterial returns true for raw material masters
func (m *MasterProduct) IsRawMaterial() bool {
	return m.Type == ProductTypeRawMaterial
}

// IsPackaging returns true for packaging masters
func (m *MasterProduct) IsPackaging() bool {
	return m.Type == ProductTypePackaging
}

// AvailableStock returns the pool counter floored at zero
func (m *MasterProduct) AvailableStock() decimal.Decimal {
	if m.AvailableQuantity.IsNegative() {
		return decimal.Zero
	}
	return m.AvailableQuantity
}

// EnsureBatchTarget rejects masters that cannot be produced in a batch
func (m *MasterProduct) EnsureBatchTarget() error {
	if m.Type != ProductTypeFinishedGood {
		return shared.NewDomainError(shared.CodeInvalidBatchTarget,
			"Batches can only target finished goods, "+m.Name+" is "+m.Type.String())
	}
	return nil
}
