package catalog

import (
	"testing"

	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSKU_FreeQuantity(t *testing.T) {
	tests := []struct {
		name      string
		available int64
		reserved  int64
		want      int64
	}{
		{"available exceeds reserved", 10, 4, 6},
		{"fully reserved", 5, 5, 0},
		{"over reserved floors at zero", 3, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sku := SKU{
				AvailableQuantity: decimal.NewFromInt(tt.available),
				ReservedQuantity:  decimal.NewFromInt(tt.reserved),
				AvailableWeight:   decimal.NewFromInt(tt.available * 4),
				ReservedWeight:    decimal.NewFromInt(tt.reserved * 4),
			}
			assert.True(t, decimal.NewFromInt(tt.want).Equal(sku.FreeQuantity()))
			assert.True(t, decimal.NewFromInt(tt.want*4).Equal(sku.FreeWeight()))
		})
	}
}

func TestSKU_UnitWeight(t *testing.T) {
	sku := SKU{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PackageCapacity:   decimal.NewFromInt(4),
		UnitWeight:        decimal.NewFromFloat(5.2),
	}

	assert.True(t, decimal.NewFromFloat(5.6).Equal(sku.ExpectedUnitWeight(decimal.NewFromFloat(1.4))))
	assert.False(t, sku.HasStaleUnitWeight(decimal.NewFromFloat(1.3)))
	assert.True(t, sku.HasStaleUnitWeight(decimal.NewFromFloat(1.4)))
	assert.False(t, sku.HasStaleUnitWeight(decimal.Zero), "unknown density never marks stale")

	assert.True(t, decimal.NewFromFloat(52).Equal(sku.WeightFor(decimal.NewFromInt(10), decimal.NewFromFloat(1.4))))

	sku.UnitWeight = decimal.Zero
	assert.True(t, decimal.NewFromFloat(56).Equal(sku.WeightFor(decimal.NewFromInt(10), decimal.NewFromFloat(1.4))))
}

func TestMasterProduct_EnsureBatchTarget(t *testing.T) {
	fg := MasterProduct{Name: "Gloss White", Type: ProductTypeFinishedGood}
	rm := MasterProduct{Name: "Titanium Dioxide", Type: ProductTypeRawMaterial}
	pm := MasterProduct{Name: "4L Tin", Type: ProductTypePackaging}

	assert.NoError(t, fg.EnsureBatchTarget())
	assert.True(t, shared.HasCode(rm.EnsureBatchTarget(), shared.CodeInvalidBatchTarget))
	assert.True(t, shared.HasCode(pm.EnsureBatchTarget(), shared.CodeInvalidBatchTarget))

	rm.AvailableQuantity = decimal.NewFromInt(-3)
	assert.True(t, rm.AvailableStock().IsZero())
}
