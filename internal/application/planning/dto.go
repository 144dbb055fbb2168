package planning

import (
	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/planning"
	"github.com/shopspring/decimal"
)

// DemandRequest is a quantity of one SKU to plan for
type DemandRequest struct {
	SKUID    uuid.UUID       `json:"sku_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// ConsolidatedBOMRequest asks for the merged BOM of several SKUs
type ConsolidatedBOMRequest struct {
	Demands []DemandRequest `json:"demands" binding:"required,min=1,max=200,dive"`
}

// ProductFeasibilityRequest checks one SKU quantity
type ProductFeasibilityRequest struct {
	SKUID    uuid.UUID       `json:"sku_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// GroupFeasibilityRequest checks several SKU quantities together
type GroupFeasibilityRequest struct {
	Demands []DemandRequest `json:"demands" binding:"required,min=1,max=200,dive"`
}

// InventoryCheckRequest checks explicit material quantities against stock
type InventoryCheckRequest struct {
	Materials []MaterialQuantityRequest `json:"materials" binding:"required,min=1,dive"`
}

// MaterialQuantityRequest is one material and the quantity wanted
type MaterialQuantityRequest struct {
	MaterialID uuid.UUID       `json:"material_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
}

// InventoryCheckResponse reports whether stock covers every material
type InventoryCheckResponse struct {
	Sufficient bool                  `json:"sufficient"`
	Shortfalls []inventory.Shortfall `json:"shortfalls"`
}

// BOMResponse is the resolved BOM of one SKU quantity
type BOMResponse struct {
	SKUID     uuid.UUID                      `json:"sku_id"`
	Quantity  decimal.Decimal                `json:"quantity"`
	NoRecipe  bool                           `json:"no_recipe"`
	Materials []planning.MaterialRequirement `json:"materials"`
}

// ConsolidatedBOMResponse is the merged BOM of several SKUs
type ConsolidatedBOMResponse struct {
	Materials         []ConsolidatedMaterialResponse `json:"materials"`
	MissingRecipeSKUs []uuid.UUID                    `json:"missing_recipe_skus"`
}

// ConsolidatedMaterialResponse is one merged material line with its gap
type ConsolidatedMaterialResponse struct {
	MaterialID        uuid.UUID       `json:"material_id"`
	MaterialName      string          `json:"material_name"`
	RequiredQuantity  decimal.Decimal `json:"required_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	Shortfall         decimal.Decimal `json:"shortfall"`
	Sequence          int             `json:"sequence"`
}

// DashboardResponse is the production gap of every finished good SKU
type DashboardResponse struct {
	Rows                 []DashboardRow  `json:"rows"`
	TotalToProduceWeight decimal.Decimal `json:"total_to_produce_weight"`
	// RepairedSKUs lists SKUs whose cached package weight was corrected
	RepairedSKUs []uuid.UUID `json:"repaired_skus"`
	Warnings     []string    `json:"warnings,omitempty"`
}

// DashboardRow is the production gap of one SKU
type DashboardRow struct {
	SKUID           uuid.UUID             `json:"sku_id"`
	SKUCode         string                `json:"sku_code"`
	SKUName         string                `json:"sku_name"`
	MasterProductID uuid.UUID             `json:"master_product_id"`
	Ordered         decimal.Decimal       `json:"ordered"`
	Available       decimal.Decimal       `json:"available"`
	Reserved        decimal.Decimal       `json:"reserved"`
	Free            decimal.Decimal       `json:"free"`
	ToProduce       decimal.Decimal       `json:"to_produce"`
	ToProduceWeight decimal.Decimal       `json:"to_produce_weight"`
	Density         decimal.Decimal       `json:"density"`
	DensitySource   catalog.DensitySource `json:"density_source"`
	PackageWeight   decimal.Decimal       `json:"package_weight"`
}

func toDemands(reqs []DemandRequest) []planning.Demand {
	out := make([]planning.Demand, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, planning.Demand{SKUID: r.SKUID, Quantity: r.Quantity})
	}
	return out
}

func toConsolidatedResponse(bom *planning.ConsolidatedBOM) *ConsolidatedBOMResponse {
	resp := &ConsolidatedBOMResponse{
		Materials:         make([]ConsolidatedMaterialResponse, 0, len(bom.Materials)),
		MissingRecipeSKUs: bom.MissingRecipeSKUs,
	}
	for _, m := range bom.Materials {
		shortfall := m.RequiredQuantity.Sub(m.AvailableQuantity)
		if shortfall.IsNegative() {
			shortfall = decimal.Zero
		}
		resp.Materials = append(resp.Materials, ConsolidatedMaterialResponse{
			MaterialID:        m.MaterialID,
			MaterialName:      m.MaterialName,
			RequiredQuantity:  m.RequiredQuantity,
			AvailableQuantity: m.AvailableQuantity,
			Shortfall:         shortfall,
			Sequence:          m.Sequence,
		})
	}
	return resp
}
