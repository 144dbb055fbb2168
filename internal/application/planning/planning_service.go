package planning

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/paintworks/backend/internal/domain/planning"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WorkbookWriter renders a consolidated BOM as a spreadsheet
type WorkbookWriter interface {
	WriteConsolidatedBOM(w io.Writer, bom *ConsolidatedBOMResponse) error
}

// PlanningService answers what-if questions for production planners. It
// never moves stock; the one write it makes is repairing stale package
// weights found while building the dashboard.
type PlanningService struct {
	skus       catalog.SKURepository
	masters    catalog.MasterProductRepository
	orders     order.Repository
	resolver   *planning.Resolver
	aggregator *planning.Aggregator
	checker    *planning.Checker
	workbook   WorkbookWriter
	logger     *zap.Logger
}

// NewPlanningService creates a new PlanningService
func NewPlanningService(
	skus catalog.SKURepository,
	masters catalog.MasterProductRepository,
	orders order.Repository,
	resolver *planning.Resolver,
	aggregator *planning.Aggregator,
	checker *planning.Checker,
	logger *zap.Logger,
) *PlanningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanningService{
		skus:       skus,
		masters:    masters,
		orders:     orders,
		resolver:   resolver,
		aggregator: aggregator,
		checker:    checker,
		logger:     logger,
	}
}

// SetWorkbookWriter sets the spreadsheet renderer used by ExportConsolidatedBOM
func (s *PlanningService) SetWorkbookWriter(w WorkbookWriter) {
	s.workbook = w
}

// GetBOM resolves the BOM for quantity of a SKU
func (s *PlanningService) GetBOM(ctx context.Context, skuID uuid.UUID, quantity decimal.Decimal) (*BOMResponse, error) {
	if quantity.IsNegative() {
		return nil, shared.NewValidationError("Quantity cannot be negative")
	}
	reqs, err := s.resolver.Resolve(ctx, skuID, quantity)
	if err != nil {
		return nil, err
	}
	return &BOMResponse{
		SKUID:     skuID,
		Quantity:  quantity,
		NoRecipe:  len(reqs) == 0,
		Materials: reqs,
	}, nil
}

// ConsolidatedBOM merges the BOMs of several SKU quantities
func (s *PlanningService) ConsolidatedBOM(ctx context.Context, req ConsolidatedBOMRequest) (*ConsolidatedBOMResponse, error) {
	if err := validateDemands(req.Demands); err != nil {
		return nil, err
	}
	bom, err := s.aggregator.Aggregate(ctx, toDemands(req.Demands))
	if err != nil {
		return nil, err
	}
	return toConsolidatedResponse(bom), nil
}

// ExportConsolidatedBOM writes the consolidated BOM as an XLSX workbook
func (s *PlanningService) ExportConsolidatedBOM(ctx context.Context, req ConsolidatedBOMRequest, w io.Writer) error {
	if s.workbook == nil {
		return errors.New("no workbook writer configured")
	}
	bom, err := s.ConsolidatedBOM(ctx, req)
	if err != nil {
		return err
	}
	return s.workbook.WriteConsolidatedBOM(w, bom)
}

// CheckProductFeasibility checks whether raw material stock covers one SKU quantity
func (s *PlanningService) CheckProductFeasibility(ctx context.Context, req ProductFeasibilityRequest) (*planning.FeasibilityResult, error) {
	if req.Quantity.IsNegative() {
		return nil, shared.NewValidationError("Quantity cannot be negative")
	}
	return s.checker.CheckProduct(ctx, req.SKUID, req.Quantity)
}

// CheckGroupFeasibility checks the combined requirement of several SKU quantities
func (s *PlanningService) CheckGroupFeasibility(ctx context.Context, req GroupFeasibilityRequest) (*planning.FeasibilityResult, error) {
	if err := validateDemands(req.Demands); err != nil {
		return nil, err
	}
	return s.checker.CheckGroup(ctx, toDemands(req.Demands))
}

// InventoryCheck checks explicit material quantities against current stock
func (s *PlanningService) InventoryCheck(ctx context.Context, req InventoryCheckRequest) (*InventoryCheckResponse, error) {
	if len(req.Materials) == 0 {
		return nil, shared.NewValidationError("At least one material is required")
	}
	demands := make([]inventory.MaterialDemand, 0, len(req.Materials))
	for _, m := range req.Materials {
		demands = append(demands, inventory.MaterialDemand{MaterialID: m.MaterialID, Required: m.Quantity})
	}
	shortfalls, err := s.checker.CheckMaterials(ctx, demands)
	if err != nil {
		return nil, err
	}
	if shortfalls == nil {
		shortfalls = []inventory.Shortfall{}
	}
	return &InventoryCheckResponse{Sufficient: len(shortfalls) == 0, Shortfalls: shortfalls}, nil
}

// Dashboard lists the production gap of every finished good SKU against
// accepted orders. Cached package weights that no longer match the resolved
// density are rewritten and reported.
func (s *PlanningService) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	skus, err := s.skus.FindFinishedGoods(ctx)
	if err != nil {
		return nil, err
	}
	ordered, err := s.orders.SumAcceptedQuantities(ctx)
	if err != nil {
		return nil, err
	}
	masters, err := s.masterIndex(ctx, skus)
	if err != nil {
		return nil, err
	}

	resp := &DashboardResponse{
		Rows:                 make([]DashboardRow, 0, len(skus)),
		TotalToProduceWeight: decimal.Zero,
		RepairedSKUs:         make([]uuid.UUID, 0),
	}
	formulas := make(map[uuid.UUID]*catalog.Formula)
	for i := range skus {
		sku := &skus[i]
		formula, seen := formulas[sku.MasterProductID]
		if !seen {
			formula, err = s.resolver.ActiveFormula(ctx, sku.MasterProductID)
			if err != nil {
				if !errors.Is(err, shared.ErrFormulaAmbiguous) {
					return nil, err
				}
				resp.Warnings = append(resp.Warnings, fmt.Sprintf("%s: %v", masterCode(masters, sku.MasterProductID), err))
				formula = nil
			}
			formulas[sku.MasterProductID] = formula
		}

		density, source := catalog.ResolveDensity(sku, formula, masters[sku.MasterProductID])
		if sku.HasStaleUnitWeight(density) {
			repaired := sku.ExpectedUnitWeight(density)
			if err := s.skus.UpdateUnitWeight(ctx, sku.ID, repaired); err != nil {
				return nil, err
			}
			s.logger.Info("Repaired stale package weight",
				zap.String("sku_id", sku.ID.String()),
				zap.String("sku_code", sku.Code),
				zap.String("previous", sku.UnitWeight.String()),
				zap.String("repaired", repaired.String()),
				zap.String("density_source", string(source)),
			)
			sku.UnitWeight = repaired
			resp.RepairedSKUs = append(resp.RepairedSKUs, sku.ID)
		}

		row := DashboardRow{
			SKUID:           sku.ID,
			SKUCode:         sku.Code,
			SKUName:         sku.Name,
			MasterProductID: sku.MasterProductID,
			Ordered:         ordered[sku.ID],
			Available:       sku.AvailableQuantity,
			Reserved:        sku.ReservedQuantity,
			Free:            sku.FreeQuantity(),
			Density:         density,
			DensitySource:   source,
			PackageWeight:   sku.UnitWeight,
		}
		row.ToProduce = row.Ordered.Sub(row.Free)
		if row.ToProduce.IsNegative() {
			row.ToProduce = decimal.Zero
		}
		row.ToProduceWeight = sku.WeightFor(row.ToProduce, density)
		resp.TotalToProduceWeight = resp.TotalToProduceWeight.Add(row.ToProduceWeight)
		resp.Rows = append(resp.Rows, row)
	}
	return resp, nil
}

// RepairPackageWeights runs the dashboard pass for its repair side effect
// and returns the SKUs it rewrote
func (s *PlanningService) RepairPackageWeights(ctx context.Context) ([]uuid.UUID, error) {
	dashboard, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	for _, warning := range dashboard.Warnings {
		s.logger.Warn("Package weight repair skipped a product", zap.String("reason", warning))
	}
	return dashboard.RepairedSKUs, nil
}

func (s *PlanningService) masterIndex(ctx context.Context, skus []catalog.SKU) (map[uuid.UUID]*catalog.MasterProduct, error) {
	seen := make(map[uuid.UUID]struct{}, len(skus))
	ids := make([]uuid.UUID, 0, len(skus))
	for _, sku := range skus {
		if _, ok := seen[sku.MasterProductID]; ok {
			continue
		}
		seen[sku.MasterProductID] = struct{}{}
		ids = append(ids, sku.MasterProductID)
	}
	masters, err := s.masters.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	index := make(map[uuid.UUID]*catalog.MasterProduct, len(masters))
	for i := range masters {
		index[masters[i].ID] = &masters[i]
	}
	return index, nil
}

func masterCode(masters map[uuid.UUID]*catalog.MasterProduct, id uuid.UUID) string {
	if m, ok := masters[id]; ok {
		return m.Code
	}
	return id.String()
}

func validateDemands(demands []DemandRequest) error {
	if len(demands) == 0 {
		return shared.NewValidationError("At least one demand is required")
	}
	for _, d := range demands {
		if d.SKUID == uuid.Nil {
			return shared.NewValidationError("SKU ID cannot be empty")
		}
		if d.Quantity.IsNegative() {
			return shared.NewValidationError("Quantity cannot be negative")
		}
	}
	return nil
}
