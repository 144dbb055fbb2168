package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appplanning "github.com/paintworks/backend/internal/application/planning"
	"github.com/paintworks/backend/internal/domain/planning"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PlanningService answers the planners' what-if questions
type PlanningService interface {
	GetBOM(ctx context.Context, skuID uuid.UUID, quantity decimal.Decimal) (*appplanning.BOMResponse, error)
	ConsolidatedBOM(ctx context.Context, req appplanning.ConsolidatedBOMRequest) (*appplanning.ConsolidatedBOMResponse, error)
	ExportConsolidatedBOM(ctx context.Context, req appplanning.ConsolidatedBOMRequest, w io.Writer) error
	CheckProductFeasibility(ctx context.Context, req appplanning.ProductFeasibilityRequest) (*planning.FeasibilityResult, error)
	CheckGroupFeasibility(ctx context.Context, req appplanning.GroupFeasibilityRequest) (*planning.FeasibilityResult, error)
	InventoryCheck(ctx context.Context, req appplanning.InventoryCheckRequest) (*appplanning.InventoryCheckResponse, error)
	Dashboard(ctx context.Context) (*appplanning.DashboardResponse, error)
}

// PlanningHandler handles planning HTTP requests
type PlanningHandler struct {
	BaseHandler
	planningService PlanningService
	now             func() time.Time
}

// NewPlanningHandler creates a new planning handler
func NewPlanningHandler(planningService PlanningService, logger *zap.Logger) *PlanningHandler {
	return &PlanningHandler{
		BaseHandler:     NewBaseHandler(logger),
		planningService: planningService,
		now:             time.Now,
	}
}

// GetBOM godoc
// @ID           getSKUBOM
// @Summary      Resolve the BOM of a SKU quantity
// @Tags         planning
// @Produce      json
// @Param        sku_id path string true "SKU ID" format(uuid)
// @Param        quantity query string true "Units to produce"
// @Success      200 {object} APIResponse[appplanning.BOMResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /planning/bom/{sku_id} [get]
func (h *PlanningHandler) GetBOM(c *gin.Context) {
	skuID, ok := h.ParseID(c, "sku_id")
	if !ok {
		return
	}
	quantity, err := decimal.NewFromString(c.Query("quantity"))
	if err != nil {
		h.BadRequest(c, "quantity must be a decimal number")
		return
	}
	bom, err := h.planningService.GetBOM(c.Request.Context(), skuID, quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bom)
}

// ConsolidatedBOM godoc
// @ID           consolidatedBOM
// @Summary      Merge the BOMs of several SKU quantities
// @Tags         planning
// @Accept       json
// @Produce      json
// @Param        request body appplanning.ConsolidatedBOMRequest true "Demands"
// @Success      200 {object} APIResponse[appplanning.ConsolidatedBOMResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /planning/bom/consolidated [post]
func (h *PlanningHandler) ConsolidatedBOM(c *gin.Context) {
	var req appplanning.ConsolidatedBOMRequest
	if !h.BindJSON(c, &req) {
		return
	}
	bom, err := h.planningService.ConsolidatedBOM(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bom)
}

// ExportConsolidatedBOM godoc
// @ID           exportConsolidatedBOM
// @Summary      Download the consolidated BOM as XLSX
// @Tags         planning
// @Accept       json
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        request body appplanning.ConsolidatedBOMRequest true "Demands"
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /planning/bom/consolidated/export [post]
func (h *PlanningHandler) ExportConsolidatedBOM(c *gin.Context) {
	var req appplanning.ConsolidatedBOMRequest
	if !h.BindJSON(c, &req) {
		return
	}
	// Buffered so a failure still produces a JSON error
	var buf bytes.Buffer
	if err := h.planningService.ExportConsolidatedBOM(c.Request.Context(), req, &buf); err != nil {
		h.HandleError(c, err)
		return
	}
	filename := fmt.Sprintf("consolidated-bom-%s.xlsx", h.now().Format("20060102-1504"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ProductFeasibility godoc
// @ID           productFeasibility
// @Summary      Can stock cover one SKU quantity
// @Tags         planning
// @Accept       json
// @Produce      json
// @Param        request body appplanning.ProductFeasibilityRequest true "Demand"
// @Success      200 {object} APIResponse[planning.FeasibilityResult]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /planning/feasibility/product [post]
func (h *PlanningHandler) ProductFeasibility(c *gin.Context) {
	var req appplanning.ProductFeasibilityRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.planningService.CheckProductFeasibility(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GroupFeasibility godoc
// @ID           groupFeasibility
// @Summary      Can stock cover several SKU quantities together
// @Tags         planning
// @Accept       json
// @Produce      json
// @Param        request body appplanning.GroupFeasibilityRequest true "Demands"
// @Success      200 {object} APIResponse[planning.FeasibilityResult]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /planning/feasibility/group [post]
func (h *PlanningHandler) GroupFeasibility(c *gin.Context) {
	var req appplanning.GroupFeasibilityRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.planningService.CheckGroupFeasibility(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// InventoryCheck godoc
// @ID           inventoryCheck
// @Summary      Check material quantities against stock
// @Tags         planning
// @Accept       json
// @Produce      json
// @Param        request body appplanning.InventoryCheckRequest true "Materials"
// @Success      200 {object} APIResponse[appplanning.InventoryCheckResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /planning/inventory-check [post]
func (h *PlanningHandler) InventoryCheck(c *gin.Context) {
	var req appplanning.InventoryCheckRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.planningService.InventoryCheck(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Dashboard godoc
// @ID           planningDashboard
// @Summary      Production gap per finished good SKU
// @Description  Also corrects cached package weights that drifted from the resolved density
// @Tags         planning
// @Produce      json
// @Success      200 {object} APIResponse[appplanning.DashboardResponse]
// @Security     BearerAuth
// @Router       /planning/dashboard [get]
func (h *PlanningHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.planningService.Dashboard(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dashboard)
}
