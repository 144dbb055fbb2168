package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appplanning "github.com/paintworks/backend/internal/application/planning"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/planning"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPlanningService struct {
	mock.Mock
}

func (m *mockPlanningService) GetBOM(ctx context.Context, skuID uuid.UUID, quantity decimal.Decimal) (*appplanning.BOMResponse, error) {
	args := m.Called(ctx, skuID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appplanning.BOMResponse), args.Error(1)
}

func (m *mockPlanningService) ConsolidatedBOM(ctx context.Context, req appplanning.ConsolidatedBOMRequest) (*appplanning.ConsolidatedBOMResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appplanning.ConsolidatedBOMResponse), args.Error(1)
}

func (m *mockPlanningService) ExportConsolidatedBOM(ctx context.Context, req appplanning.ConsolidatedBOMRequest, w io.Writer) error {
	args := m.Called(ctx, req, w)
	if content, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, content)
	}
	return args.Error(1)
}

func (m *mockPlanningService) CheckProductFeasibility(ctx context.Context, req appplanning.ProductFeasibilityRequest) (*planning.FeasibilityResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planning.FeasibilityResult), args.Error(1)
}

func (m *mockPlanningService) CheckGroupFeasibility(ctx context.Context, req appplanning.GroupFeasibilityRequest) (*planning.FeasibilityResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planning.FeasibilityResult), args.Error(1)
}

func (m *mockPlanningService) InventoryCheck(ctx context.Context, req appplanning.InventoryCheckRequest) (*appplanning.InventoryCheckResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appplanning.InventoryCheckResponse), args.Error(1)
}

func (m *mockPlanningService) Dashboard(ctx context.Context) (*appplanning.DashboardResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appplanning.DashboardResponse), args.Error(1)
}

func setupPlanningRouter(svc *mockPlanningService) (*gin.Engine, *PlanningHandler) {
	h := NewPlanningHandler(svc, nil)
	h.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	r := newTestRouter()
	r.GET("/planning/bom/:sku_id", h.GetBOM)
	r.POST("/planning/bom/consolidated", h.ConsolidatedBOM)
	r.POST("/planning/bom/consolidated/export", h.ExportConsolidatedBOM)
	r.POST("/planning/feasibility/product", h.ProductFeasibility)
	r.POST("/planning/feasibility/group", h.GroupFeasibility)
	r.POST("/planning/inventory-check", h.InventoryCheck)
	r.GET("/planning/dashboard", h.Dashboard)
	return r, h
}

func TestPlanningHandler_GetBOM(t *testing.T) {
	svc := new(mockPlanningService)
	r, _ := setupPlanningRouter(svc)
	skuID := uuid.New()

	svc.On("GetBOM", mock.Anything, skuID, mock.MatchedBy(func(q decimal.Decimal) bool {
		return q.Equal(decimal.NewFromInt(40))
	})).Return(&appplanning.BOMResponse{SKUID: skuID, Quantity: decimal.NewFromInt(40)}, nil)

	w := doRequest(r, http.MethodGet, "/planning/bom/"+skuID.String()+"?quantity=40", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestPlanningHandler_GetBOM_BadQuantity(t *testing.T) {
	svc := new(mockPlanningService)
	r, _ := setupPlanningRouter(svc)

	w := doRequest(r, http.MethodGet, "/planning/bom/"+uuid.NewString()+"?quantity=forty", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "GetBOM", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlanningHandler_GetBOM_AmbiguousFormula(t *testing.T) {
	svc := new(mockPlanningService)
	r, _ := setupPlanningRouter(svc)

	svc.On("GetBOM", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, shared.NewDomainError(shared.CodeFormulaAmbiguous, "master product has 2 active formulas"))

	w := doRequest(r, http.MethodGet, "/planning/bom/"+uuid.NewString()+"?quantity=1", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeFormulaAmbiguous, decodeResponse(t, w).Error.Code)
}

func TestPlanningHandler_ConsolidatedBOM(t *testing.T) {
	svc := new(mockPlanningService)
	r, _ := setupPlanningRouter(svc)
	missing := uuid.New()

	svc.On("ConsolidatedBOM", mock.Anything, mock.MatchedBy(func(req appplanning.ConsolidatedBOMRequest) bool {
		return len(req.Demands) == 2
	})).Return(&appplanning.ConsolidatedBOMResponse{MissingRecipeSKUs: []uuid.UUID{missing}}, nil)

	w := doRequest(r, http.MethodPost, "/planning/bom/consolidated", map[string]any{
		"demands": []map[string]any{
			{"sku_id": uuid.New(), "quantity": "10"},
			{"sku_id": missing, "quantity": "4"},
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var got appplanning.ConsolidatedBOMResponse
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &got))
	assert.Equal(t, []uuid.UUID{missing}, got.MissingRecipeSKUs)
}

func TestPlanningHandler_ConsolidatedBOM_NoDemands(t *testing.T) {
	svc := new(mockPlanningService)
	r, _ := setupPlanningRouter(svc)

	w := doRequest(r, http.MethodPost, "/planning/bom/consolidated", map[string]any{"demands": []any{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanningHandler_ExportConsolidatedBOM(t *testing.T) {
	svc := new(mockPlanningService)
	r, _ := setupPlanningRouter(svc)

	svc.On("ExportConsolidatedBOM", mock.Anything, mock.Anything, mock.Anything).Return("PK-xlsx-bytes", nil)

	w := doRequest(r, http.MethodPost, "/planning/bom/consolidated/export", map[string]any{
		"demands": []map[string]any{{"sku_id": uuid.New(), "quantity": "10"}},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="consolidated-bom-20261016-0930.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK-xlsx-bytes", w.Body.String())
}

func TestPlanningHandler_ExportConsolidatedBOM_FailureIsJSON(t *testing.T) {
	svc := new(mockPlanningService)
	r, _ := setupPlanningRouter(svc)

	svc.On("ExportConsolidatedBOM", mock.Anything, mock.Anything, mock.Anything).
		Return("partial", errors.New("disk full"))

	w := doRequest(r, http.MethodPost, "/planning/bom/consolidated/export", map[string]any{
		"demands": []map[string]any{{"sku_id": uuid.New(), "quantity": "10"}},
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	assert.Equal(t, dto.ErrCodeInternal, decodeResponse(t, w).Error.Code)
}

func TestPlanningHandler_Feasibility(t *testing.T) {
	svc := new(mockPlanningService)
	r, _ := setupPlanningRouter(svc)
	materialID := uuid.New()
	result := &planning.FeasibilityResult{
		Feasible: false,
		Shortfalls: []inventory.Shortfall{{
			MaterialID:   materialID,
			MaterialName: "Rutile TiO2",
			Required:     decimal.NewFromInt(120),
			Available:    decimal.NewFromInt(80),
			Shortfall:    decimal.NewFromInt(40),
		}},
	}

	svc.On("CheckProductFeasibility", mock.Anything, mock.Anything).Return(result, nil)
	svc.On("CheckGroupFeasibility", mock.Anything, mock.MatchedBy(func(req appplanning.GroupFeasibilityRequest) bool {
		return len(req.Demands) == 1
	})).Return(result, nil)

	w := doRequest(r, http.MethodPost, "/planning/feasibility/product", map[string]any{
		"sku_id":   uuid.New(),
		"quantity": "30",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var got planning.FeasibilityResult
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &got))
	assert.False(t, got.Feasible)
	require.Len(t, got.Shortfalls, 1)
	assert.True(t, got.Shortfalls[0].Shortfall.Equal(decimal.NewFromInt(40)))

	w = doRequest(r, http.MethodPost, "/planning/feasibility/group", map[string]any{
		"demands": []map[string]any{{"sku_id": uuid.New(), "quantity": "30"}},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestPlanningHandler_InventoryCheck(t *testing.T) {
	svc := new(mockPlanningService)
	r, _ := setupPlanningRouter(svc)

	svc.On("InventoryCheck", mock.Anything, mock.Anything).
		Return(&appplanning.InventoryCheckResponse{Sufficient: true, Shortfalls: []inventory.Shortfall{}}, nil)

	w := doRequest(r, http.MethodPost, "/planning/inventory-check", map[string]any{
		"materials": []map[string]any{{"material_id": uuid.New(), "quantity": "12.5"}},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var got appplanning.InventoryCheckResponse
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &got))
	assert.True(t, got.Sufficient)

	w = doRequest(r, http.MethodPost, "/planning/inventory-check", map[string]any{
		"materials": []map[string]any{{"quantity": "12.5"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanningHandler_Dashboard(t *testing.T) {
	svc := new(mockPlanningService)
	r, _ := setupPlanningRouter(svc)

	svc.On("Dashboard", mock.Anything).Return(&appplanning.DashboardResponse{
		Rows:                 []appplanning.DashboardRow{{SKUCode: "SW-4L", ToProduce: decimal.NewFromInt(12)}},
		TotalToProduceWeight: decimal.NewFromInt(64),
		Warnings:             []string{"master product has 2 active formulas"},
	}, nil)

	w := doRequest(r, http.MethodGet, "/planning/dashboard", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got appplanning.DashboardResponse
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &got))
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "SW-4L", got.Rows[0].SKUCode)
	assert.Len(t, got.Warnings, 1)
}
