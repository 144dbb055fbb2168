package production

import (
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/production"
	"github.com/shopspring/decimal"
)

// ScheduleBatchRequest opens a batch that goes into production immediately
type ScheduleBatchRequest struct {
	MasterProductID uuid.UUID       `json:"master_product_id" binding:"required"`
	PlannedQuantity decimal.Decimal `json:"planned_quantity" binding:"required"`
	ScheduledDate   *time.Time      `json:"scheduled_date"`
	// OrderIDs are linked through their lines for this master product. Without
	// orders the batch builds stock for every SKU of the product.
	OrderIDs     []uuid.UUID            `json:"order_ids"`
	Materials    []BatchMaterialRequest `json:"materials" binding:"omitempty,dive"`
	SupervisorID *uuid.UUID             `json:"supervisor_id"`
	LabourRoster []string               `json:"labour_roster"`
	Notes        string                 `json:"notes" binding:"max=2000"`

	IdempotencyKey string `json:"-"`
}

// BatchMaterialRequest is one raw material line of a manual batch
type BatchMaterialRequest struct {
	MaterialID  uuid.UUID       `json:"material_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Sequence    int             `json:"sequence" binding:"min=0"`
	WaitingTime int             `json:"waiting_time" binding:"min=0"`
}

// AutoScheduleRequest plans one accepted order
type AutoScheduleRequest struct {
	OrderID              uuid.UUID  `json:"order_id" binding:"required"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`

	IdempotencyKey string `json:"-"`
}

// StartBatchRequest puts a scheduled batch into production
type StartBatchRequest struct {
	SupervisorID *uuid.UUID `json:"supervisor_id"`
}

// CompleteBatchRequest records the actual production of a batch
type CompleteBatchRequest struct {
	ActualQuantity        decimal.Decimal           `json:"actual_quantity" binding:"required"`
	ActualDensity         decimal.Decimal           `json:"actual_density" binding:"required"`
	ActualViscosity       decimal.Decimal           `json:"actual_viscosity"`
	ActualWaterPercentage decimal.Decimal           `json:"actual_water_percentage"`
	StartTime             *time.Time                `json:"start_time"`
	EndTime               *time.Time                `json:"end_time"`
	Materials             []ConsumedMaterialRequest `json:"materials" binding:"omitempty,dive"`
	Outputs               []ProducedOutputRequest   `json:"outputs" binding:"required,min=1,dive"`
	Notes                 string                    `json:"notes" binding:"max=2000"`
}

// ConsumedMaterialRequest reports the quantity of one material actually used
type ConsumedMaterialRequest struct {
	MaterialID   uuid.UUID       `json:"material_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	IsAdditional bool            `json:"is_additional"`
	Sequence     int             `json:"sequence" binding:"min=0"`
	WaitingTime  int             `json:"waiting_time" binding:"min=0"`
}

// ProducedOutputRequest reports units filled into one SKU
type ProducedOutputRequest struct {
	SKUID  uuid.UUID       `json:"sku_id" binding:"required"`
	Units  decimal.Decimal `json:"units" binding:"required"`
	Weight decimal.Decimal `json:"weight" binding:"required"`
}

// CancelBatchRequest cancels a batch
type CancelBatchRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// BatchListFilter represents filter options for the batch list
type BatchListFilter struct {
	Search          string     `form:"search"`
	Status          string     `form:"status" binding:"omitempty,oneof=SCHEDULED IN_PROGRESS COMPLETED CANCELLED"`
	MasterProductID string     `form:"master_product_id" binding:"omitempty,uuid"`
	ScheduledFrom   *time.Time `form:"scheduled_from" time_format:"2006-01-02"`
	ScheduledTo     *time.Time `form:"scheduled_to" time_format:"2006-01-02"`
	Page            int        `form:"page" binding:"omitempty,min=1"`
	PageSize        int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy         string     `form:"order_by"`
	OrderDir        string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// BatchResponse represents a production batch in API responses
type BatchResponse struct {
	ID              uuid.UUID                   `json:"id"`
	BatchNumber     string                      `json:"batch_number"`
	MasterProductID uuid.UUID                   `json:"master_product_id"`
	Status          production.BatchStatus      `json:"status"`
	ScheduledDate   time.Time                   `json:"scheduled_date"`
	PlannedQuantity decimal.Decimal             `json:"planned_quantity"`
	Formulation     FormulationResponse         `json:"formulation"`
	SupervisorID    *uuid.UUID                  `json:"supervisor_id,omitempty"`
	LabourRoster    []string                    `json:"labour_roster"`
	Notes           string                      `json:"notes,omitempty"`
	StartedAt       *time.Time                  `json:"started_at,omitempty"`
	Actual          *ActualResponse             `json:"actual,omitempty"`
	CompletedAt     *time.Time                  `json:"completed_at,omitempty"`
	CompletedBy     string                      `json:"completed_by,omitempty"`
	CancelledAt     *time.Time                  `json:"cancelled_at,omitempty"`
	CancelledBy     string                      `json:"cancelled_by,omitempty"`
	CancelReason    string                      `json:"cancel_reason,omitempty"`
	OrderIDs        []uuid.UUID                 `json:"order_ids"`
	LineItems       []BatchLineItemResponse     `json:"line_items"`
	MaterialLines   []BatchMaterialLineResponse `json:"material_lines"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
	Version         int                         `json:"version"`
}

// FormulationResponse is the formulation snapshot kept on a batch
type FormulationResponse struct {
	FormulaID       *uuid.UUID      `json:"formula_id,omitempty"`
	Density         decimal.Decimal `json:"density"`
	Viscosity       decimal.Decimal `json:"viscosity"`
	WaterPercentage decimal.Decimal `json:"water_percentage"`
}

// ActualResponse holds the recorded actuals of a completed batch
type ActualResponse struct {
	Quantity        decimal.Decimal `json:"quantity"`
	Density         decimal.Decimal `json:"density"`
	Viscosity       decimal.Decimal `json:"viscosity"`
	WaterPercentage decimal.Decimal `json:"water_percentage"`
	Weight          decimal.Decimal `json:"weight"`
	StartTime       *time.Time      `json:"start_time,omitempty"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	ElapsedHours    decimal.Decimal `json:"elapsed_hours"`
}

// BatchLineItemResponse is one SKU line of a batch
type BatchLineItemResponse struct {
	ID               uuid.UUID                  `json:"id"`
	SKUID            uuid.UUID                  `json:"sku_id"`
	OrderID          *uuid.UUID                 `json:"order_id,omitempty"`
	PlannedUnits     decimal.Decimal            `json:"planned_units"`
	PlannedWeight    decimal.Decimal            `json:"planned_weight"`
	ProducedUnits    decimal.Decimal            `json:"produced_units"`
	ProducedWeight   decimal.Decimal            `json:"produced_weight"`
	FulfillmentType  production.FulfillmentType `json:"fulfillment_type"`
	InventoryApplied bool                       `json:"inventory_applied"`
}

// BatchMaterialLineResponse is one material line of a batch
type BatchMaterialLineResponse struct {
	ID               uuid.UUID       `json:"id"`
	MaterialID       uuid.UUID       `json:"material_id"`
	MaterialName     string          `json:"material_name"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	ActualQuantity   decimal.Decimal `json:"actual_quantity"`
	Sequence         int             `json:"sequence"`
	WaitingTime      int             `json:"waiting_time"`
	IsAdditional     bool            `json:"is_additional"`
	Reserved         bool            `json:"reserved"`
}

// ActivityResponse is one audit entry of a batch
type ActivityResponse struct {
	ID             uuid.UUID                 `json:"id"`
	Action         production.ActivityAction `json:"action"`
	Actor          string                    `json:"actor"`
	PreviousStatus production.BatchStatus    `json:"previous_status,omitempty"`
	NewStatus      production.BatchStatus    `json:"new_status"`
	Notes          string                    `json:"notes,omitempty"`
	Metadata       string                    `json:"metadata,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// ToBatchResponse converts a domain batch to a response
func ToBatchResponse(b *production.ProductionBatch) BatchResponse {
	resp := BatchResponse{
		ID:              b.ID,
		BatchNumber:     b.BatchNumber,
		MasterProductID: b.MasterProductID,
		Status:          b.Status,
		ScheduledDate:   b.ScheduledDate,
		PlannedQuantity: b.PlannedQuantity,
		Formulation:     toFormulationResponse(b.Formulation),
		SupervisorID:    b.SupervisorID,
		LabourRoster:    b.LabourRoster,
		Notes:           b.Notes,
		StartedAt:       b.StartedAt,
		CompletedAt:     b.CompletedAt,
		CompletedBy:     b.CompletedBy,
		CancelledAt:     b.CancelledAt,
		CancelledBy:     b.CancelledBy,
		CancelReason:    b.CancelReason,
		OrderIDs:        b.OrderIDs(),
		LineItems:       make([]BatchLineItemResponse, 0, len(b.LineItems)),
		MaterialLines:   make([]BatchMaterialLineResponse, 0, len(b.MaterialLines)),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
		Version:         b.Version,
	}
	if resp.LabourRoster == nil {
		resp.LabourRoster = []string{}
	}
	if b.Status == production.BatchStatusCompleted {
		resp.Actual = &ActualResponse{
			Quantity:        b.Actual.Quantity,
			Density:         b.Actual.Density,
			Viscosity:       b.Actual.Viscosity,
			WaterPercentage: b.Actual.WaterPercentage,
			Weight:          b.Actual.Weight(),
			StartTime:       b.Actual.StartTime,
			EndTime:         b.Actual.EndTime,
			ElapsedHours:    b.Actual.ElapsedHours,
		}
	}
	for _, l := range b.LineItems {
		resp.LineItems = append(resp.LineItems, BatchLineItemResponse{
			ID:               l.ID,
			SKUID:            l.SKUID,
			OrderID:          l.OrderID,
			PlannedUnits:     l.PlannedUnits,
			PlannedWeight:    l.PlannedWeight,
			ProducedUnits:    l.ProducedUnits,
			ProducedWeight:   l.ProducedWeight,
			FulfillmentType:  l.FulfillmentType,
			InventoryApplied: l.InventoryApplied,
		})
	}
	for _, m := range b.MaterialLines {
		resp.MaterialLines = append(resp.MaterialLines, BatchMaterialLineResponse{
			ID:               m.ID,
			MaterialID:       m.MaterialID,
			MaterialName:     m.MaterialName,
			RequiredQuantity: m.RequiredQuantity,
			ActualQuantity:   m.ActualQuantity,
			Sequence:         m.Sequence,
			WaitingTime:      m.WaitingTime,
			IsAdditional:     m.IsAdditional,
			Reserved:         m.Reserved,
		})
	}
	return resp
}

// ToBatchResponses converts a list of domain batches
func ToBatchResponses(batches []production.ProductionBatch) []BatchResponse {
	out := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		out = append(out, ToBatchResponse(&batches[i]))
	}
	return out
}

func toFormulationResponse(f catalog.FormulationSnapshot) FormulationResponse {
	return FormulationResponse{
		FormulaID:       f.FormulaID,
		Density:         f.Density,
		Viscosity:       f.Viscosity,
		WaterPercentage: f.WaterPercentage,
	}
}

func toActivityResponses(entries []production.ActivityLogEntry) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ActivityResponse{
			ID:             e.ID,
			Action:         e.Action,
			Actor:          e.Actor,
			PreviousStatus: e.PreviousStatus,
			NewStatus:      e.NewStatus,
			Notes:          e.Notes,
			Metadata:       e.Metadata,
			CreatedAt:      e.CreatedAt,
		})
	}
	return out
}
