package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appproduction "github.com/paintworks/backend/internal/application/production"
	"github.com/paintworks/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BatchService is the batch lifecycle the handler exposes
type BatchService interface {
	ScheduleBatch(ctx context.Context, actor string, req appproduction.ScheduleBatchRequest) (*appproduction.BatchResponse, error)
	AutoScheduleOrder(ctx context.Context, actor string, req appproduction.AutoScheduleRequest) ([]appproduction.BatchResponse, error)
	StartBatch(ctx context.Context, actor string, batchID uuid.UUID, req appproduction.StartBatchRequest) (*appproduction.BatchResponse, error)
	CompleteBatch(ctx context.Context, actor string, batchID uuid.UUID, req appproduction.CompleteBatchRequest) (*appproduction.BatchResponse, error)
	CancelBatch(ctx context.Context, actor string, batchID uuid.UUID, req appproduction.CancelBatchRequest) (*appproduction.BatchResponse, error)
	GetBatch(ctx context.Context, batchID uuid.UUID) (*appproduction.BatchResponse, error)
	ListBatches(ctx context.Context, filter appproduction.BatchListFilter) ([]appproduction.BatchResponse, int64, error)
	ListActivity(ctx context.Context, batchID uuid.UUID) ([]appproduction.ActivityResponse, error)
}

// BatchHandler handles production batch HTTP requests
type BatchHandler struct {
	BaseHandler
	batchService BatchService
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(batchService BatchService, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		BaseHandler:  NewBaseHandler(logger),
		batchService: batchService,
	}
}

// Schedule godoc
// @ID           scheduleBatch
// @Summary      Schedule a production batch
// @Description  Opens a batch, deducts supplied materials and links the given orders. Send an Idempotency-Key header to make retries safe.
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replay key"
// @Param        request body appproduction.ScheduleBatchRequest true "Batch"
// @Success      201 {object} APIResponse[appproduction.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /batches [post]
func (h *BatchHandler) Schedule(c *gin.Context) {
	var req appproduction.ScheduleBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = middleware.GetIdempotencyKey(c)

	batch, err := h.batchService.ScheduleBatch(c.Request.Context(), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, batch, "Batch "+batch.BatchNumber+" scheduled")
}

// AutoSchedule godoc
// @ID           autoScheduleBatches
// @Summary      Plan batches for an order
// @Description  Creates one batch per master product of an accepted order, with formula-derived materials
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replay key"
// @Param        request body appproduction.AutoScheduleRequest true "Order"
// @Success      201 {object} APIResponse[[]appproduction.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /batches/auto-schedule [post]
func (h *BatchHandler) AutoSchedule(c *gin.Context) {
	var req appproduction.AutoScheduleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = middleware.GetIdempotencyKey(c)

	batches, err := h.batchService.AutoScheduleOrder(c.Request.Context(), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, batches, "")
}

// Start godoc
// @ID           startBatch
// @Summary      Start a scheduled batch
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        id path string true "Batch ID" format(uuid)
// @Param        request body appproduction.StartBatchRequest false "Supervisor"
// @Success      200 {object} APIResponse[appproduction.BatchResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /batches/{id}/start [post]
func (h *BatchHandler) Start(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req appproduction.StartBatchRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	batch, err := h.batchService.StartBatch(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Complete godoc
// @ID           completeBatch
// @Summary      Complete a batch
// @Description  Records actual production, reconciles consumed materials and credits finished goods
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        id path string true "Batch ID" format(uuid)
// @Param        request body appproduction.CompleteBatchRequest true "Actuals"
// @Success      200 {object} APIResponse[appproduction.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /batches/{id}/complete [post]
func (h *BatchHandler) Complete(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req appproduction.CompleteBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := h.batchService.CompleteBatch(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, batch, "Batch "+batch.BatchNumber+" completed")
}

// Cancel godoc
// @ID           cancelBatch
// @Summary      Cancel a batch
// @Description  Returns unconsumed materials to stock and puts linked orders back to accepted
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        id path string true "Batch ID" format(uuid)
// @Param        request body appproduction.CancelBatchRequest true "Reason"
// @Success      200 {object} APIResponse[appproduction.BatchResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /batches/{id}/cancel [post]
func (h *BatchHandler) Cancel(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req appproduction.CancelBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := h.batchService.CancelBatch(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Get godoc
// @ID           getBatch
// @Summary      Get a batch
// @Tags         batches
// @Produce      json
// @Param        id path string true "Batch ID" format(uuid)
// @Success      200 {object} APIResponse[appproduction.BatchResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	batch, err := h.batchService.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// List godoc
// @ID           listBatches
// @Summary      List batches
// @Tags         batches
// @Produce      json
// @Param        status query string false "Batch status" Enums(SCHEDULED, IN_PROGRESS, COMPLETED, CANCELLED)
// @Param        master_product_id query string false "Master product" format(uuid)
// @Param        scheduled_from query string false "From date (2006-01-02)"
// @Param        scheduled_to query string false "To date (2006-01-02)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]appproduction.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	var filter appproduction.BatchListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	batches, total, err := h.batchService.ListBatches(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, batches, total, page, pageSize)
}

// Activity godoc
// @ID           listBatchActivity
// @Summary      Batch audit trail
// @Tags         batches
// @Produce      json
// @Param        id path string true "Batch ID" format(uuid)
// @Success      200 {object} APIResponse[[]appproduction.ActivityResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /batches/{id}/activity [get]
func (h *BatchHandler) Activity(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	entries, err := h.batchService.ListActivity(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}
