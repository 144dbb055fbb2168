package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/event"
	"go.uber.org/zap"
)

// OutboxAdmin exposes the delivery state of batch follow-up events
type OutboxAdmin interface {
	Stats(ctx context.Context) (event.OutboxStats, error)
	DeadLetters(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error)
	Retry(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error)
}

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	outbox OutboxAdmin
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outbox OutboxAdmin, logger *zap.Logger) *OutboxHandler {
	return &OutboxHandler{
		BaseHandler: NewBaseHandler(logger),
		outbox:      outbox,
	}
}

// OutboxPageQuery is the paging of the dead letter list
type OutboxPageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OutboxEntryResponse represents an outbox entry in API response
type OutboxEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxStatsResponse represents outbox statistics response
type OutboxStatsResponse struct {
	event.OutboxStats
	Total int64 `json:"total"`
}

// GetStats godoc
// @ID           getOutboxStats
// @Summary      Get outbox statistics
// @Description  Count of batch follow-up events by delivery status
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[OutboxStatsResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.outbox.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, OutboxStatsResponse{
		OutboxStats: stats,
		Total:       stats.Pending + stats.Processing + stats.Sent + stats.Failed + stats.Dead,
	})
}

// GetDeadLetterEntries godoc
// @ID           getOutboxDeadLetterEntries
// @Summary      List dead letter entries
// @Description  Follow-up events that exhausted their retries
// @Tags         outbox
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]OutboxEntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/dead [get]
func (h *OutboxHandler) GetDeadLetterEntries(c *gin.Context) {
	var query OutboxPageQuery
	if !h.BindQuery(c, &query) {
		return
	}
	page, pageSize := pageOrDefault(query.Page, query.PageSize)

	entries, total, err := h.outbox.DeadLetters(c.Request.Context(), page, pageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := make([]OutboxEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toOutboxEntryResponse(e))
	}
	h.SuccessWithMeta(c, resp, total, page, pageSize)
}

// RetryDeadEntry godoc
// @ID           retryDeadEntryOutbox
// @Summary      Retry a dead letter entry
// @Description  Puts a dead entry back to pending; the processor picks it up on its next poll
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox Entry ID" format(uuid)
// @Success      200 {object} APIResponse[OutboxEntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/{id}/retry [post]
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	entry, err := h.outbox.Retry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOutboxEntryResponse(entry))
}

func toOutboxEntryResponse(e *shared.OutboxEntry) OutboxEntryResponse {
	return OutboxEntryResponse{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
