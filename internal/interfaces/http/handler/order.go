package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apporder "github.com/paintworks/backend/internal/application/order"
	"go.uber.org/zap"
)

// OrderService is what planning does with customer orders
type OrderService interface {
	ListEligibleOrders(ctx context.Context, filter apporder.EligibleOrderFilter) ([]apporder.OrderResponse, int64, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*apporder.OrderResponse, error)
	UpdateDeliveryMetadata(ctx context.Context, id uuid.UUID, req apporder.UpdateDeliveryRequest) (*apporder.OrderResponse, error)
	BulkUpdateDeliveryDates(ctx context.Context, req apporder.BulkDeliveryDatesRequest) (*apporder.BulkDeliveryDatesResponse, error)
	ReserveOrderStock(ctx context.Context, actor string, id uuid.UUID) (*apporder.OrderResponse, error)
	ReleaseOrderStock(ctx context.Context, actor string, id uuid.UUID) (*apporder.OrderResponse, error)
	SendToDispatch(ctx context.Context, actor string, id uuid.UUID) (*apporder.OrderResponse, error)
}

// OrderHandler handles order HTTP requests
type OrderHandler struct {
	BaseHandler
	orderService OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		BaseHandler:  NewBaseHandler(logger),
		orderService: orderService,
	}
}

// ListEligible godoc
// @ID           listEligibleOrders
// @Summary      Orders waiting for a batch
// @Description  Accepted orders that are not linked to any batch yet
// @Tags         orders
// @Produce      json
// @Param        customer_id query string false "Customer" format(uuid)
// @Param        search query string false "Order number search"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]apporder.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/eligible [get]
func (h *OrderHandler) ListEligible(c *gin.Context) {
	var filter apporder.EligibleOrderFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	orders, total, err := h.orderService.ListEligibleOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, orders, total, page, pageSize)
}

// Get godoc
// @ID           getOrder
// @Summary      Get an order with its lines
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[apporder.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	o, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// UpdateDelivery godoc
// @ID           updateOrderDelivery
// @Summary      Update delivery metadata
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body apporder.UpdateDeliveryRequest true "Delivery"
// @Success      200 {object} APIResponse[apporder.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/delivery [put]
func (h *OrderHandler) UpdateDelivery(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req apporder.UpdateDeliveryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.orderService.UpdateDeliveryMetadata(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// BulkDeliveryDates godoc
// @ID           bulkUpdateDeliveryDates
// @Summary      Set expected delivery dates of many orders
// @Description  Dispatched and cancelled orders are skipped
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body apporder.BulkDeliveryDatesRequest true "Dates"
// @Success      200 {object} APIResponse[apporder.BulkDeliveryDatesResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/delivery-dates [put]
func (h *OrderHandler) BulkDeliveryDates(c *gin.Context) {
	var req apporder.BulkDeliveryDatesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.orderService.BulkUpdateDeliveryDates(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ReserveStock godoc
// @ID           reserveOrderStock
// @Summary      Hold finished goods for an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[apporder.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/reserve-stock [post]
func (h *OrderHandler) ReserveStock(c *gin.Context) {
	h.stockAction(c, h.orderService.ReserveOrderStock)
}

// ReleaseStock godoc
// @ID           releaseOrderStock
// @Summary      Release the finished goods held for an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[apporder.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/release-stock [post]
func (h *OrderHandler) ReleaseStock(c *gin.Context) {
	h.stockAction(c, h.orderService.ReleaseOrderStock)
}

// Dispatch godoc
// @ID           dispatchOrder
// @Summary      Send a ready order to dispatch
// @Description  Ships the order's units out of finished goods stock
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[apporder.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/dispatch [post]
func (h *OrderHandler) Dispatch(c *gin.Context) {
	h.stockAction(c, h.orderService.SendToDispatch)
}

func (h *OrderHandler) stockAction(
	c *gin.Context,
	action func(ctx context.Context, actor string, id uuid.UUID) (*apporder.OrderResponse, error),
) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	o, err := action(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}
