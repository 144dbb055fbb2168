package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/shopspring/decimal"
)

// EligibleOrderFilter represents filter options for orders waiting for a batch
type EligibleOrderFilter struct {
	Search     string `form:"search"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// UpdateDeliveryRequest changes the delivery metadata of one order
type UpdateDeliveryRequest struct {
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	DeliveryNotes        string     `json:"delivery_notes" binding:"max=1000"`
}

// BulkDeliveryDatesRequest sets expected delivery dates of many orders
type BulkDeliveryDatesRequest struct {
	Dates []DeliveryDateItem `json:"dates" binding:"required,min=1,max=500,dive"`
}

// DeliveryDateItem is one order and its new expected delivery date
type DeliveryDateItem struct {
	OrderID              uuid.UUID `json:"order_id" binding:"required"`
	ExpectedDeliveryDate time.Time `json:"expected_delivery_date" binding:"required"`
}

// BulkDeliveryDatesResponse reports how many orders changed
type BulkDeliveryDatesResponse struct {
	Requested int   `json:"requested"`
	Updated   int64 `json:"updated"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                   uuid.UUID           `json:"id"`
	OrderNumber          string              `json:"order_number"`
	CustomerID           uuid.UUID           `json:"customer_id"`
	Status               order.Status        `json:"status"`
	ExpectedDeliveryDate *time.Time          `json:"expected_delivery_date,omitempty"`
	DeliveryNotes        string              `json:"delivery_notes,omitempty"`
	BatchID              *uuid.UUID          `json:"batch_id,omitempty"`
	StockReserved        bool                `json:"stock_reserved"`
	Lines                []OrderLineResponse `json:"lines"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	Version              int                 `json:"version"`
}

// OrderLineResponse is one ordered SKU quantity
type OrderLineResponse struct {
	ID       uuid.UUID       `json:"id"`
	SKUID    uuid.UUID       `json:"sku_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ToOrderResponse converts a domain order to a response
func ToOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		CustomerID:           o.CustomerID,
		Status:               o.Status,
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		DeliveryNotes:        o.DeliveryNotes,
		BatchID:              o.BatchID,
		StockReserved:        o.StockReserved,
		Lines:                make([]OrderLineResponse, 0, len(o.Lines)),
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
		Version:              o.Version,
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{ID: l.ID, SKUID: l.SKUID, Quantity: l.Quantity})
	}
	return resp
}

// ToOrderResponses converts a list of domain orders
func ToOrderResponses(orders []order.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, ToOrderResponse(&orders[i]))
	}
	return out
}
