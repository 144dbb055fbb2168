package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for order.Order
type OrderModel struct {
	AggregateModel
	OrderNumber          string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID           uuid.UUID        `gorm:"type:uuid;not null;index"`
	Status               order.Status     `gorm:"type:varchar(30);not null;index"`
	ExpectedDeliveryDate *time.Time       `gorm:"type:date"`
	DeliveryNotes        string           `gorm:"type:text"`
	BatchID              *uuid.UUID       `gorm:"type:uuid;index"`
	StockReserved        bool             `gorm:"not null"`
	Lines                []OrderLineModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model and its loaded lines to a domain Order
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot:    m.root(),
		OrderNumber:          m.OrderNumber,
		CustomerID:           m.CustomerID,
		Status:               m.Status,
		ExpectedDeliveryDate: m.ExpectedDeliveryDate,
		DeliveryNotes:        m.DeliveryNotes,
		BatchID:              m.BatchID,
		StockReserved:        m.StockReserved,
		Lines:                make([]order.Line, 0, len(m.Lines)),
	}
	for _, l := range m.Lines {
		o.Lines = append(o.Lines, order.Line{ID: l.ID, OrderID: l.OrderID, SKUID: l.SKUID, Quantity: l.Quantity})
	}
	return o
}

// FromDomain populates the model and its lines from a domain Order
func (m *OrderModel) FromDomain(o *order.Order) {
	m.setRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.CustomerID = o.CustomerID
	m.Status = o.Status
	m.ExpectedDeliveryDate = o.ExpectedDeliveryDate
	m.DeliveryNotes = o.DeliveryNotes
	m.BatchID = o.BatchID
	m.StockReserved = o.StockReserved
	m.Lines = make([]OrderLineModel, 0, len(o.Lines))
	for _, l := range o.Lines {
		id := l.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		m.Lines = append(m.Lines, OrderLineModel{ID: id, OrderID: o.ID, SKUID: l.SKUID, Quantity: l.Quantity})
	}
}

// OrderLineModel is one ordered SKU quantity
type OrderLineModel struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKUID    uuid.UUID       `gorm:"column:sku_id;type:uuid;not null;index"`
	Quantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}
