// Package order holds the slice of the order intake context that production
// planning reads and writes: status, delivery metadata and batch linkage.
package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle status of a customer order
type Status string

const (
	StatusPending                Status = "PENDING"
	StatusAccepted               Status = "ACCEPTED"
	StatusScheduledForProduction Status = "SCHEDULED_FOR_PRODUCTION"
	StatusReadyForDispatch       Status = "READY_FOR_DISPATCH"
	StatusDispatched             Status = "DISPATCHED"
	StatusCancelled              Status = "CANCELLED"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true once an order can no longer change
func (s Status) IsTerminal() bool {
	return s == StatusDispatched || s == StatusCancelled
}

// Order is a customer order as seen by production planning
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber          string
	CustomerID           uuid.UUID
	Status               Status
	ExpectedDeliveryDate *time.Time
	DeliveryNotes        string
	// BatchID references the most recent batch feeding this order
	BatchID       *uuid.UUID
	StockReserved bool
	Lines         []Line
}

// Line is one ordered SKU quantity
type Line struct {
	ID       uuid.UUID
	OrderID  uuid.UUID
	SKUID    uuid.UUID
	Quantity decimal.Decimal
}

// SKUQuantities sums line quantities per SKU, keeping first-seen order
func (o *Order) SKUQuantities() ([]uuid.UUID, map[uuid.UUID]decimal.Decimal) {
	order := make([]uuid.UUID, 0, len(o.Lines))
	totals := make(map[uuid.UUID]decimal.Decimal, len(o.Lines))
	for _, l := range o.Lines {
		if _, ok := totals[l.SKUID]; !ok {
			order = append(order, l.SKUID)
		}
		totals[l.SKUID] = totals[l.SKUID].Add(l.Quantity)
	}
	return order, totals
}

// IsEligibleForPlanning reports whether the order can be picked for a batch
func (o *Order) IsEligibleForPlanning() bool {
	return o.Status == StatusAccepted && o.BatchID == nil
}

// CanLinkBatch reports whether a batch may still be linked to the order
func (o *Order) CanLinkBatch() bool {
	switch o.Status {
	case StatusPending, StatusAccepted, StatusScheduledForProduction:
		return true
	}
	return false
}

// LinkBatch records the batch feeding this order and promotes it to
// SCHEDULED_FOR_PRODUCTION. Linking is repeatable for the same batch.
func (o *Order) LinkBatch(batchID uuid.UUID) error {
	if !o.CanLinkBatch() {
		return shared.NewIllegalTransitionError(
			"Order %s cannot be scheduled for production from %s", o.OrderNumber, o.Status)
	}
	o.BatchID = &batchID
	o.Status = StatusScheduledForProduction
	o.Touch()
	return nil
}

// MarkReadyForDispatch promotes a scheduled order once all its batches completed
func (o *Order) MarkReadyForDispatch() error {
	if o.Status == StatusReadyForDispatch {
		return nil
	}
	if o.Status != StatusScheduledForProduction {
		return shared.NewIllegalTransitionError(
			"Order %s cannot become ready for dispatch from %s", o.OrderNumber, o.Status)
	}
	o.Status = StatusReadyForDispatch
	o.Touch()
	return nil
}

// RevertToAccepted undoes scheduling after a batch cancellation
func (o *Order) RevertToAccepted() error {
	if o.Status.IsTerminal() {
		return shared.NewIllegalTransitionError(
			"Order %s is %s and cannot be reverted", o.OrderNumber, o.Status)
	}
	o.Status = StatusAccepted
	o.BatchID = nil
	o.Touch()
	return nil
}

// Dispatch hands a ready order over to dispatch. Held stock leaves with it.
func (o *Order) Dispatch() error {
	if o.Status != StatusReadyForDispatch {
		return shared.NewIllegalTransitionError(
			"Order %s must be READY_FOR_DISPATCH to dispatch, is %s", o.OrderNumber, o.Status)
	}
	o.Status = StatusDispatched
	o.StockReserved = false
	o.Touch()
	return nil
}

// UpdateDelivery changes the expected delivery date and notes
func (o *Order) UpdateDelivery(date *time.Time, notes string) error {
	if o.Status.IsTerminal() {
		return shared.NewIllegalTransitionError(
			"Order %s is %s, delivery details are frozen", o.OrderNumber, o.Status)
	}
	o.ExpectedDeliveryDate = date
	if notes != "" {
		o.DeliveryNotes = notes
	}
	o.Touch()
	return nil
}

// ReserveStock flags the order as holding finished goods. It reports false
// when the order already held them.
func (o *Order) ReserveStock() (bool, error) {
	if o.Status.IsTerminal() {
		return false, shared.NewIllegalTransitionError(
			"Order %s is %s and cannot reserve stock", o.OrderNumber, o.Status)
	}
	if o.StockReserved {
		return false, nil
	}
	o.StockReserved = true
	o.Touch()
	return true, nil
}

// ReleaseStock clears the reservation flag. It reports false when nothing was held.
func (o *Order) ReleaseStock() (bool, error) {
	if o.Status.IsTerminal() {
		return false, shared.NewIllegalTransitionError(
			"Order %s is %s and cannot release stock", o.OrderNumber, o.Status)
	}
	if !o.StockReserved {
		return false, nil
	}
	o.StockReserved = false
	o.Touch()
	return true, nil
}
