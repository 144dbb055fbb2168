package production

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/paintworks/backend/internal/domain/production"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testOrder(status order.Status, batchID *uuid.UUID) *order.Order {
	return &order.Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       "SO-0042",
		Status:            status,
		BatchID:           batchID,
	}
}

func transitionEvent(eventType string, batchID uuid.UUID, orderIDs ...uuid.UUID) shared.DomainEvent {
	base := shared.NewBaseDomainEvent(eventType, production.AggregateTypeBatch, batchID)
	t := production.BatchTransition{
		BatchID:     batchID,
		BatchNumber: "0003-10-2026",
		Actor:       "planner",
		OrderIDs:    orderIDs,
	}
	switch eventType {
	case production.EventTypeBatchScheduled:
		t.Action, t.NewStatus = production.ActivityScheduled, production.BatchStatusInProgress
		return &production.BatchScheduledEvent{BaseDomainEvent: base, BatchTransition: t}
	case production.EventTypeBatchStarted:
		t.Action, t.NewStatus = production.ActivityStarted, production.BatchStatusInProgress
		return &production.BatchStartedEvent{BaseDomainEvent: base, BatchTransition: t}
	case production.EventTypeBatchCompleted:
		t.Action, t.NewStatus = production.ActivityCompleted, production.BatchStatusCompleted
		return &production.BatchCompletedEvent{BaseDomainEvent: base, BatchTransition: t}
	default:
		t.Action, t.NewStatus = production.ActivityCancelled, production.BatchStatusCancelled
		return &production.BatchCancelledEvent{BaseDomainEvent: base, BatchTransition: t, Reason: "mixer down"}
	}
}

func TestOrderLinkHandler_Handle(t *testing.T) {
	ctx := context.Background()
	batchID := uuid.New()

	t.Run("links accepted orders", func(t *testing.T) {
		orders := new(MockOrderRepository)
		o := testOrder(order.StatusAccepted, nil)
		orders.On("FindByID", ctx, o.ID).Return(o, nil)
		orders.On("Save", ctx, o).Return(nil)

		h := NewOrderLinkHandler(orders, zap.NewNop())
		require.NoError(t, h.Handle(ctx, transitionEvent(production.EventTypeBatchScheduled, batchID, o.ID)))

		assert.Equal(t, order.StatusScheduledForProduction, o.Status)
		require.NotNil(t, o.BatchID)
		assert.Equal(t, batchID, *o.BatchID)
		orders.AssertExpectations(t)
	})

	t.Run("skips orders already linked to the batch", func(t *testing.T) {
		orders := new(MockOrderRepository)
		o := testOrder(order.StatusScheduledForProduction, &batchID)
		orders.On("FindByID", ctx, o.ID).Return(o, nil)

		h := NewOrderLinkHandler(orders, zap.NewNop())
		require.NoError(t, h.Handle(ctx, transitionEvent(production.EventTypeBatchScheduled, batchID, o.ID)))
		orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("leaves dispatched orders alone", func(t *testing.T) {
		orders := new(MockOrderRepository)
		o := testOrder(order.StatusDispatched, nil)
		orders.On("FindByID", ctx, o.ID).Return(o, nil)

		h := NewOrderLinkHandler(orders, zap.NewNop())
		require.NoError(t, h.Handle(ctx, transitionEvent(production.EventTypeBatchScheduled, batchID, o.ID)))
		assert.Equal(t, order.StatusDispatched, o.Status)
		orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("save failure is returned for retry", func(t *testing.T) {
		orders := new(MockOrderRepository)
		o := testOrder(order.StatusAccepted, nil)
		orders.On("FindByID", ctx, o.ID).Return(o, nil)
		orders.On("Save", ctx, o).Return(shared.ErrConcurrencyConflict)

		h := NewOrderLinkHandler(orders, zap.NewNop())
		err := h.Handle(ctx, transitionEvent(production.EventTypeBatchScheduled, batchID, o.ID))
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	})

	t.Run("rejects foreign events", func(t *testing.T) {
		h := NewOrderLinkHandler(new(MockOrderRepository), zap.NewNop())
		base := shared.NewBaseDomainEvent("order.created", "Order", uuid.New())
		assert.Error(t, h.Handle(ctx, &base))
	})
}

func TestOrderReadinessHandler_Handle(t *testing.T) {
	ctx := context.Background()
	batchID := uuid.New()

	tests := []struct {
		name      string
		statuses  []production.BatchStatus
		wantReady bool
	}{
		{"all completed", []production.BatchStatus{production.BatchStatusCompleted, production.BatchStatusCompleted}, true},
		{"cancelled batches are ignored", []production.BatchStatus{production.BatchStatusCompleted, production.BatchStatusCancelled}, true},
		{"one still running", []production.BatchStatus{production.BatchStatusCompleted, production.BatchStatusInProgress}, false},
		{"only cancelled", []production.BatchStatus{production.BatchStatusCancelled}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(MockOrderRepository)
			batches := new(MockBatchRepository)
			o := testOrder(order.StatusScheduledForProduction, &batchID)
			batches.On("FindStatusesByOrder", ctx, o.ID).Return(tt.statuses, nil)
			orders.On("FindByID", ctx, o.ID).Return(o, nil)
			orders.On("Save", ctx, o).Return(nil)

			h := NewOrderReadinessHandler(orders, batches, zap.NewNop())
			require.NoError(t, h.Handle(ctx, transitionEvent(production.EventTypeBatchCompleted, batchID, o.ID)))

			if tt.wantReady {
				assert.Equal(t, order.StatusReadyForDispatch, o.Status)
				orders.AssertCalled(t, "Save", ctx, o)
			} else {
				assert.Equal(t, order.StatusScheduledForProduction, o.Status)
				orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestOrderRevertHandler_Handle(t *testing.T) {
	ctx := context.Background()
	batchID := uuid.New()
	otherBatch := uuid.New()

	tests := []struct {
		name       string
		order      *order.Order
		wantStatus order.Status
		wantSave   bool
	}{
		{"scheduled order reverts", testOrder(order.StatusScheduledForProduction, &batchID), order.StatusAccepted, true},
		{"ready order reverts", testOrder(order.StatusReadyForDispatch, &batchID), order.StatusAccepted, true},
		{"relinked order stays", testOrder(order.StatusScheduledForProduction, &otherBatch), order.StatusScheduledForProduction, false},
		{"dispatched order stays", testOrder(order.StatusDispatched, &batchID), order.StatusDispatched, false},
		{"pending order stays", testOrder(order.StatusPending, nil), order.StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(MockOrderRepository)
			orders.On("FindByID", ctx, tt.order.ID).Return(tt.order, nil)
			orders.On("Save", ctx, tt.order).Return(nil)

			h := NewOrderRevertHandler(orders, zap.NewNop())
			require.NoError(t, h.Handle(ctx, transitionEvent(production.EventTypeBatchCancelled, batchID, tt.order.ID)))

			assert.Equal(t, tt.wantStatus, tt.order.Status)
			if tt.wantSave {
				assert.Nil(t, tt.order.BatchID)
				orders.AssertCalled(t, "Save", ctx, tt.order)
			} else {
				orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestActivityLogHandler_Handle(t *testing.T) {
	ctx := context.Background()
	batchID := uuid.New()
	activity := new(MockActivityLogRepository)
	activity.On("Append", ctx, mock.AnythingOfType("*production.ActivityLogEntry")).Return(nil)

	h := NewActivityLogHandler(activity, zap.NewNop())
	assert.Len(t, h.EventTypes(), 4)

	evt := transitionEvent(production.EventTypeBatchCancelled, batchID)
	require.NoError(t, h.Handle(ctx, evt))

	entry := activity.Calls[0].Arguments.Get(1).(*production.ActivityLogEntry)
	assert.Equal(t, evt.EventID(), entry.ID)
	assert.Equal(t, batchID, entry.BatchID)
	assert.Equal(t, production.ActivityCancelled, entry.Action)
	assert.Equal(t, production.BatchStatusCancelled, entry.NewStatus)
}

func TestRegisterHandlers_WrapsEveryHandler(t *testing.T) {
	sub := &recordingSubscriber{}
	var wrapped []string
	RegisterHandlers(sub, new(MockOrderRepository), new(MockBatchRepository), new(MockActivityLogRepository),
		func(h shared.NamedHandler) shared.NamedHandler {
			wrapped = append(wrapped, h.Name())
			return h
		}, zap.NewNop())

	assert.Equal(t, []string{HandlerOrderLink, HandlerOrderReadiness, HandlerOrderRevert, HandlerActivityLog}, wrapped)
	assert.Len(t, sub.handlers, 4)
}

type recordingSubscriber struct {
	handlers []shared.EventHandler
}

func (s *recordingSubscriber) Subscribe(handler shared.EventHandler, _ ...string) {
	s.handlers = append(s.handlers, handler)
}

func (s *recordingSubscriber) Unsubscribe(shared.EventHandler) {}
