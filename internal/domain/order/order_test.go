package order

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(status Status) *Order {
	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       "SO-1001",
		Status:            status,
	}
}

func TestOrder_LinkBatch(t *testing.T) {
	batchID := uuid.New()

	for _, status := range []Status{StatusPending, StatusAccepted, StatusScheduledForProduction} {
		t.Run(string(status), func(t *testing.T) {
			o := newOrder(status)
			require.NoError(t, o.LinkBatch(batchID))
			assert.Equal(t, StatusScheduledForProduction, o.Status)
			require.NotNil(t, o.BatchID)
			assert.Equal(t, batchID, *o.BatchID)
		})
	}

	t.Run("dispatched order cannot be linked", func(t *testing.T) {
		o := newOrder(StatusDispatched)
		err := o.LinkBatch(batchID)
		assert.True(t, shared.HasCode(err, shared.CodeIllegalStateTransition))
		assert.Nil(t, o.BatchID)
	})
}

func TestOrder_Transitions(t *testing.T) {
	t.Run("ready for dispatch only from scheduled", func(t *testing.T) {
		o := newOrder(StatusScheduledForProduction)
		require.NoError(t, o.MarkReadyForDispatch())
		assert.Equal(t, StatusReadyForDispatch, o.Status)
		require.NoError(t, o.MarkReadyForDispatch(), "repeat is a no-op")

		assert.Error(t, newOrder(StatusAccepted).MarkReadyForDispatch())
	})

	t.Run("revert clears batch reference", func(t *testing.T) {
		o := newOrder(StatusAccepted)
		require.NoError(t, o.LinkBatch(uuid.New()))
		require.NoError(t, o.RevertToAccepted())
		assert.Equal(t, StatusAccepted, o.Status)
		assert.Nil(t, o.BatchID)
		assert.True(t, o.IsEligibleForPlanning())

		assert.Error(t, newOrder(StatusCancelled).RevertToAccepted())
	})

	t.Run("dispatch requires ready", func(t *testing.T) {
		o := newOrder(StatusReadyForDispatch)
		require.NoError(t, o.Dispatch())
		assert.Equal(t, StatusDispatched, o.Status)
		assert.Error(t, o.Dispatch())
	})

	t.Run("delivery frozen on terminal orders", func(t *testing.T) {
		date := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
		o := newOrder(StatusAccepted)
		require.NoError(t, o.UpdateDelivery(&date, "dock 3"))
		assert.Equal(t, date, *o.ExpectedDeliveryDate)
		assert.Equal(t, "dock 3", o.DeliveryNotes)

		assert.Error(t, newOrder(StatusDispatched).UpdateDelivery(&date, ""))
	})
}

func TestOrder_SKUQuantities(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	o := newOrder(StatusAccepted)
	o.Lines = []Line{
		{SKUID: a, Quantity: decimal.NewFromInt(5)},
		{SKUID: b, Quantity: decimal.NewFromInt(2)},
		{SKUID: a, Quantity: decimal.NewFromInt(3)},
	}

	ids, totals := o.SKUQuantities()
	assert.Equal(t, []uuid.UUID{a, b}, ids)
	assert.True(t, decimal.NewFromInt(8).Equal(totals[a]))
	assert.True(t, decimal.NewFromInt(2).Equal(totals[b]))
}

func TestOrder_ReserveAndReleaseStock(t *testing.T) {
	o := newOrder(StatusReadyForDispatch)

	changed, err := o.ReserveStock()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, o.StockReserved)

	changed, err = o.ReserveStock()
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = o.ReleaseStock()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, o.StockReserved)

	changed, err = o.ReleaseStock()
	require.NoError(t, err)
	assert.False(t, changed)

	dispatched := newOrder(StatusDispatched)
	_, err = dispatched.ReserveStock()
	assert.True(t, shared.HasCode(err, shared.CodeIllegalStateTransition))
}
