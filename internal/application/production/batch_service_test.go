package production_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	appprod "github.com/paintworks/backend/internal/application/production"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/paintworks/backend/internal/domain/production"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var batchNumberPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{4}$`)

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Sub(dec(want)).Abs().LessThan(dec("0.0001")), "want %s, got %s", want, got)
}

func TestBatchService_ScheduleBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("deducts materials and links orders", func(t *testing.T) {
		p := newPlant(t)
		o := p.acceptedOrder(t, "SO-1001", map[uuid.UUID]string{p.sku4L: "5"})

		resp, err := p.service.ScheduleBatch(ctx, "planner", appprod.ScheduleBatchRequest{
			MasterProductID: p.paint,
			PlannedQuantity: dec("20"),
			OrderIDs:        []uuid.UUID{o.ID},
			Materials: []appprod.BatchMaterialRequest{
				{MaterialID: p.titanium, Quantity: dec("12")},
				{MaterialID: p.resin, Quantity: dec("8")},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, production.BatchStatusInProgress, resp.Status)
		assert.Regexp(t, batchNumberPattern, resp.BatchNumber)
		assert.Equal(t, []uuid.UUID{o.ID}, resp.OrderIDs)
		require.Len(t, resp.LineItems, 1)
		assert.Equal(t, production.FulfillmentMakeToOrder, resp.LineItems[0].FulfillmentType)
		// 5 tins * 4 L * 1.5 kg/L from the formula
		assertDecimal(t, "30", resp.LineItems[0].PlannedWeight)
		require.Len(t, resp.MaterialLines, 2)
		assert.Equal(t, 1, resp.MaterialLines[0].Sequence)
		assert.True(t, resp.MaterialLines[0].Reserved)
		require.NotNil(t, resp.Formulation.FormulaID)
		assert.Equal(t, p.formulaID, *resp.Formulation.FormulaID)

		assertDecimal(t, "88", p.materialStock(t, p.titanium))
		assertDecimal(t, "42", p.materialStock(t, p.resin))
		assert.Equal(t, order.StatusScheduledForProduction, p.orderStatus(t, o.ID))

		var txs []inventory.InventoryTransaction
		require.NoError(t, p.db.Where("reference_id = ?", resp.ID).Find(&txs).Error)
		require.Len(t, txs, 2)
		for _, tx := range txs {
			assert.Equal(t, inventory.TransactionTypeBatchConsumption, tx.TransactionType)
			assert.True(t, tx.SignedQuantity.IsNegative())
			assert.Equal(t, "planner", tx.Actor)
		}

		activity, err := p.service.ListActivity(ctx, resp.ID)
		require.NoError(t, err)
		require.Len(t, activity, 1)
		assert.Equal(t, production.ActivityScheduled, activity[0].Action)
		assert.Equal(t, int64(1), p.outboxCount(t, shared.OutboxStatusSent))
	})

	t.Run("stock run fans out one empty line per SKU", func(t *testing.T) {
		p := newPlant(t)

		resp, err := p.service.ScheduleBatch(ctx, "planner", appprod.ScheduleBatchRequest{
			MasterProductID: p.paint,
			PlannedQuantity: dec("10"),
		})
		require.NoError(t, err)

		require.Len(t, resp.LineItems, 2)
		for _, l := range resp.LineItems {
			assert.True(t, l.PlannedUnits.IsZero())
			assert.Nil(t, l.OrderID)
			assert.Equal(t, production.FulfillmentMakeToStock, l.FulfillmentType)
		}
		assert.Empty(t, resp.OrderIDs)
	})

	t.Run("shortfall rejects before anything is written", func(t *testing.T) {
		p := newPlant(t)

		_, err := p.service.ScheduleBatch(ctx, "planner", appprod.ScheduleBatchRequest{
			MasterProductID: p.paint,
			PlannedQuantity: dec("200"),
			Materials: []appprod.BatchMaterialRequest{
				{MaterialID: p.titanium, Quantity: dec("120")},
				{MaterialID: p.resin, Quantity: dec("20")},
			},
		})
		require.Error(t, err)
		assert.Equal(t, shared.CodeInsufficientStock, shared.ErrorCode(err))

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		shortfalls, ok := de.Details.([]inventory.Shortfall)
		require.True(t, ok)
		require.Len(t, shortfalls, 1)
		assert.Equal(t, p.titanium, shortfalls[0].MaterialID)
		assertDecimal(t, "20", shortfalls[0].Shortfall)

		var batches int64
		require.NoError(t, p.db.Model(&models.BatchModel{}).Count(&batches).Error)
		assert.Zero(t, batches)
		assertDecimal(t, "100", p.materialStock(t, p.titanium))
		assertDecimal(t, "50", p.materialStock(t, p.resin))
	})

	t.Run("rejects a raw material target", func(t *testing.T) {
		p := newPlant(t)

		_, err := p.service.ScheduleBatch(ctx, "planner", appprod.ScheduleBatchRequest{
			MasterProductID: p.resin,
			PlannedQuantity: dec("10"),
		})
		assert.Equal(t, shared.CodeInvalidBatchTarget, shared.ErrorCode(err))
	})

	t.Run("rejects a finished good as material", func(t *testing.T) {
		p := newPlant(t)

		_, err := p.service.ScheduleBatch(ctx, "planner", appprod.ScheduleBatchRequest{
			MasterProductID: p.paint,
			PlannedQuantity: dec("10"),
			Materials:       []appprod.BatchMaterialRequest{{MaterialID: p.paint, Quantity: dec("1")}},
		})
		assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
	})

	t.Run("rejects an unknown order", func(t *testing.T) {
		p := newPlant(t)

		_, err := p.service.ScheduleBatch(ctx, "planner", appprod.ScheduleBatchRequest{
			MasterProductID: p.paint,
			PlannedQuantity: dec("10"),
			OrderIDs:        []uuid.UUID{uuid.New()},
		})
		assert.Equal(t, shared.CodeNotFound, shared.ErrorCode(err))
	})

	t.Run("numbers batches sequentially within the month", func(t *testing.T) {
		p := newPlant(t)
		req := appprod.ScheduleBatchRequest{MasterProductID: p.paint, PlannedQuantity: dec("5")}

		first, err := p.service.ScheduleBatch(ctx, "planner", req)
		require.NoError(t, err)
		second, err := p.service.ScheduleBatch(ctx, "planner", req)
		require.NoError(t, err)

		assert.Equal(t, "0001", first.BatchNumber[:4])
		assert.Equal(t, "0002", second.BatchNumber[:4])
		assert.Equal(t, first.BatchNumber[4:], second.BatchNumber[4:])
	})

	t.Run("replays an idempotency key", func(t *testing.T) {
		p := newPlant(t)
		req := appprod.ScheduleBatchRequest{
			MasterProductID: p.paint,
			PlannedQuantity: dec("10"),
			Materials:       []appprod.BatchMaterialRequest{{MaterialID: p.titanium, Quantity: dec("10")}},
			IdempotencyKey:  "schedule-abc",
		}

		first, err := p.service.ScheduleBatch(ctx, "planner", req)
		require.NoError(t, err)
		second, err := p.service.ScheduleBatch(ctx, "planner", req)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assertDecimal(t, "90", p.materialStock(t, p.titanium))
	})
}

func TestBatchService_AutoScheduleStartComplete(t *testing.T) {
	ctx := context.Background()
	p := newPlant(t)
	o := p.acceptedOrder(t, "SO-2001", map[uuid.UUID]string{p.sku1L: "10", p.sku4L: "5"})
	delivery := time.Now().UTC().AddDate(0, 0, 14).Truncate(24 * time.Hour)

	batches, err := p.service.AutoScheduleOrder(ctx, "planner", appprod.AutoScheduleRequest{
		OrderID:              o.ID,
		ExpectedDeliveryDate: &delivery,
	})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	b := batches[0]

	assert.Equal(t, production.BatchStatusScheduled, b.Status)
	// 10 x 1 L plus (5 - 2 free) x 4 L
	assertDecimal(t, "22", b.PlannedQuantity)
	require.Len(t, b.MaterialLines, 2)
	assertDecimal(t, "13.2", b.MaterialLines[0].RequiredQuantity)
	assertDecimal(t, "8.8", b.MaterialLines[1].RequiredQuantity)
	assert.False(t, b.MaterialLines[0].Reserved)
	assertDecimal(t, "100", p.materialStock(t, p.titanium))
	assert.Equal(t, order.StatusScheduledForProduction, p.orderStatus(t, o.ID))

	stored, err := p.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ExpectedDeliveryDate)
	assert.Equal(t, delivery.Format("2006-01-02"), stored.ExpectedDeliveryDate.Format("2006-01-02"))

	_, err = p.service.StartBatch(ctx, "supervisor", b.ID, appprod.StartBatchRequest{})
	assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err), "a supervisor is required")

	supervisor := uuid.New()
	started, err := p.service.StartBatch(ctx, "supervisor", b.ID, appprod.StartBatchRequest{SupervisorID: &supervisor})
	require.NoError(t, err)
	assert.Equal(t, production.BatchStatusInProgress, started.Status)
	assertDecimal(t, "86.8", p.materialStock(t, p.titanium))
	assertDecimal(t, "41.2", p.materialStock(t, p.resin))

	completed, err := p.service.CompleteBatch(ctx, "supervisor", b.ID, appprod.CompleteBatchRequest{
		ActualQuantity:  dec("22"),
		ActualDensity:   dec("1.5"),
		ActualViscosity: dec("96"),
		Materials: []appprod.ConsumedMaterialRequest{
			{MaterialID: p.titanium, Quantity: dec("13.2")},
			{MaterialID: p.resin, Quantity: dec("1"), IsAdditional: true, Sequence: 3},
		},
		Outputs: []appprod.ProducedOutputRequest{
			{SKUID: p.sku1L, Units: dec("10"), Weight: dec("15")},
			{SKUID: p.sku4L, Units: dec("3"), Weight: dec("18")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, production.BatchStatusCompleted, completed.Status)
	require.NotNil(t, completed.Actual)
	assertDecimal(t, "33", completed.Actual.Weight)
	assert.Len(t, completed.MaterialLines, 3)

	assertDecimal(t, "10", p.skuStock(t, p.sku1L))
	assertDecimal(t, "5", p.skuStock(t, p.sku4L))
	assertDecimal(t, "40.2", p.materialStock(t, p.resin))
	assertDecimal(t, "497", p.materialStock(t, p.tin))
	assert.Equal(t, order.StatusReadyForDispatch, p.orderStatus(t, o.ID))

	var packaging []inventory.InventoryTransaction
	require.NoError(t, p.db.Where("reference_id = ? AND transaction_type = ?",
		b.ID, inventory.TransactionTypePackagingConsumption).Find(&packaging).Error)
	require.Len(t, packaging, 1)
	assertDecimal(t, "-3", packaging[0].SignedQuantity)

	activity, err := p.service.ListActivity(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, activity, 3)
	assert.Equal(t, production.ActivityAutoScheduled, activity[0].Action)
	assert.Equal(t, production.ActivityStarted, activity[1].Action)
	assert.Equal(t, production.ActivityCompleted, activity[2].Action)

	_, err = p.service.CancelBatch(ctx, "planner", b.ID, appprod.CancelBatchRequest{Reason: "too late"})
	assert.Equal(t, shared.CodeIllegalStateTransition, shared.ErrorCode(err))
}

func TestBatchService_AutoScheduleOrder_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("order covered by stock", func(t *testing.T) {
		p := newPlant(t)
		o := p.acceptedOrder(t, "SO-3001", map[uuid.UUID]string{p.sku4L: "2"})

		_, err := p.service.AutoScheduleOrder(ctx, "planner", appprod.AutoScheduleRequest{OrderID: o.ID})
		assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
	})

	t.Run("order not accepted", func(t *testing.T) {
		p := newPlant(t)
		o := p.acceptedOrder(t, "SO-3002", map[uuid.UUID]string{p.sku1L: "2"})
		o.Status = order.StatusDispatched
		require.NoError(t, p.orders.Save(ctx, o))

		_, err := p.service.AutoScheduleOrder(ctx, "planner", appprod.AutoScheduleRequest{OrderID: o.ID})
		assert.Equal(t, shared.CodeIllegalStateTransition, shared.ErrorCode(err))
	})

	t.Run("no active formula", func(t *testing.T) {
		p := newPlant(t)
		require.NoError(t, p.db.Model(&models.FormulaModel{}).
			Where("id = ?", p.formulaID).Update("is_active", false).Error)
		o := p.acceptedOrder(t, "SO-3003", map[uuid.UUID]string{p.sku1L: "2"})

		_, err := p.service.AutoScheduleOrder(ctx, "planner", appprod.AutoScheduleRequest{OrderID: o.ID})
		assert.Equal(t, shared.CodeNoBOMConfigured, shared.ErrorCode(err))
	})
}

func TestBatchService_CompleteBatch_OutOfTolerance(t *testing.T) {
	ctx := context.Background()
	p := newPlant(t)
	b, err := p.service.ScheduleBatch(ctx, "planner", appprod.ScheduleBatchRequest{
		MasterProductID: p.paint,
		PlannedQuantity: dec("10"),
	})
	require.NoError(t, err)

	_, err = p.service.CompleteBatch(ctx, "supervisor", b.ID, appprod.CompleteBatchRequest{
		ActualQuantity: dec("10"),
		ActualDensity:  dec("1.5"),
		Outputs:        []appprod.ProducedOutputRequest{{SKUID: p.sku1L, Units: dec("10"), Weight: dec("10")}},
	})
	assert.Equal(t, shared.CodeOutputOutOfTolerance, shared.ErrorCode(err))

	got, err := p.service.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, production.BatchStatusInProgress, got.Status)
	assertDecimal(t, "0", p.skuStock(t, p.sku1L))
}

func TestBatchService_CompleteBatch_ForeignSKU(t *testing.T) {
	ctx := context.Background()
	p := newPlant(t)
	b, err := p.service.ScheduleBatch(ctx, "planner", appprod.ScheduleBatchRequest{
		MasterProductID: p.paint,
		PlannedQuantity: dec("10"),
	})
	require.NoError(t, err)

	_, err = p.service.CompleteBatch(ctx, "supervisor", b.ID, appprod.CompleteBatchRequest{
		ActualQuantity: dec("10"),
		ActualDensity:  dec("1.5"),
		Outputs:        []appprod.ProducedOutputRequest{{SKUID: uuid.New(), Units: dec("10"), Weight: dec("15")}},
	})
	assert.Equal(t, shared.CodeNotFound, shared.ErrorCode(err))
}

func TestBatchService_CancelBatch(t *testing.T) {
	ctx := context.Background()
	p := newPlant(t)
	o := p.acceptedOrder(t, "SO-4001", map[uuid.UUID]string{p.sku1L: "20"})

	b, err := p.service.ScheduleBatch(ctx, "planner", appprod.ScheduleBatchRequest{
		MasterProductID: p.paint,
		PlannedQuantity: dec("20"),
		OrderIDs:        []uuid.UUID{o.ID},
		Materials: []appprod.BatchMaterialRequest{
			{MaterialID: p.titanium, Quantity: dec("20")},
			{MaterialID: p.resin, Quantity: dec("5")},
		},
	})
	require.NoError(t, err)
	assertDecimal(t, "80", p.materialStock(t, p.titanium))

	_, err = p.service.CancelBatch(ctx, "planner", b.ID, appprod.CancelBatchRequest{Reason: "  "})
	assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))

	cancelled, err := p.service.CancelBatch(ctx, "planner", b.ID, appprod.CancelBatchRequest{Reason: "mixer down"})
	require.NoError(t, err)
	assert.Equal(t, production.BatchStatusCancelled, cancelled.Status)
	assert.Equal(t, "mixer down", cancelled.CancelReason)
	for _, m := range cancelled.MaterialLines {
		assert.False(t, m.Reserved)
	}

	assertDecimal(t, "100", p.materialStock(t, p.titanium))
	assertDecimal(t, "50", p.materialStock(t, p.resin))

	stored, err := p.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusAccepted, stored.Status)
	assert.Nil(t, stored.BatchID)

	var released []inventory.InventoryTransaction
	require.NoError(t, p.db.Where("reference_id = ? AND transaction_type = ?",
		b.ID, inventory.TransactionTypeBatchRelease).Find(&released).Error)
	assert.Len(t, released, 2)

	activity, err := p.service.ListActivity(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, production.BatchStatusInProgress, activity[1].PreviousStatus)
	assert.Equal(t, production.BatchStatusCancelled, activity[1].NewStatus)
}

// scheduleForOrder runs a 10 L batch of the paint for o, deducting its
// materials up front
func scheduleForOrder(t *testing.T, p *plant, o *order.Order) *appprod.BatchResponse {
	t.Helper()
	b, err := p.service.ScheduleBatch(context.Background(), "planner", appprod.ScheduleBatchRequest{
		MasterProductID: p.paint,
		PlannedQuantity: dec("10"),
		OrderIDs:        []uuid.UUID{o.ID},
		Materials: []appprod.BatchMaterialRequest{
			{MaterialID: p.titanium, Quantity: dec("6")},
			{MaterialID: p.resin, Quantity: dec("4")},
		},
	})
	require.NoError(t, err)
	return b
}

func TestBatchService_CancelBatch_OrderSplitAcrossBatches(t *testing.T) {
	ctx := context.Background()
	p := newPlant(t)
	o := p.acceptedOrder(t, "SO-4101", map[uuid.UUID]string{p.sku1L: "20"})
	first := scheduleForOrder(t, p, o)
	second := scheduleForOrder(t, p, o)

	stored, err := p.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.BatchID)
	assert.Equal(t, second.ID, *stored.BatchID)

	_, err = p.service.CancelBatch(ctx, "planner", first.ID, appprod.CancelBatchRequest{Reason: "merged into next run"})
	require.NoError(t, err)

	stored, err = p.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusScheduledForProduction, stored.Status, "the order still has a live batch")
	require.NotNil(t, stored.BatchID)
	assert.Equal(t, second.ID, *stored.BatchID)
	assertDecimal(t, "94", p.materialStock(t, p.titanium))

	_, err = p.service.CancelBatch(ctx, "planner", second.ID, appprod.CancelBatchRequest{Reason: "order on hold"})
	require.NoError(t, err)

	stored, err = p.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusAccepted, stored.Status)
	assert.Nil(t, stored.BatchID)
	assertDecimal(t, "100", p.materialStock(t, p.titanium))
	assertDecimal(t, "50", p.materialStock(t, p.resin))
}

func TestBatchService_CompleteBatch_OrderSplitAcrossBatches(t *testing.T) {
	ctx := context.Background()
	p := newPlant(t)
	o := p.acceptedOrder(t, "SO-4201", map[uuid.UUID]string{p.sku1L: "20"})
	first := scheduleForOrder(t, p, o)
	second := scheduleForOrder(t, p, o)

	complete := func(id uuid.UUID) {
		t.Helper()
		_, err := p.service.CompleteBatch(ctx, "supervisor", id, appprod.CompleteBatchRequest{
			ActualQuantity: dec("10"),
			ActualDensity:  dec("1.5"),
			Outputs:        []appprod.ProducedOutputRequest{{SKUID: p.sku1L, Units: dec("10"), Weight: dec("15")}},
		})
		require.NoError(t, err)
	}

	complete(first.ID)
	assert.Equal(t, order.StatusScheduledForProduction, p.orderStatus(t, o.ID), "the second batch is still running")
	assertDecimal(t, "10", p.skuStock(t, p.sku1L))

	complete(second.ID)
	assert.Equal(t, order.StatusReadyForDispatch, p.orderStatus(t, o.ID))
	assertDecimal(t, "20", p.skuStock(t, p.sku1L))
}

func TestBatchService_ListBatches(t *testing.T) {
	ctx := context.Background()
	p := newPlant(t)
	for i := 0; i < 3; i++ {
		_, err := p.service.ScheduleBatch(ctx, "planner", appprod.ScheduleBatchRequest{
			MasterProductID: p.paint,
			PlannedQuantity: dec("5"),
		})
		require.NoError(t, err)
	}

	page, total, err := p.service.ListBatches(ctx, appprod.BatchListFilter{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)

	_, total, err = p.service.ListBatches(ctx, appprod.BatchListFilter{Status: string(production.BatchStatusCompleted)})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, _, err = p.service.ListBatches(ctx, appprod.BatchListFilter{Status: "MIXING"})
	assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
}

func TestBatchService_GetBatch_NotFound(t *testing.T) {
	p := newPlant(t)
	_, err := p.service.GetBatch(context.Background(), uuid.New())
	assert.Equal(t, shared.CodeNotFound, shared.ErrorCode(err))
}
