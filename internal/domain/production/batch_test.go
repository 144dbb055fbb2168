package production

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestBatch(t *testing.T, auto bool, orderIDs ...uuid.UUID) *ProductionBatch {
	t.Helper()
	supervisor := uuid.New()
	lines := make([]PlannedLine, 0, len(orderIDs))
	for _, id := range orderIDs {
		orderID := id
		lines = append(lines, PlannedLine{SKUID: uuid.New(), OrderID: &orderID, Units: d("10"), Weight: d("40")})
	}
	p := NewBatchParams{
		BatchNumber:     "0001-10-2026",
		MasterProductID: uuid.New(),
		PlannedQuantity: d("100"),
		Lines:           lines,
		Materials: []PlannedMaterial{
			{MaterialID: uuid.New(), MaterialName: "M1", Quantity: d("20"), Sequence: 1},
			{MaterialID: uuid.New(), MaterialName: "M2", Quantity: d("5"), Sequence: 2},
		},
		Actor:         "planner",
		AutoScheduled: auto,
	}
	if !auto {
		p.SupervisorID = &supervisor
	}
	b, err := NewBatch(p)
	require.NoError(t, err)
	return b
}

func TestNewBatch(t *testing.T) {
	t.Run("manual batch starts in progress with reserved materials", func(t *testing.T) {
		orderID := uuid.New()
		b := newTestBatch(t, false, orderID, orderID)

		assert.Equal(t, BatchStatusInProgress, b.Status)
		require.NotNil(t, b.StartedAt)
		assert.Len(t, b.ReservedMaterials(), 2)
		assert.Equal(t, []uuid.UUID{orderID}, b.OrderIDs())
		for _, l := range b.LineItems {
			assert.Equal(t, FulfillmentMakeToOrder, l.FulfillmentType)
			assert.Equal(t, b.ID, l.BatchID)
		}

		events := b.GetDomainEvents()
		require.Len(t, events, 1)
		ev, ok := events[0].(*BatchScheduledEvent)
		require.True(t, ok)
		assert.Equal(t, ActivityScheduled, ev.Action)
		assert.Equal(t, BatchStatusInProgress, ev.NewStatus)
		assert.Equal(t, []uuid.UUID{orderID}, ev.OrderIDs)
	})

	t.Run("auto scheduled batch waits without reservation", func(t *testing.T) {
		b := newTestBatch(t, true, uuid.New())
		assert.Equal(t, BatchStatusScheduled, b.Status)
		assert.Nil(t, b.StartedAt)
		assert.Empty(t, b.ReservedMaterials())

		ev := b.GetDomainEvents()[0].(*BatchScheduledEvent)
		assert.Equal(t, ActivityAutoScheduled, ev.Action)
	})

	t.Run("stock lines are make to stock", func(t *testing.T) {
		b, err := NewBatch(NewBatchParams{
			BatchNumber:     "0002-10-2026",
			MasterProductID: uuid.New(),
			PlannedQuantity: d("100"),
			Lines: []PlannedLine{
				{SKUID: uuid.New(), Units: decimal.Zero},
				{SKUID: uuid.New(), Units: decimal.Zero},
			},
		})
		require.NoError(t, err)
		require.Len(t, b.LineItems, 2)
		for _, l := range b.LineItems {
			assert.Equal(t, FulfillmentMakeToStock, l.FulfillmentType)
			assert.True(t, l.PlannedUnits.IsZero())
		}
		assert.Empty(t, b.OrderIDs())
	})

	tests := []struct {
		name   string
		mutate func(p *NewBatchParams)
	}{
		{"empty number", func(p *NewBatchParams) { p.BatchNumber = "" }},
		{"zero quantity", func(p *NewBatchParams) { p.PlannedQuantity = decimal.Zero }},
		{"negative material", func(p *NewBatchParams) {
			p.Materials = []PlannedMaterial{{MaterialID: uuid.New(), Quantity: d("-1")}}
		}},
		{"negative units", func(p *NewBatchParams) {
			p.Lines = []PlannedLine{{SKUID: uuid.New(), Units: d("-2")}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewBatchParams{BatchNumber: "0003-10-2026", MasterProductID: uuid.New(), PlannedQuantity: d("10")}
			tt.mutate(&p)
			_, err := NewBatch(p)
			assert.True(t, shared.HasCode(err, shared.CodeValidation))
		})
	}
}

func TestProductionBatch_Start(t *testing.T) {
	b := newTestBatch(t, true, uuid.New())
	b.ClearDomainEvents()

	_, err := b.Start(nil, "supervisor")
	assert.True(t, shared.HasCode(err, shared.CodeValidation), "supervisor is required")

	supervisor := uuid.New()
	lines, err := b.Start(&supervisor, "supervisor")
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.Equal(t, BatchStatusInProgress, b.Status)
	assert.Len(t, b.ReservedMaterials(), 2)

	ev := b.GetDomainEvents()[0].(*BatchStartedEvent)
	assert.Equal(t, BatchStatusScheduled, ev.PreviousStatus)

	_, err = b.Start(&supervisor, "supervisor")
	assert.True(t, shared.HasCode(err, shared.CodeIllegalStateTransition))
}

func completion(outputs ...ProducedOutput) Completion {
	return Completion{
		Quantity: d("100"),
		Density:  d("1.2"),
		EndTime:  time.Now().UTC().Add(2 * time.Hour),
		Outputs:  outputs,
		Actor:    "supervisor",
	}
}

func TestProductionBatch_Complete(t *testing.T) {
	t.Run("credits outputs and records actuals", func(t *testing.T) {
		b := newTestBatch(t, false, uuid.New())
		sku := b.LineItems[0].SKUID
		start := b.StartedAt.Add(-time.Hour)

		c := completion(
			ProducedOutput{SKUID: sku, Units: d("20"), Weight: d("80")},
			ProducedOutput{SKUID: sku, Units: d("10"), Weight: d("40")},
		)
		c.StartTime = &start
		c.EndTime = start.Add(90 * time.Minute)

		out, err := b.Complete(c)
		require.NoError(t, err)
		require.Len(t, out.Credits, 1)
		assert.True(t, d("30").Equal(out.Credits[0].Units))
		assert.True(t, d("120").Equal(out.Credits[0].Weight))
		assert.Equal(t, BatchStatusCompleted, b.Status)
		assert.True(t, d("1.5").Equal(b.Actual.ElapsedHours))
		assert.True(t, b.LineItems[0].InventoryApplied)
		assert.True(t, d("30").Equal(b.LineItems[0].ProducedUnits))
	})

	t.Run("unplanned sku gets a make to stock line", func(t *testing.T) {
		b := newTestBatch(t, false, uuid.New())
		extra := uuid.New()
		_, err := b.Complete(completion(ProducedOutput{SKUID: extra, Units: d("30"), Weight: d("120")}))
		require.NoError(t, err)

		last := b.LineItems[len(b.LineItems)-1]
		assert.Equal(t, extra, last.SKUID)
		assert.Equal(t, FulfillmentMakeToStock, last.FulfillmentType)
		assert.True(t, last.InventoryApplied)
	})

	t.Run("already applied inventory is not credited twice", func(t *testing.T) {
		b := newTestBatch(t, false, uuid.New())
		b.LineItems[0].InventoryApplied = true
		out, err := b.Complete(completion(ProducedOutput{SKUID: b.LineItems[0].SKUID, Units: d("30"), Weight: d("120")}))
		require.NoError(t, err)
		assert.Empty(t, out.Credits)
	})

	t.Run("output weight tolerance", func(t *testing.T) {
		// batch weight is 100 * 1.2 = 120, 5% allows 114..126
		for _, tc := range []struct {
			weight string
			ok     bool
		}{
			{"126", true},
			{"114", true},
			{"126.01", false},
			{"113.99", false},
		} {
			b := newTestBatch(t, false)
			_, err := b.Complete(completion(ProducedOutput{SKUID: uuid.New(), Units: d("1"), Weight: d(tc.weight)}))
			if tc.ok {
				assert.NoError(t, err, tc.weight)
			} else {
				assert.True(t, shared.HasCode(err, shared.CodeOutputOutOfTolerance), tc.weight)
				assert.Equal(t, BatchStatusInProgress, b.Status)
			}
		}
	})

	t.Run("only additional materials are returned for deduction", func(t *testing.T) {
		b := newTestBatch(t, false)
		planned := b.MaterialLines[0].MaterialID
		extra := uuid.New()
		c := completion(ProducedOutput{SKUID: uuid.New(), Units: d("1"), Weight: d("120")})
		c.Materials = []ConsumedMaterial{
			{MaterialID: planned, Quantity: d("21")},
			{MaterialID: extra, MaterialName: "Thinner", Quantity: d("2"), IsAdditional: true},
		}

		out, err := b.Complete(c)
		require.NoError(t, err)
		require.Len(t, out.AdditionalMaterials, 1)
		assert.Equal(t, extra, out.AdditionalMaterials[0].MaterialID)
		assert.True(t, d("21").Equal(b.MaterialLines[0].ActualQuantity))
		assert.Len(t, b.MaterialLines, 3)
	})

	t.Run("unknown planned material is rejected", func(t *testing.T) {
		b := newTestBatch(t, false)
		c := completion(ProducedOutput{SKUID: uuid.New(), Units: d("1"), Weight: d("120")})
		c.Materials = []ConsumedMaterial{{MaterialID: uuid.New(), Quantity: d("1")}}
		_, err := b.Complete(c)
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
	})

	t.Run("scheduled and completed batches cannot complete", func(t *testing.T) {
		scheduled := newTestBatch(t, true)
		_, err := scheduled.Complete(completion(ProducedOutput{SKUID: uuid.New(), Weight: d("120")}))
		assert.True(t, shared.HasCode(err, shared.CodeIllegalStateTransition))

		b := newTestBatch(t, false)
		_, err = b.Complete(completion(ProducedOutput{SKUID: uuid.New(), Weight: d("120")}))
		require.NoError(t, err)
		_, err = b.Complete(completion(ProducedOutput{SKUID: uuid.New(), Weight: d("120")}))
		assert.True(t, shared.HasCode(err, shared.CodeIllegalStateTransition))
	})
}

func TestProductionBatch_Cancel(t *testing.T) {
	t.Run("releases reserved lines", func(t *testing.T) {
		orderID := uuid.New()
		b := newTestBatch(t, false, orderID)
		b.ClearDomainEvents()

		released, err := b.Cancel("mixer down", "planner")
		require.NoError(t, err)
		require.Len(t, released, 2)
		assert.True(t, d("20").Equal(released[0].RequiredQuantity))
		assert.True(t, d("5").Equal(released[1].RequiredQuantity))
		assert.Empty(t, b.ReservedMaterials())
		assert.Equal(t, BatchStatusCancelled, b.Status)
		assert.Equal(t, "mixer down", b.CancelReason)

		ev := b.GetDomainEvents()[0].(*BatchCancelledEvent)
		assert.Equal(t, BatchStatusInProgress, ev.PreviousStatus)
		assert.Equal(t, []uuid.UUID{orderID}, ev.OrderIDs)
		assert.Equal(t, "mixer down", ev.Reason)
	})

	t.Run("scheduled batch has nothing to release", func(t *testing.T) {
		b := newTestBatch(t, true)
		released, err := b.Cancel("customer withdrew", "planner")
		require.NoError(t, err)
		assert.Empty(t, released)
	})

	t.Run("reason required", func(t *testing.T) {
		_, err := newTestBatch(t, false).Cancel("", "planner")
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
	})

	t.Run("completed batch cannot be cancelled", func(t *testing.T) {
		b := newTestBatch(t, false)
		_, err := b.Complete(completion(ProducedOutput{SKUID: uuid.New(), Weight: d("120")}))
		require.NoError(t, err)
		_, err = b.Cancel("too late", "planner")
		assert.True(t, shared.HasCode(err, shared.CodeIllegalStateTransition))
	})

	t.Run("cancelled batch cannot be cancelled again", func(t *testing.T) {
		b := newTestBatch(t, false)
		_, err := b.Cancel("first", "planner")
		require.NoError(t, err)
		_, err = b.Cancel("second", "planner")
		assert.True(t, shared.HasCode(err, shared.CodeIllegalStateTransition))
	})
}

func TestBatchStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to BatchStatus
		want     bool
	}{
		{BatchStatusScheduled, BatchStatusInProgress, true},
		{BatchStatusScheduled, BatchStatusCancelled, true},
		{BatchStatusScheduled, BatchStatusCompleted, false},
		{BatchStatusInProgress, BatchStatusCompleted, true},
		{BatchStatusInProgress, BatchStatusCancelled, true},
		{BatchStatusCompleted, BatchStatusCancelled, false},
		{BatchStatusCancelled, BatchStatusInProgress, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBatchNumber(t *testing.T) {
	period := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "0007-03-2026", FormatBatchNumber(7, period))
	assert.Equal(t, "-03-2026", BatchNumberSuffix(period))

	next, err := NextBatchNumber(41, period)
	require.NoError(t, err)
	assert.Equal(t, "0042-03-2026", next)

	_, err = NextBatchNumber(MaxMonthlySequence, period)
	assert.True(t, shared.HasCode(err, shared.CodeBatchNumberExhausted))

	seq, err := ParseBatchSequence("0042-03-2026")
	require.NoError(t, err)
	assert.Equal(t, 42, seq)

	_, err = ParseBatchSequence("42-3-2026")
	assert.Error(t, err)
}

func TestNewActivityLogEntry(t *testing.T) {
	orderID := uuid.New()
	b := newTestBatch(t, false, orderID)
	ev := b.GetDomainEvents()[0].(*BatchScheduledEvent)

	entry := NewActivityLogEntry(ev.EventID(), ev.OccurredAt(), ev.Transition())
	assert.Equal(t, ev.EventID(), entry.ID)
	assert.Equal(t, b.ID, entry.BatchID)
	assert.Equal(t, ActivityScheduled, entry.Action)
	assert.Equal(t, BatchStatusInProgress, entry.NewStatus)

	var md map[string]any
	require.NoError(t, json.Unmarshal([]byte(entry.Metadata), &md))
	assert.Equal(t, "0001-10-2026", md["batch_number"])
	assert.Equal(t, "100", md["planned_quantity"])
	assert.Len(t, md["order_ids"], 1)
}

func TestAllCompleted(t *testing.T) {
	assert.False(t, AllCompleted(nil))
	assert.True(t, AllCompleted([]BatchStatus{BatchStatusCompleted, BatchStatusCompleted}))
	assert.False(t, AllCompleted([]BatchStatus{BatchStatusCompleted, BatchStatusInProgress}))
}
