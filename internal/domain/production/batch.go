package production

import (
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultOutputTolerancePercent is the allowed drift between declared output
// weight and actual batch weight
var DefaultOutputTolerancePercent = decimal.NewFromInt(5)

// ProductionBatch is one manufacturing run of a master product.
// Batches are never deleted; COMPLETED and CANCELLED are kept for audit.
type ProductionBatch struct {
	shared.BaseAggregateRoot
	BatchNumber     string
	MasterProductID uuid.UUID
	ScheduledDate   time.Time
	PlannedQuantity decimal.Decimal
	// Formulation is copied from the active formula when the batch is created
	// and never follows later formula edits.
	Formulation  catalog.FormulationSnapshot
	Status       BatchStatus
	SupervisorID *uuid.UUID
	LabourRoster []string
	Notes        string
	StartedAt    *time.Time
	Actual       ActualProduction
	CompletedAt  *time.Time
	CompletedBy  string
	CancelledAt  *time.Time
	CancelledBy  string
	CancelReason string

	LineItems     []BatchLineItem
	MaterialLines []BatchMaterialLine
}

// ActualProduction holds what was really produced, filled at completion
type ActualProduction struct {
	Quantity        decimal.Decimal
	Density         decimal.Decimal
	Viscosity       decimal.Decimal
	WaterPercentage decimal.Decimal
	StartTime       *time.Time
	EndTime         *time.Time
	ElapsedHours    decimal.Decimal
}

// Weight returns quantity * density
func (a ActualProduction) Weight() decimal.Decimal {
	return a.Quantity.Mul(a.Density)
}

// BatchLineItem links a batch to a SKU and optionally the order it serves
type BatchLineItem struct {
	ID               uuid.UUID
	BatchID          uuid.UUID
	SKUID            uuid.UUID
	OrderID          *uuid.UUID
	PlannedUnits     decimal.Decimal
	PlannedWeight    decimal.Decimal
	ProducedUnits    decimal.Decimal
	ProducedWeight   decimal.Decimal
	FulfillmentType  FulfillmentType
	InventoryApplied bool
}

// BatchMaterialLine links a batch to a raw material it consumes
type BatchMaterialLine struct {
	ID               uuid.UUID
	BatchID          uuid.UUID
	MaterialID       uuid.UUID
	MaterialName     string
	RequiredQuantity decimal.Decimal
	ActualQuantity   decimal.Decimal
	Sequence         int
	WaitingTime      int
	// IsAdditional marks material used beyond the formula, found at completion
	IsAdditional bool
	// Reserved is true while RequiredQuantity is deducted from the pool
	Reserved bool
}

// PlannedLine describes a SKU line requested at scheduling
type PlannedLine struct {
	SKUID   uuid.UUID
	OrderID *uuid.UUID
	Units   decimal.Decimal
	Weight  decimal.Decimal
}

// PlannedMaterial describes a material line requested at scheduling
type PlannedMaterial struct {
	MaterialID   uuid.UUID
	MaterialName string
	Quantity     decimal.Decimal
	Sequence     int
	WaitingTime  int
}

// NewBatchParams holds everything needed to open a batch
type NewBatchParams struct {
	BatchNumber     string
	MasterProductID uuid.UUID
	ScheduledDate   time.Time
	PlannedQuantity decimal.Decimal
	Formulation     catalog.FormulationSnapshot
	SupervisorID    *uuid.UUID
	LabourRoster    []string
	Notes           string
	Lines           []PlannedLine
	Materials       []PlannedMaterial
	Actor           string
	// AutoScheduled batches wait in SCHEDULED for a supervisor; manual ones
	// start immediately and have their materials deducted.
	AutoScheduled bool
}

// NewBatch creates a batch with its line items and material lines
func NewBatch(p NewBatchParams) (*ProductionBatch, error) {
	if p.BatchNumber == "" {
		return nil, shared.NewValidationError("Batch number cannot be empty")
	}
	if p.MasterProductID == uuid.Nil {
		return nil, shared.NewValidationError("Master product ID cannot be empty")
	}
	if !p.PlannedQuantity.IsPositive() {
		return nil, shared.NewValidationError("Planned quantity must be positive")
	}

	b := &ProductionBatch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BatchNumber:       p.BatchNumber,
		MasterProductID:   p.MasterProductID,
		ScheduledDate:     p.ScheduledDate,
		PlannedQuantity:   p.PlannedQuantity,
		Formulation:       p.Formulation,
		SupervisorID:      p.SupervisorID,
		LabourRoster:      p.LabourRoster,
		Notes:             p.Notes,
		Status:            BatchStatusInProgress,
	}
	if b.ScheduledDate.IsZero() {
		b.ScheduledDate = b.CreatedAt
	}
	if p.AutoScheduled {
		b.Status = BatchStatusScheduled
	} else {
		started := b.CreatedAt
		b.StartedAt = &started
	}

	for _, l := range p.Lines {
		if err := b.addLine(l); err != nil {
			return nil, err
		}
	}
	for _, m := range p.Materials {
		if m.MaterialID == uuid.Nil {
			return nil, shared.NewValidationError("Material ID cannot be empty")
		}
		if m.Quantity.IsNegative() {
			return nil, shared.NewValidationError("Material quantity cannot be negative")
		}
		b.MaterialLines = append(b.MaterialLines, BatchMaterialLine{
			ID:               uuid.New(),
			BatchID:          b.ID,
			MaterialID:       m.MaterialID,
			MaterialName:     m.MaterialName,
			RequiredQuantity: m.Quantity,
			ActualQuantity:   decimal.Zero,
			Sequence:         m.Sequence,
			WaitingTime:      m.WaitingTime,
			Reserved:         !p.AutoScheduled,
		})
	}

	action := ActivityScheduled
	if p.AutoScheduled {
		action = ActivityAutoScheduled
	}
	b.AddDomainEvent(&BatchScheduledEvent{
		BaseDomainEvent: newTransitionBase(EventTypeBatchScheduled, b.ID),
		BatchTransition: b.transition(action, "", p.Actor, p.Notes, map[string]any{
			"planned_quantity": p.PlannedQuantity.String(),
		}),
	})
	return b, nil
}

func (b *ProductionBatch) addLine(l PlannedLine) error {
	if l.SKUID == uuid.Nil {
		return shared.NewValidationError("SKU ID cannot be empty")
	}
	if l.Units.IsNegative() || l.Weight.IsNegative() {
		return shared.NewValidationError("Planned units and weight cannot be negative")
	}
	fulfillment := FulfillmentMakeToStock
	if l.OrderID != nil {
		fulfillment = FulfillmentMakeToOrder
	}
	b.LineItems = append(b.LineItems, BatchLineItem{
		ID:              uuid.New(),
		BatchID:         b.ID,
		SKUID:           l.SKUID,
		OrderID:         l.OrderID,
		PlannedUnits:    l.Units,
		PlannedWeight:   l.Weight,
		ProducedUnits:   decimal.Zero,
		ProducedWeight:  decimal.Zero,
		FulfillmentType: fulfillment,
	})
	return nil
}

// OrderIDs returns the distinct orders fed by this batch in line order
func (b *ProductionBatch) OrderIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, l := range b.LineItems {
		if l.OrderID == nil {
			continue
		}
		if _, ok := seen[*l.OrderID]; ok {
			continue
		}
		seen[*l.OrderID] = struct{}{}
		ids = append(ids, *l.OrderID)
	}
	return ids
}

// ReservedMaterials returns the material lines currently deducted from the pool
func (b *ProductionBatch) ReservedMaterials() []BatchMaterialLine {
	out := make([]BatchMaterialLine, 0, len(b.MaterialLines))
	for _, m := range b.MaterialLines {
		if m.Reserved {
			out = append(out, m)
		}
	}
	return out
}

// Start moves a SCHEDULED batch into production. The planned material lines
// become reserved; the caller deducts them from the pool in the same unit of work.
func (b *ProductionBatch) Start(supervisorID *uuid.UUID, actor string) ([]BatchMaterialLine, error) {
	if !b.Status.CanTransitionTo(BatchStatusInProgress) {
		return nil, shared.NewIllegalTransitionError(
			"Batch %s cannot be started from %s", b.BatchNumber, b.Status)
	}
	if supervisorID != nil {
		b.SupervisorID = supervisorID
	}
	if b.SupervisorID == nil {
		return nil, shared.NewValidationError("Batch %s needs a supervisor before it can start", b.BatchNumber)
	}

	toDeduct := make([]BatchMaterialLine, 0, len(b.MaterialLines))
	for i := range b.MaterialLines {
		if b.MaterialLines[i].Reserved {
			continue
		}
		b.MaterialLines[i].Reserved = true
		toDeduct = append(toDeduct, b.MaterialLines[i])
	}

	prev := b.Status
	now := time.Now().UTC()
	b.Status = BatchStatusInProgress
	b.StartedAt = &now
	b.Touch()

	b.AddDomainEvent(&BatchStartedEvent{
		BaseDomainEvent: newTransitionBase(EventTypeBatchStarted, b.ID),
		BatchTransition: b.transition(ActivityStarted, prev, actor, "", nil),
	})
	return toDeduct, nil
}

// ConsumedMaterial is a material reported at completion
type ConsumedMaterial struct {
	MaterialID   uuid.UUID
	MaterialName string
	Quantity     decimal.Decimal
	IsAdditional bool
	Sequence     int
	WaitingTime  int
}

// ProducedOutput is a SKU output reported at completion
type ProducedOutput struct {
	SKUID  uuid.UUID
	Units  decimal.Decimal
	Weight decimal.Decimal
}

// Completion carries the actuals recorded when a batch finishes
type Completion struct {
	Quantity         decimal.Decimal
	Density          decimal.Decimal
	Viscosity        decimal.Decimal
	WaterPercentage  decimal.Decimal
	StartTime        *time.Time
	EndTime          time.Time
	Materials        []ConsumedMaterial
	Outputs          []ProducedOutput
	Actor            string
	Notes            string
	TolerancePercent decimal.Decimal
}

// OutputCredit is stock to add to a SKU after completion
type OutputCredit struct {
	SKUID  uuid.UUID
	Units  decimal.Decimal
	Weight decimal.Decimal
}

// CompletionOutcome lists the inventory effects the caller must apply
type CompletionOutcome struct {
	Credits             []OutputCredit
	AdditionalMaterials []BatchMaterialLine
}

// Complete records actual production and closes the batch.
// Only additional materials are returned for deduction; planned lines were
// deducted when the batch started. SKUs whose inventory was already applied
// are not credited again.
func (b *ProductionBatch) Complete(c Completion) (*CompletionOutcome, error) {
	if !b.Status.CanTransitionTo(BatchStatusCompleted) {
		return nil, shared.NewIllegalTransitionError(
			"Batch %s cannot be completed from %s", b.BatchNumber, b.Status)
	}
	if !c.Quantity.IsPositive() {
		return nil, shared.NewValidationError("Actual quantity must be positive")
	}
	if !c.Density.IsPositive() {
		return nil, shared.NewValidationError("Actual density must be positive")
	}
	if len(c.Outputs) == 0 {
		return nil, shared.NewValidationError("At least one output SKU is required")
	}

	start := c.StartTime
	if start == nil {
		start = b.StartedAt
	}
	if start == nil {
		return nil, shared.NewValidationError("Batch %s has no start time", b.BatchNumber)
	}
	if c.EndTime.Before(*start) {
		return nil, shared.NewValidationError("End time cannot be before start time")
	}

	outputIDs, outputs, err := mergeOutputs(c.Outputs)
	if err != nil {
		return nil, err
	}
	if err := checkOutputTolerance(c, outputs); err != nil {
		return nil, err
	}

	additional := make([]BatchMaterialLine, 0)
	for _, m := range c.Materials {
		if m.Quantity.IsNegative() {
			return nil, shared.NewValidationError("Material quantity cannot be negative")
		}
		if m.IsAdditional {
			line := BatchMaterialLine{
				ID:               uuid.New(),
				BatchID:          b.ID,
				MaterialID:       m.MaterialID,
				MaterialName:     m.MaterialName,
				RequiredQuantity: m.Quantity,
				ActualQuantity:   m.Quantity,
				Sequence:         m.Sequence,
				WaitingTime:      m.WaitingTime,
				IsAdditional:     true,
				Reserved:         true,
			}
			b.MaterialLines = append(b.MaterialLines, line)
			additional = append(additional, line)
			continue
		}
		idx := b.materialLineIndex(m.MaterialID)
		if idx < 0 {
			return nil, shared.NewValidationError(
				"Material %s is not part of batch %s; flag it as additional", m.MaterialID, b.BatchNumber)
		}
		b.MaterialLines[idx].ActualQuantity = m.Quantity
	}

	credits := make([]OutputCredit, 0, len(outputIDs))
	for _, skuID := range outputIDs {
		out := outputs[skuID]
		if b.applyOutput(out) {
			credits = append(credits, OutputCredit{SKUID: skuID, Units: out.Units, Weight: out.Weight})
		}
	}

	end := c.EndTime.UTC()
	startUTC := start.UTC()
	b.Actual = ActualProduction{
		Quantity:        c.Quantity,
		Density:         c.Density,
		Viscosity:       c.Viscosity,
		WaterPercentage: c.WaterPercentage,
		StartTime:       &startUTC,
		EndTime:         &end,
		ElapsedHours:    ElapsedHours(startUTC, end),
	}

	prev := b.Status
	now := time.Now().UTC()
	b.Status = BatchStatusCompleted
	b.CompletedAt = &now
	b.CompletedBy = c.Actor
	b.Touch()

	b.AddDomainEvent(&BatchCompletedEvent{
		BaseDomainEvent: newTransitionBase(EventTypeBatchCompleted, b.ID),
		BatchTransition: b.transition(ActivityCompleted, prev, c.Actor, c.Notes, map[string]any{
			"actual_quantity": c.Quantity.String(),
			"actual_weight":   b.Actual.Weight().String(),
			"elapsed_hours":   b.Actual.ElapsedHours.String(),
		}),
	})

	return &CompletionOutcome{Credits: credits, AdditionalMaterials: additional}, nil
}

// applyOutput writes produced figures onto the SKU's lines. It returns false
// when the SKU's inventory was already applied.
func (b *ProductionBatch) applyOutput(out ProducedOutput) bool {
	first := -1
	applied := false
	for i := range b.LineItems {
		if b.LineItems[i].SKUID != out.SKUID {
			continue
		}
		if first < 0 {
			first = i
		}
		if b.LineItems[i].InventoryApplied {
			applied = true
		}
	}
	if applied {
		return false
	}
	if first < 0 {
		b.LineItems = append(b.LineItems, BatchLineItem{
			ID:              uuid.New(),
			BatchID:         b.ID,
			SKUID:           out.SKUID,
			PlannedUnits:    decimal.Zero,
			PlannedWeight:   decimal.Zero,
			FulfillmentType: FulfillmentMakeToStock,
		})
		first = len(b.LineItems) - 1
	}
	for i := range b.LineItems {
		if b.LineItems[i].SKUID != out.SKUID {
			continue
		}
		if i == first {
			b.LineItems[i].ProducedUnits = out.Units
			b.LineItems[i].ProducedWeight = out.Weight
		}
		b.LineItems[i].InventoryApplied = true
	}
	return true
}

func (b *ProductionBatch) materialLineIndex(materialID uuid.UUID) int {
	for i, m := range b.MaterialLines {
		if m.MaterialID == materialID && !m.IsAdditional {
			return i
		}
	}
	return -1
}

// Cancel closes the batch and returns the material lines whose reservation
// must be given back to the pool.
func (b *ProductionBatch) Cancel(reason, actor string) ([]BatchMaterialLine, error) {
	if reason == "" {
		return nil, shared.NewValidationError("Cancel reason is required")
	}
	if !b.Status.CanTransitionTo(BatchStatusCancelled) {
		return nil, shared.NewIllegalTransitionError(
			"Batch %s cannot be cancelled from %s", b.BatchNumber, b.Status)
	}

	released := make([]BatchMaterialLine, 0, len(b.MaterialLines))
	for i := range b.MaterialLines {
		if !b.MaterialLines[i].Reserved {
			continue
		}
		released = append(released, b.MaterialLines[i])
		b.MaterialLines[i].Reserved = false
	}

	prev := b.Status
	now := time.Now().UTC()
	b.Status = BatchStatusCancelled
	b.CancelledAt = &now
	b.CancelledBy = actor
	b.CancelReason = reason
	b.Touch()

	b.AddDomainEvent(&BatchCancelledEvent{
		BaseDomainEvent: newTransitionBase(EventTypeBatchCancelled, b.ID),
		BatchTransition: b.transition(ActivityCancelled, prev, actor, reason, map[string]any{
			"released_lines": len(released),
		}),
		Reason: reason,
	})
	return released, nil
}

func (b *ProductionBatch) transition(action ActivityAction, prev BatchStatus, actor, notes string, metadata map[string]any) BatchTransition {
	return BatchTransition{
		BatchID:        b.ID,
		BatchNumber:    b.BatchNumber,
		Action:         action,
		PreviousStatus: prev,
		NewStatus:      b.Status,
		Actor:          actor,
		Notes:          notes,
		OrderIDs:       b.OrderIDs(),
		Metadata:       metadata,
	}
}

// ElapsedHours returns the hours between start and end rounded to 2 places
func ElapsedHours(start, end time.Time) decimal.Decimal {
	if end.Before(start) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(end.Sub(start).Hours()).Round(2)
}

func mergeOutputs(outputs []ProducedOutput) ([]uuid.UUID, map[uuid.UUID]ProducedOutput, error) {
	ids := make([]uuid.UUID, 0, len(outputs))
	merged := make(map[uuid.UUID]ProducedOutput, len(outputs))
	for _, o := range outputs {
		if o.SKUID == uuid.Nil {
			return nil, nil, shared.NewValidationError("Output SKU ID cannot be empty")
		}
		if o.Units.IsNegative() || o.Weight.IsNegative() {
			return nil, nil, shared.NewValidationError("Output units and weight cannot be negative")
		}
		cur, ok := merged[o.SKUID]
		if !ok {
			ids = append(ids, o.SKUID)
			cur = ProducedOutput{SKUID: o.SKUID}
		}
		cur.Units = cur.Units.Add(o.Units)
		cur.Weight = cur.Weight.Add(o.Weight)
		merged[o.SKUID] = cur
	}
	return ids, merged, nil
}

// checkOutputTolerance rejects completions whose declared output weight drifts
// more than the tolerance from quantity * density
func checkOutputTolerance(c Completion, outputs map[uuid.UUID]ProducedOutput) error {
	tolerance := c.TolerancePercent
	if !tolerance.IsPositive() {
		tolerance = DefaultOutputTolerancePercent
	}
	expected := c.Quantity.Mul(c.Density)
	declared := decimal.Zero
	for _, o := range outputs {
		declared = declared.Add(o.Weight)
	}
	allowed := expected.Mul(tolerance).Div(decimal.NewFromInt(100))
	if declared.Sub(expected).Abs().GreaterThan(allowed) {
		return shared.NewDomainError(shared.CodeOutputOutOfTolerance,
			"Declared output weight "+declared.StringFixed(2)+" is outside "+tolerance.String()+
				"% of batch weight "+expected.StringFixed(2)).
			WithDetails(map[string]string{
				"declared_weight":   declared.String(),
				"expected_weight":   expected.String(),
				"tolerance_percent": tolerance.String(),
			})
	}
	return nil
}
