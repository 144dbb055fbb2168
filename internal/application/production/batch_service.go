package production

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/paintworks/backend/internal/domain/planning"
	"github.com/paintworks/backend/internal/domain/production"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/event"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Stage names reported with stock rejections
const (
	stageSchedule = "schedule"
	stageStart    = "start"
	stageComplete = "complete"
)

const idempotencyPrefix = "idempotency:batches:"

// Config tunes batch operations
type Config struct {
	OutputTolerancePercent decimal.Decimal
	BatchNumberMaxAttempts int
	// IdempotencyTTL is how long an Idempotency-Key replays its first result
	IdempotencyTTL time.Duration
}

// DefaultConfig returns the default batch configuration
func DefaultConfig() Config {
	return Config{
		OutputTolerancePercent: production.DefaultOutputTolerancePercent,
		BatchNumberMaxAttempts: 5,
		IdempotencyTTL:         24 * time.Hour,
	}
}

// Metrics records batch lifecycle measurements
type Metrics interface {
	BatchScheduled(ctx context.Context, auto bool, took time.Duration)
	BatchStarted(ctx context.Context)
	BatchCompleted(ctx context.Context, weight float64)
	BatchCancelled(ctx context.Context)
	StockRejected(ctx context.Context, stage string)
	PartialFailure(ctx context.Context, stage string)
	BatchNumberCollision(ctx context.Context)
}

// OutboxDispatcher delivers outbox entries right after their transaction committed
type OutboxDispatcher interface {
	Dispatch(ctx context.Context, entries []*shared.OutboxEntry) []event.DispatchFailure
}

// BatchService runs the production batch lifecycle. Stock checks, the batch
// rows, stock movements and outbox entries of one operation commit together;
// order updates and the activity log follow from the outbox.
type BatchService struct {
	scope       TransactionScope
	batches     production.BatchRepository
	activity    production.ActivityLogRepository
	masters     catalog.MasterProductRepository
	skus        catalog.SKURepository
	orders      order.Repository
	resolver    *planning.Resolver
	checker     *planning.Checker
	dispatcher  OutboxDispatcher
	idempotency shared.IdempotencyStore
	metrics     Metrics
	config      Config
	logger      *zap.Logger
	now         func() time.Time
}

// NewBatchService creates a new BatchService
func NewBatchService(
	scope TransactionScope,
	batches production.BatchRepository,
	activity production.ActivityLogRepository,
	masters catalog.MasterProductRepository,
	skus catalog.SKURepository,
	orders order.Repository,
	resolver *planning.Resolver,
	checker *planning.Checker,
	dispatcher OutboxDispatcher,
	config Config,
	logger *zap.Logger,
) *BatchService {
	if config.BatchNumberMaxAttempts <= 0 {
		config.BatchNumberMaxAttempts = DefaultConfig().BatchNumberMaxAttempts
	}
	if config.IdempotencyTTL <= 0 {
		config.IdempotencyTTL = DefaultConfig().IdempotencyTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		scope:      scope,
		batches:    batches,
		activity:   activity,
		masters:    masters,
		skus:       skus,
		orders:     orders,
		resolver:   resolver,
		checker:    checker,
		dispatcher: dispatcher,
		metrics:    noopMetrics{},
		config:     config,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics sets the lifecycle metrics recorder
func (s *BatchService) SetMetrics(metrics Metrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// SetIdempotencyStore enables Idempotency-Key replay for schedule requests
func (s *BatchService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// ScheduleBatch opens a batch that goes straight into production. Supplied
// materials are checked against stock before anything is written and are
// deducted in the same transaction that creates the batch.
func (s *BatchService) ScheduleBatch(ctx context.Context, actor string, req ScheduleBatchRequest) (*BatchResponse, error) {
	started := time.Now()
	if replayed, ok := s.replay(ctx, "schedule:", req.IdempotencyKey); ok && len(replayed) == 1 {
		return &replayed[0], nil
	}
	if !req.PlannedQuantity.IsPositive() {
		return nil, shared.NewValidationError("Planned quantity must be positive")
	}

	master, err := s.masters.FindByID(ctx, req.MasterProductID)
	if err != nil {
		return nil, err
	}
	if err := master.EnsureBatchTarget(); err != nil {
		return nil, err
	}
	formula, err := s.resolver.ActiveFormula(ctx, master.ID)
	if err != nil {
		return nil, err
	}

	lines, err := s.plannedLines(ctx, master, formula, req.OrderIDs)
	if err != nil {
		return nil, err
	}
	materials, demands, err := s.plannedMaterials(ctx, req.Materials)
	if err != nil {
		return nil, err
	}

	shortfalls, err := s.checker.CheckMaterials(ctx, demands)
	if err != nil {
		return nil, err
	}
	if len(shortfalls) > 0 {
		s.metrics.StockRejected(ctx, stageSchedule)
		return nil, inventory.NewInsufficientStockError(shortfalls)
	}

	params := production.NewBatchParams{
		MasterProductID: master.ID,
		PlannedQuantity: req.PlannedQuantity,
		Formulation:     snapshotFor(formula, master),
		SupervisorID:    req.SupervisorID,
		LabourRoster:    req.LabourRoster,
		Notes:           req.Notes,
		Lines:           lines,
		Materials:       materials,
		Actor:           actor,
	}
	if req.ScheduledDate != nil {
		params.ScheduledDate = req.ScheduledDate.UTC()
	}

	var batch *production.ProductionBatch
	var entries []*shared.OutboxEntry
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := s.lockAndCheck(ctx, repos, demands, stageSchedule); err != nil {
			return err
		}
		b, err := s.createBatch(ctx, repos, params)
		if err != nil {
			return err
		}
		if err := s.moveMaterials(ctx, repos, b, b.ReservedMaterials(), inventory.TransactionTypeBatchConsumption, actor); err != nil {
			return err
		}
		entries, err = repos.Outbox().Save(ctx, b.GetDomainEvents()...)
		if err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	batch.ClearDomainEvents()

	s.logger.Info("Batch scheduled",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.String("master_product_id", master.ID.String()),
		zap.Int("orders", len(batch.OrderIDs())),
		zap.Int("materials", len(batch.MaterialLines)),
	)
	s.dispatch(ctx, batch.ID, entries)
	s.metrics.BatchScheduled(ctx, false, time.Since(started))
	s.remember(ctx, "schedule:", req.IdempotencyKey, batch)

	resp := ToBatchResponse(batch)
	return &resp, nil
}

// AutoScheduleOrder plans one accepted order: a SCHEDULED batch per master
// product among its lines, sized to the order quantity not covered by free
// stock, with materials taken from the active formula. Nothing is deducted
// until a batch is started.
func (s *BatchService) AutoScheduleOrder(ctx context.Context, actor string, req AutoScheduleRequest) ([]BatchResponse, error) {
	started := time.Now()
	if replayed, ok := s.replay(ctx, "auto:", req.IdempotencyKey); ok {
		return replayed, nil
	}

	o, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.IsEligibleForPlanning() {
		return nil, shared.NewIllegalTransitionError(
			"Order %s is %s and cannot be auto-scheduled", o.OrderNumber, o.Status)
	}
	if req.ExpectedDeliveryDate != nil {
		date := req.ExpectedDeliveryDate.UTC()
		if err := o.UpdateDelivery(&date, ""); err != nil {
			return nil, err
		}
	}

	plans, err := s.autoPlans(ctx, o, actor)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, shared.NewValidationError(
			"Order %s is fully covered by finished-good stock", o.OrderNumber)
	}

	var batches []*production.ProductionBatch
	var entries []*shared.OutboxEntry
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if req.ExpectedDeliveryDate != nil {
			if err := repos.Orders().Save(ctx, o); err != nil {
				return err
			}
		}
		created := make([]*production.ProductionBatch, 0, len(plans))
		var events []shared.DomainEvent
		for _, p := range plans {
			b, err := s.createBatch(ctx, repos, p)
			if err != nil {
				return err
			}
			created = append(created, b)
			events = append(events, b.GetDomainEvents()...)
		}
		saved, err := repos.Outbox().Save(ctx, events...)
		if err != nil {
			return err
		}
		batches, entries = created, saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	resps := make([]BatchResponse, 0, len(batches))
	for _, b := range batches {
		b.ClearDomainEvents()
		s.logger.Info("Batch auto-scheduled",
			zap.String("batch_id", b.ID.String()),
			zap.String("batch_number", b.BatchNumber),
			zap.String("order_id", o.ID.String()),
		)
		resps = append(resps, ToBatchResponse(b))
	}
	s.dispatch(ctx, batches[0].ID, entries)
	s.metrics.BatchScheduled(ctx, true, time.Since(started))
	s.remember(ctx, "auto:", req.IdempotencyKey, batches...)
	return resps, nil
}

// StartBatch moves a SCHEDULED batch into production and deducts its materials
func (s *BatchService) StartBatch(ctx context.Context, actor string, batchID uuid.UUID, req StartBatchRequest) (*BatchResponse, error) {
	var batch *production.ProductionBatch
	var entries []*shared.OutboxEntry
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.Batches().FindByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		toDeduct, err := b.Start(req.SupervisorID, actor)
		if err != nil {
			return err
		}
		if err := s.lockAndCheck(ctx, repos, materialDemands(toDeduct), stageStart); err != nil {
			return err
		}
		if err := s.moveMaterials(ctx, repos, b, toDeduct, inventory.TransactionTypeBatchConsumption, actor); err != nil {
			return err
		}
		if err := repos.Batches().Save(ctx, b); err != nil {
			return err
		}
		entries, err = repos.Outbox().Save(ctx, b.GetDomainEvents()...)
		if err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	batch.ClearDomainEvents()

	s.logger.Info("Batch started",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
	)
	s.dispatch(ctx, batch.ID, entries)
	s.metrics.BatchStarted(ctx)

	resp := ToBatchResponse(batch)
	return &resp, nil
}

// CompleteBatch records actual production, deducts additional materials,
// credits the produced SKUs and debits their packaging
func (s *BatchService) CompleteBatch(ctx context.Context, actor string, batchID uuid.UUID, req CompleteBatchRequest) (*BatchResponse, error) {
	current, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, shared.NewIllegalTransitionError(
			"Batch %s cannot be completed from %s", current.BatchNumber, current.Status)
	}

	skuByID, err := s.outputSKUs(ctx, current, req.Outputs)
	if err != nil {
		return nil, err
	}
	consumed, additional, err := s.consumedMaterials(ctx, req.Materials)
	if err != nil {
		return nil, err
	}
	shortfalls, err := s.checker.CheckMaterials(ctx, additional)
	if err != nil {
		return nil, err
	}
	if len(shortfalls) > 0 {
		s.metrics.StockRejected(ctx, stageComplete)
		return nil, inventory.NewInsufficientStockError(shortfalls)
	}

	completion := production.Completion{
		Quantity:         req.ActualQuantity,
		Density:          req.ActualDensity,
		Viscosity:        req.ActualViscosity,
		WaterPercentage:  req.ActualWaterPercentage,
		StartTime:        req.StartTime,
		EndTime:          s.now(),
		Materials:        consumed,
		Outputs:          make([]production.ProducedOutput, 0, len(req.Outputs)),
		Actor:            actor,
		Notes:            req.Notes,
		TolerancePercent: s.config.OutputTolerancePercent,
	}
	if req.EndTime != nil {
		completion.EndTime = *req.EndTime
	}
	for _, out := range req.Outputs {
		completion.Outputs = append(completion.Outputs, production.ProducedOutput{
			SKUID:  out.SKUID,
			Units:  out.Units,
			Weight: out.Weight,
		})
	}

	var batch *production.ProductionBatch
	var entries []*shared.OutboxEntry
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.Batches().FindByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		outcome, err := b.Complete(completion)
		if err != nil {
			return err
		}
		if err := s.lockAndCheck(ctx, repos, materialDemands(outcome.AdditionalMaterials), stageComplete); err != nil {
			return err
		}
		if err := s.moveMaterials(ctx, repos, b, outcome.AdditionalMaterials, inventory.TransactionTypeAdditionalConsumption, actor); err != nil {
			return err
		}
		if err := s.creditOutputs(ctx, repos, b, outcome.Credits, skuByID, actor); err != nil {
			return err
		}
		if err := repos.Batches().Save(ctx, b); err != nil {
			return err
		}
		entries, err = repos.Outbox().Save(ctx, b.GetDomainEvents()...)
		if err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	batch.ClearDomainEvents()

	s.logger.Info("Batch completed",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.String("actual_weight", batch.Actual.Weight().String()),
		zap.String("elapsed_hours", batch.Actual.ElapsedHours.String()),
	)
	s.dispatch(ctx, batch.ID, entries)
	s.metrics.BatchCompleted(ctx, batch.Actual.Weight().InexactFloat64())

	resp := ToBatchResponse(batch)
	return &resp, nil
}

// CancelBatch cancels a batch that has not completed and gives its deducted
// materials back to the pool
func (s *BatchService) CancelBatch(ctx context.Context, actor string, batchID uuid.UUID, req CancelBatchRequest) (*BatchResponse, error) {
	var batch *production.ProductionBatch
	var entries []*shared.OutboxEntry
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.Batches().FindByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		released, err := b.Cancel(strings.TrimSpace(req.Reason), actor)
		if err != nil {
			return err
		}
		if err := s.moveMaterials(ctx, repos, b, released, inventory.TransactionTypeBatchRelease, actor); err != nil {
			return err
		}
		if err := repos.Batches().Save(ctx, b); err != nil {
			return err
		}
		entries, err = repos.Outbox().Save(ctx, b.GetDomainEvents()...)
		if err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	batch.ClearDomainEvents()

	s.logger.Info("Batch cancelled",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.String("reason", batch.CancelReason),
	)
	s.dispatch(ctx, batch.ID, entries)
	s.metrics.BatchCancelled(ctx)

	resp := ToBatchResponse(batch)
	return &resp, nil
}

// GetBatch retrieves a batch with its lines
func (s *BatchService) GetBatch(ctx context.Context, batchID uuid.UUID) (*BatchResponse, error) {
	b, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	resp := ToBatchResponse(b)
	return &resp, nil
}

// ListBatches retrieves a page of batches
func (s *BatchService) ListBatches(ctx context.Context, filter BatchListFilter) ([]BatchResponse, int64, error) {
	domainFilter := production.BatchFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		}.Normalized("created_at", "desc"),
		ScheduledFrom: filter.ScheduledFrom,
		ScheduledTo:   filter.ScheduledTo,
	}
	if filter.MasterProductID != "" {
		masterID, err := uuid.Parse(filter.MasterProductID)
		if err != nil {
			return nil, 0, shared.NewValidationError("Invalid master product ID %q", filter.MasterProductID)
		}
		domainFilter.MasterProductID = &masterID
	}
	if filter.Status != "" {
		status := production.BatchStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("Invalid batch status %q", filter.Status)
		}
		domainFilter.Status = &status
	}

	batches, total, err := s.batches.List(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToBatchResponses(batches), total, nil
}

// ListActivity returns the audit trail of a batch, oldest first
func (s *BatchService) ListActivity(ctx context.Context, batchID uuid.UUID) ([]ActivityResponse, error) {
	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		return nil, err
	}
	entries, err := s.activity.FindByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return toActivityResponses(entries), nil
}

// plannedLines links the requested orders through their lines for the master
// product, or fans out one empty line per SKU for a stock-building run
func (s *BatchService) plannedLines(
	ctx context.Context,
	master *catalog.MasterProduct,
	formula *catalog.Formula,
	orderIDs []uuid.UUID,
) ([]production.PlannedLine, error) {
	skus, err := s.skus.FindByMasterProduct(ctx, master.ID)
	if err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		lines := make([]production.PlannedLine, 0, len(skus))
		for _, sku := range skus {
			lines = append(lines, production.PlannedLine{
				SKUID:  sku.ID,
				Units:  decimal.Zero,
				Weight: decimal.Zero,
			})
		}
		return lines, nil
	}

	skuByID := make(map[uuid.UUID]*catalog.SKU, len(skus))
	for i := range skus {
		skuByID[skus[i].ID] = &skus[i]
	}

	ids := distinctIDs(orderIDs)
	orders, err := s.orders.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	orderByID := make(map[uuid.UUID]*order.Order, len(orders))
	for i := range orders {
		orderByID[orders[i].ID] = &orders[i]
	}

	var lines []production.PlannedLine
	for _, id := range ids {
		o, ok := orderByID[id]
		if !ok {
			return nil, shared.NewNotFoundError("Order", id)
		}
		if !o.CanLinkBatch() {
			return nil, shared.NewIllegalTransitionError(
				"Order %s is %s and cannot be linked to a batch", o.OrderNumber, o.Status)
		}
		skuIDs, quantities := o.SKUQuantities()
		matched := false
		for _, skuID := range skuIDs {
			sku, ok := skuByID[skuID]
			if !ok {
				continue
			}
			density, _ := catalog.ResolveDensity(sku, formula, master)
			orderID := o.ID
			units := quantities[skuID]
			lines = append(lines, production.PlannedLine{
				SKUID:   sku.ID,
				OrderID: &orderID,
				Units:   units,
				Weight:  sku.WeightFor(units, density),
			})
			matched = true
		}
		if !matched {
			return nil, shared.NewValidationError(
				"Order %s has no lines for %s", o.OrderNumber, master.Name)
		}
	}
	return lines, nil
}

// plannedMaterials validates requested material lines and returns them with
// the matching stock demands
func (s *BatchService) plannedMaterials(
	ctx context.Context,
	reqs []BatchMaterialRequest,
) ([]production.PlannedMaterial, []inventory.MaterialDemand, error) {
	if len(reqs) == 0 {
		return nil, nil, nil
	}
	ids := make([]uuid.UUID, 0, len(reqs))
	for _, m := range reqs {
		ids = append(ids, m.MaterialID)
	}
	masterByID, err := s.materialMasters(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	materials := make([]production.PlannedMaterial, 0, len(reqs))
	demands := make([]inventory.MaterialDemand, 0, len(reqs))
	for i, m := range reqs {
		if m.Quantity.IsNegative() {
			return nil, nil, shared.NewValidationError("Material quantity cannot be negative")
		}
		name := masterByID[m.MaterialID].Name
		seq := m.Sequence
		if seq == 0 {
			seq = i + 1
		}
		materials = append(materials, production.PlannedMaterial{
			MaterialID:   m.MaterialID,
			MaterialName: name,
			Quantity:     m.Quantity,
			Sequence:     seq,
			WaitingTime:  m.WaitingTime,
		})
		demands = append(demands, inventory.MaterialDemand{
			MaterialID:   m.MaterialID,
			MaterialName: name,
			Required:     m.Quantity,
		})
	}
	return materials, demands, nil
}

// consumedMaterials converts completion material reports and returns the
// stock demands of the additional ones
func (s *BatchService) consumedMaterials(
	ctx context.Context,
	reqs []ConsumedMaterialRequest,
) ([]production.ConsumedMaterial, []inventory.MaterialDemand, error) {
	if len(reqs) == 0 {
		return nil, nil, nil
	}
	ids := make([]uuid.UUID, 0, len(reqs))
	for _, m := range reqs {
		ids = append(ids, m.MaterialID)
	}
	masterByID, err := s.materialMasters(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	consumed := make([]production.ConsumedMaterial, 0, len(reqs))
	var additional []inventory.MaterialDemand
	for _, m := range reqs {
		name := masterByID[m.MaterialID].Name
		consumed = append(consumed, production.ConsumedMaterial{
			MaterialID:   m.MaterialID,
			MaterialName: name,
			Quantity:     m.Quantity,
			IsAdditional: m.IsAdditional,
			Sequence:     m.Sequence,
			WaitingTime:  m.WaitingTime,
		})
		if m.IsAdditional {
			additional = append(additional, inventory.MaterialDemand{
				MaterialID:   m.MaterialID,
				MaterialName: name,
				Required:     m.Quantity,
			})
		}
	}
	return consumed, additional, nil
}

func (s *BatchService) materialMasters(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.MasterProduct, error) {
	masters, err := s.masters.FindByIDs(ctx, distinctIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.MasterProduct, len(masters))
	for i := range masters {
		byID[masters[i].ID] = &masters[i]
	}
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, shared.NewNotFoundError("Material", id)
		}
		if m.Type == catalog.ProductTypeFinishedGood {
			return nil, shared.NewValidationError(
				"%s is a finished good and cannot be consumed as a material", m.Name)
		}
	}
	return byID, nil
}

// outputSKUs loads the SKUs reported at completion; each must package the
// batch's master product
func (s *BatchService) outputSKUs(
	ctx context.Context,
	batch *production.ProductionBatch,
	outputs []ProducedOutputRequest,
) (map[uuid.UUID]*catalog.SKU, error) {
	ids := make([]uuid.UUID, 0, len(outputs))
	for _, out := range outputs {
		ids = append(ids, out.SKUID)
	}
	skus, err := s.skus.FindByIDs(ctx, distinctIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.SKU, len(skus))
	for i := range skus {
		byID[skus[i].ID] = &skus[i]
	}
	for _, id := range ids {
		sku, ok := byID[id]
		if !ok {
			return nil, shared.NewNotFoundError("SKU", id)
		}
		if sku.MasterProductID != batch.MasterProductID {
			return nil, shared.NewValidationError(
				"SKU %s does not package the product of batch %s", sku.Code, batch.BatchNumber)
		}
	}
	return byID, nil
}

// autoPlans builds one batch plan per master product of the order
func (s *BatchService) autoPlans(ctx context.Context, o *order.Order, actor string) ([]production.NewBatchParams, error) {
	skuIDs, quantities := o.SKUQuantities()
	skus, err := s.skus.FindByIDs(ctx, skuIDs)
	if err != nil {
		return nil, err
	}
	skuByID := make(map[uuid.UUID]*catalog.SKU, len(skus))
	for i := range skus {
		skuByID[skus[i].ID] = &skus[i]
	}

	var masterOrder []uuid.UUID
	grouped := make(map[uuid.UUID][]*catalog.SKU)
	for _, id := range skuIDs {
		sku, ok := skuByID[id]
		if !ok {
			return nil, shared.NewNotFoundError("SKU", id)
		}
		if _, seen := grouped[sku.MasterProductID]; !seen {
			masterOrder = append(masterOrder, sku.MasterProductID)
		}
		grouped[sku.MasterProductID] = append(grouped[sku.MasterProductID], sku)
	}

	plans := make([]production.NewBatchParams, 0, len(masterOrder))
	for _, masterID := range masterOrder {
		master, err := s.masters.FindByID(ctx, masterID)
		if err != nil {
			return nil, err
		}
		if err := master.EnsureBatchTarget(); err != nil {
			return nil, err
		}
		formula, err := s.resolver.ActiveFormula(ctx, masterID)
		if err != nil {
			return nil, err
		}
		if formula == nil {
			return nil, shared.ErrNoBOMConfigured.WithDetails(map[string]interface{}{
				"master_product_id": masterID,
			})
		}

		planned := decimal.Zero
		var lines []production.PlannedLine
		for _, sku := range grouped[masterID] {
			gap := quantities[sku.ID].Sub(sku.FreeQuantity())
			if !gap.IsPositive() {
				continue
			}
			density, _ := catalog.ResolveDensity(sku, formula, master)
			orderID := o.ID
			lines = append(lines, production.PlannedLine{
				SKUID:   sku.ID,
				OrderID: &orderID,
				Units:   gap,
				Weight:  sku.WeightFor(gap, density),
			})
			planned = planned.Add(gap.Mul(sku.PackageCapacity))
		}
		if !planned.IsPositive() {
			continue
		}

		reqs, err := s.resolver.Explode(ctx, formula, planned)
		if err != nil {
			return nil, err
		}
		materials := make([]production.PlannedMaterial, 0, len(reqs))
		for _, r := range reqs {
			materials = append(materials, production.PlannedMaterial{
				MaterialID:   r.MaterialID,
				MaterialName: r.MaterialName,
				Quantity:     r.RequiredQuantity,
				Sequence:     r.Sequence,
				WaitingTime:  r.WaitingTime,
			})
		}

		plans = append(plans, production.NewBatchParams{
			MasterProductID: masterID,
			PlannedQuantity: planned,
			Formulation:     formula.Snapshot(),
			Notes:           "Auto-scheduled for order " + o.OrderNumber,
			Lines:           lines,
			Materials:       materials,
			Actor:           actor,
			AutoScheduled:   true,
		})
	}
	return plans, nil
}

// createBatch numbers and inserts a batch. A number taken by a concurrent
// insert is retried with a fresh sequence read.
func (s *BatchService) createBatch(
	ctx context.Context,
	repos TransactionalRepositories,
	params production.NewBatchParams,
) (*production.ProductionBatch, error) {
	period := s.now()
	for attempt := 1; attempt <= s.config.BatchNumberMaxAttempts; attempt++ {
		latest, err := repos.Batches().LatestSequence(ctx, period)
		if err != nil {
			return nil, err
		}
		number, err := production.NextBatchNumber(latest, period)
		if err != nil {
			return nil, err
		}
		params.BatchNumber = number
		batch, err := production.NewBatch(params)
		if err != nil {
			return nil, err
		}
		err = repos.Batches().Create(ctx, batch)
		if err == nil {
			return batch, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, err
		}
		s.metrics.BatchNumberCollision(ctx)
		s.logger.Warn("Batch number collision, retrying",
			zap.String("batch_number", number),
			zap.Int("attempt", attempt),
		)
	}
	return nil, shared.NewDomainError(shared.CodeBatchNumberExhausted,
		"No free batch number after repeated collisions, retry later").WithDetails(map[string]interface{}{
		"attempts": s.config.BatchNumberMaxAttempts,
	})
}

// lockAndCheck locks the demanded material rows and re-checks them, so a
// concurrent deduction between the first check and now cannot overcommit
func (s *BatchService) lockAndCheck(
	ctx context.Context,
	repos TransactionalRepositories,
	demands []inventory.MaterialDemand,
	stage string,
) error {
	if len(demands) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(demands))
	for _, d := range demands {
		ids = append(ids, d.MaterialID)
	}
	levels, err := repos.Materials().LockMaterials(ctx, ids)
	if err != nil {
		return err
	}
	if shortfalls := inventory.FindShortfalls(demands, levels); len(shortfalls) > 0 {
		s.metrics.StockRejected(ctx, stage)
		return inventory.NewInsufficientStockError(shortfalls)
	}
	return nil
}

// moveMaterials deducts or restores material lines on the pool and records
// one inventory transaction per line
func (s *BatchService) moveMaterials(
	ctx context.Context,
	repos TransactionalRepositories,
	batch *production.ProductionBatch,
	lines []production.BatchMaterialLine,
	txType inventory.TransactionType,
	actor string,
) error {
	txs := make([]*inventory.InventoryTransaction, 0, len(lines))
	for _, l := range lines {
		if l.RequiredQuantity.IsZero() {
			continue
		}
		var err error
		if txType.IsDecrease() {
			err = repos.Materials().Consume(ctx, l.MaterialID, l.RequiredQuantity)
		} else {
			err = repos.Materials().Restore(ctx, l.MaterialID, l.RequiredQuantity)
		}
		if err != nil {
			return err
		}
		tx, err := inventory.NewInventoryTransaction(
			l.MaterialID, inventory.ProductKindMaster, txType,
			l.RequiredQuantity, inventory.ReferenceTypeBatch, batch.ID)
		if err != nil {
			return err
		}
		txs = append(txs, tx.WithActor(actor).WithNotes(batch.BatchNumber))
	}
	return repos.Transactions().Append(ctx, txs...)
}

// creditOutputs adds produced units to each SKU and debits one packaging unit
// per produced unit
func (s *BatchService) creditOutputs(
	ctx context.Context,
	repos TransactionalRepositories,
	batch *production.ProductionBatch,
	credits []production.OutputCredit,
	skuByID map[uuid.UUID]*catalog.SKU,
	actor string,
) error {
	txs := make([]*inventory.InventoryTransaction, 0, 2*len(credits))
	for _, c := range credits {
		if err := repos.FinishedGoods().Credit(ctx, c.SKUID, c.Units, c.Weight); err != nil {
			return err
		}
		tx, err := inventory.NewInventoryTransaction(
			c.SKUID, inventory.ProductKindSKU, inventory.TransactionTypeProductionOutput,
			c.Units, inventory.ReferenceTypeBatch, batch.ID)
		if err != nil {
			return err
		}
		txs = append(txs, tx.WithWeight(c.Weight).WithActor(actor).WithNotes(batch.BatchNumber))

		sku, ok := skuByID[c.SKUID]
		if !ok || sku.PackagingID == nil || !c.Units.IsPositive() {
			continue
		}
		if err := repos.Materials().Consume(ctx, *sku.PackagingID, c.Units); err != nil {
			return err
		}
		pkg, err := inventory.NewInventoryTransaction(
			*sku.PackagingID, inventory.ProductKindMaster, inventory.TransactionTypePackagingConsumption,
			c.Units, inventory.ReferenceTypeBatch, batch.ID)
		if err != nil {
			return err
		}
		txs = append(txs, pkg.WithActor(actor).WithNotes(batch.BatchNumber+" "+sku.Code))
	}
	return repos.Transactions().Append(ctx, txs...)
}

// dispatch delivers the committed outbox entries. Failures never reach the
// caller: the entry stays in the outbox for the background retry loop.
func (s *BatchService) dispatch(ctx context.Context, batchID uuid.UUID, entries []*shared.OutboxEntry) {
	if s.dispatcher == nil || len(entries) == 0 {
		return
	}
	for _, f := range s.dispatcher.Dispatch(context.WithoutCancel(ctx), entries) {
		stage := f.EventType
		if len(f.Handlers) > 0 {
			stage = strings.Join(f.Handlers, ",")
		}
		s.logger.Warn("PARTIAL_FAILURE: follow-up step failed and is queued for retry",
			zap.String("batch_id", batchID.String()),
			zap.String("stage", stage),
			zap.String("outbox_entry_id", f.EntryID.String()),
			zap.String("event_type", f.EventType),
			zap.Error(f.Err),
		)
		s.metrics.PartialFailure(ctx, stage)
	}
}

// replay returns the batches created by an earlier request with the same key
func (s *BatchService) replay(ctx context.Context, scope, key string) ([]BatchResponse, bool) {
	if s.idempotency == nil || key == "" {
		return nil, false
	}
	value, err := s.idempotency.Get(ctx, idempotencyPrefix+scope+key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if value == "" {
		return nil, false
	}
	var out []BatchResponse
	for _, raw := range strings.Split(value, ",") {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, false
		}
		b, err := s.batches.FindByID(ctx, id)
		if err != nil {
			return nil, false
		}
		out = append(out, ToBatchResponse(b))
	}
	return out, true
}

func (s *BatchService) remember(ctx context.Context, scope, key string, batches ...*production.ProductionBatch) {
	if s.idempotency == nil || key == "" || len(batches) == 0 {
		return
	}
	ids := make([]string, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID.String())
	}
	if err := s.idempotency.Put(ctx, idempotencyPrefix+scope+key, strings.Join(ids, ","), s.config.IdempotencyTTL); err != nil {
		s.logger.Warn("Failed to store idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func snapshotFor(formula *catalog.Formula, master *catalog.MasterProduct) catalog.FormulationSnapshot {
	if formula != nil {
		return formula.Snapshot()
	}
	return catalog.FormulationSnapshot{
		Density:   master.DefaultDensity,
		Viscosity: master.DefaultViscosity,
	}
}

func materialDemands(lines []production.BatchMaterialLine) []inventory.MaterialDemand {
	out := make([]inventory.MaterialDemand, 0, len(lines))
	for _, l := range lines {
		out = append(out, inventory.MaterialDemand{
			MaterialID:   l.MaterialID,
			MaterialName: l.MaterialName,
			Required:     l.RequiredQuantity,
		})
	}
	return out
}

func distinctIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type noopMetrics struct{}

func (noopMetrics) BatchScheduled(context.Context, bool, time.Duration) {}

func (noopMetrics) BatchStarted(context.Context) {}

func (noopMetrics) BatchCompleted(context.Context, float64) {}

func (noopMetrics) BatchCancelled(context.Context) {}

func (noopMetrics) StockRejected(context.Context, string) {}

func (noopMetrics) PartialFailure(context.Context, string) {}

func (noopMetrics) BatchNumberCollision(context.Context) {}
