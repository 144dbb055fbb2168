package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// DefaultExportInterval is how often metrics are pushed to the collector
const DefaultExportInterval = 60 * time.Second

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ExportInterval    time.Duration
	ServiceName       string
	Insecure          bool
}

// MeterProvider owns the SDK meter provider
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
}

// NewMeterProvider creates a meter provider with a periodic OTLP/gRPC reader
// and installs it globally.
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}
	if !cfg.Enabled {
		logger.Info("Metrics disabled, using no-op meter provider")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}
	res, err := serviceResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = DefaultExportInterval
	}
	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp.provider)

	logger.Info("Meter provider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Duration("export_interval", interval),
	)
	return mp, nil
}

// Meter returns a named meter, the global no-op one when disabled
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// Shutdown flushes pending metrics and stops the reader
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := mp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	mp.logger.Info("Meter provider shut down")
	return nil
}

// Attribute keys used on planning metrics
const (
	AttrStage         = attribute.Key("stage")
	AttrEventType     = attribute.Key("event_type")
	AttrOutcome       = attribute.Key("outcome")
	AttrAutoScheduled = attribute.Key("auto_scheduled")
)

// PlanningMetrics are the counters and histograms of the batch lifecycle and
// the outbox that carries its follow-up work.
type PlanningMetrics struct {
	batchesScheduled  metric.Int64Counter
	batchesStarted    metric.Int64Counter
	batchesCompleted  metric.Int64Counter
	batchesCancelled  metric.Int64Counter
	stockRejections   metric.Int64Counter
	partialFailures   metric.Int64Counter
	outboxDispatched  metric.Int64Counter
	batchNumberRetry  metric.Int64Counter
	scheduleDuration  metric.Float64Histogram
	producedKilograms metric.Float64Counter
}

// NewPlanningMetrics registers the planning instruments on meter
func NewPlanningMetrics(meter metric.Meter) (*PlanningMetrics, error) {
	m := &PlanningMetrics{}
	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.batchesScheduled, "production.batches.scheduled", "Batches created"},
		{&m.batchesStarted, "production.batches.started", "Scheduled batches put into production"},
		{&m.batchesCompleted, "production.batches.completed", "Batches completed"},
		{&m.batchesCancelled, "production.batches.cancelled", "Batches cancelled"},
		{&m.stockRejections, "production.stock.rejections", "Operations refused for insufficient stock"},
		{&m.partialFailures, "production.partial_failures", "Follow-up effects that failed after commit"},
		{&m.outboxDispatched, "outbox.dispatched", "Outbox entries dispatched by outcome"},
		{&m.batchNumberRetry, "production.batch_number.collisions", "Batch number collisions retried"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}
	if m.scheduleDuration, err = meter.Float64Histogram("production.schedule.duration",
		metric.WithDescription("Critical path duration of batch scheduling"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5),
	); err != nil {
		return nil, fmt.Errorf("create schedule histogram: %w", err)
	}
	if m.producedKilograms, err = meter.Float64Counter("production.output.weight",
		metric.WithDescription("Weight of finished goods produced"),
		metric.WithUnit("kg"),
	); err != nil {
		return nil, fmt.Errorf("create output counter: %w", err)
	}
	return m, nil
}

// NewNoopPlanningMetrics returns metrics bound to the global (no-op by default) meter
func NewNoopPlanningMetrics() *PlanningMetrics {
	m, err := NewPlanningMetrics(otel.GetMeterProvider().Meter("paintworks/noop"))
	if err != nil {
		panic(err)
	}
	return m
}

// BatchScheduled counts a new batch and how long its critical path took
func (m *PlanningMetrics) BatchScheduled(ctx context.Context, auto bool, took time.Duration) {
	attrs := metric.WithAttributes(AttrAutoScheduled.Bool(auto))
	m.batchesScheduled.Add(ctx, 1, attrs)
	m.scheduleDuration.Record(ctx, took.Seconds(), attrs)
}

// BatchStarted counts a scheduled batch going into production
func (m *PlanningMetrics) BatchStarted(ctx context.Context) {
	m.batchesStarted.Add(ctx, 1)
}

// BatchCompleted counts a completion and the weight it produced
func (m *PlanningMetrics) BatchCompleted(ctx context.Context, weight float64) {
	m.batchesCompleted.Add(ctx, 1)
	if weight > 0 {
		m.producedKilograms.Add(ctx, weight)
	}
}

// BatchCancelled counts a cancellation
func (m *PlanningMetrics) BatchCancelled(ctx context.Context) {
	m.batchesCancelled.Add(ctx, 1)
}

// StockRejected counts an operation refused with INSUFFICIENT_STOCK
func (m *PlanningMetrics) StockRejected(ctx context.Context, stage string) {
	m.stockRejections.Add(ctx, 1, metric.WithAttributes(AttrStage.String(stage)))
}

// PartialFailure counts a follow-up effect that failed after commit
func (m *PlanningMetrics) PartialFailure(ctx context.Context, stage string) {
	m.partialFailures.Add(ctx, 1, metric.WithAttributes(AttrStage.String(stage)))
}

// OutboxDispatched counts one dispatched outbox entry by outcome
func (m *PlanningMetrics) OutboxDispatched(ctx context.Context, eventType string, ok bool) {
	outcome := "sent"
	if !ok {
		outcome = "failed"
	}
	m.outboxDispatched.Add(ctx, 1, metric.WithAttributes(
		AttrEventType.String(eventType),
		AttrOutcome.String(outcome),
	))
}

// BatchNumberCollision counts a retried batch number
func (m *PlanningMetrics) BatchNumberCollision(ctx context.Context) {
	m.batchNumberRetry.Add(ctx, 1)
}
