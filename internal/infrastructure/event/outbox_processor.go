package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// DispatchRecorder receives one call per delivery attempt
type DispatchRecorder interface {
	OutboxDispatched(ctx context.Context, eventType string, ok bool)
}

// DispatchFailure describes an entry whose delivery failed. The entry stays
// in the outbox and is retried by the background loop.
type DispatchFailure struct {
	EntryID   uuid.UUID
	EventID   uuid.UUID
	EventType string
	// Handlers names the follow-up handlers that failed, when known
	Handlers []string
	Err      error
}

// OutboxStats is a snapshot of the outbox table
type OutboxStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
}

// OutboxProcessor delivers outbox entries to the event bus, both inline right
// after a commit (Dispatch) and from a background polling loop.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger
	recorder   DispatchRecorder

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor. recorder may be nil.
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	recorder DispatchRecorder,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		config:     config,
		recorder:   recorder,
		logger:     logger,
	}
}

// Start launches the polling and cleanup loops
func (p *OutboxProcessor) Start(ctx context.Context) error {
	if p.config.PollInterval <= 0 {
		return errors.New("outbox poll interval must be positive")
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.processLoop(ctx)

	if p.config.CleanupEnabled && p.config.CleanupInterval > 0 {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("Outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)
	return nil
}

// Stop cancels the loops and waits for them, bounded by ctx
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch claims and delivers entries written by a just-committed
// transaction. Entries already claimed by the background loop are skipped.
// Failed entries are rescheduled and reported to the caller.
func (p *OutboxProcessor) Dispatch(ctx context.Context, entries []*shared.OutboxEntry) []DispatchFailure {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		failures := make([]DispatchFailure, len(entries))
		for i, e := range entries {
			failures[i] = DispatchFailure{
				EntryID:   e.ID,
				EventID:   e.EventID,
				EventType: e.EventType,
				Err:       fmt.Errorf("failed to claim outbox entry: %w", err),
			}
		}
		return failures
	}

	var failures []DispatchFailure
	for _, entry := range claimed {
		if f := p.deliver(ctx, entry); f != nil {
			failures = append(failures, *f)
		}
	}
	return failures
}

// ProcessOnce runs a single polling pass and returns the number of entries delivered
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) (int, error) {
	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find pending entries: %w", err)
	}
	retryable, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find retryable entries: %w", err)
	}

	entries := append(pending, retryable...)
	failures := p.Dispatch(ctx, entries)
	return len(entries) - len(failures), nil
}

// Retry moves a dead-letter entry back to pending
func (p *OutboxProcessor) Retry(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := p.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := p.repo.Update(ctx, entry); err != nil {
		return nil, err
	}
	p.logger.Info("Dead outbox entry requeued",
		zap.String("entry_id", entry.ID.String()),
		zap.String("event_type", entry.EventType),
	)
	return entry, nil
}

// DeadLetters returns a page of dead entries
func (p *OutboxProcessor) DeadLetters(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	return p.repo.FindDead(ctx, page, pageSize)
}

// Stats counts entries by status
func (p *OutboxProcessor) Stats(ctx context.Context) (OutboxStats, error) {
	counts, err := p.repo.CountByStatus(ctx)
	if err != nil {
		return OutboxStats{}, err
	}
	return OutboxStats{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}, nil
}

func (p *OutboxProcessor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("Outbox polling failed", zap.Error(err))
			}
		}
	}
}

// deliver publishes one claimed entry and records the outcome on it
func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) *DispatchFailure {
	evt, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.bus.Publish(ctx, evt)
	}
	if p.recorder != nil {
		p.recorder.OutboxDispatched(ctx, entry.EventType, err == nil)
	}

	if err == nil {
		entry.MarkSent()
		if updateErr := p.repo.Update(ctx, entry); updateErr != nil {
			p.logger.Error("Failed to mark outbox entry as sent",
				zap.String("entry_id", entry.ID.String()),
				zap.Error(updateErr),
			)
		}
		return nil
	}

	entry.MarkFailed(err.Error())
	if entry.IsDead() {
		p.logger.Warn("Outbox entry moved to dead letter",
			zap.String("entry_id", entry.ID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("retry_count", entry.RetryCount),
			zap.String("last_error", entry.LastError),
		)
	}
	if updateErr := p.repo.Update(ctx, entry); updateErr != nil {
		p.logger.Error("Failed to record outbox failure",
			zap.String("entry_id", entry.ID.String()),
			zap.Error(updateErr),
		)
	}
	return &DispatchFailure{
		EntryID:   entry.ID,
		EventID:   entry.EventID,
		EventType: entry.EventType,
		Handlers:  FailedHandlers(err),
		Err:       err,
	}
}

func (p *OutboxProcessor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanup(ctx)
		}
	}
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("Failed to clean up outbox", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("Cleaned up sent outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
