package event

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/production"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "payload",
	}
}

func newStartedEvent() *production.BatchStartedEvent {
	batchID := uuid.New()
	return &production.BatchStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(production.EventTypeBatchStarted, production.AggregateTypeBatch, batchID),
		BatchTransition: production.BatchTransition{
			BatchID:        batchID,
			BatchNumber:    "0001-0326",
			Action:         production.ActivityStarted,
			PreviousStatus: production.BatchStatusScheduled,
			NewStatus:      production.BatchStatusInProgress,
			Actor:          "planner@paintworks.test",
			OrderIDs:       []uuid.UUID{uuid.New()},
		},
	}
}

type recordingHandler struct {
	name       string
	eventTypes []string
	err        error
	panicWith  any

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func newRecordingHandler(name string, eventTypes ...string) *recordingHandler {
	return &recordingHandler{name: name, eventTypes: eventTypes}
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) EventTypes() []string { return h.eventTypes }

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	err, p := h.err, h.panicWith
	h.mu.Unlock()
	if p != nil {
		panic(p)
	}
	return err
}

func (h *recordingHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&shared.OutboxEntry{}))
	return db
}
