package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOutboxRepository stores batch follow-up events in outbox_events
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GormOutboxRepository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

func withStatus(statuses ...shared.OutboxStatus) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(statuses) == 1 {
			return db.Where("status = ?", statuses[0])
		}
		return db.Where("status IN ?", statuses)
	}
}

func (r *GormOutboxRepository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB, order string, limit int) ([]*shared.OutboxEntry, error) {
	var entries []*shared.OutboxEntry
	err := r.db.WithContext(ctx).Scopes(scope).Order(order).Limit(limit).Find(&entries).Error
	return entries, err
}

func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(entries).Error
}

// FindPending returns up to limit pending entries in creation order
func (r *GormOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	return r.list(ctx, withStatus(shared.OutboxStatusPending), "created_at ASC", limit)
}

func (r *GormOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	due := func(db *gorm.DB) *gorm.DB {
		return withStatus(shared.OutboxStatusFailed)(db).Where("next_retry_at <= ?", before)
	}
	return r.list(ctx, due, "next_retry_at ASC", limit)
}

// MarkProcessing locks the candidate rows with SKIP LOCKED, so two
// processors never deliver the same entry, and flips the winners to
// PROCESSING in one statement.
func (r *GormOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var claimed []*shared.OutboxEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Scopes(withStatus(shared.OutboxStatusPending, shared.OutboxStatusFailed)).
			Where("id IN ?", ids).
			Find(&claimed).Error
		if err != nil || len(claimed) == 0 {
			return err
		}

		now := time.Now().UTC()
		won := make([]uuid.UUID, 0, len(claimed))
		for _, entry := range claimed {
			if err := entry.MarkProcessing(); err != nil {
				return err
			}
			entry.UpdatedAt = now
			won = append(won, entry.ID)
		}
		return tx.Model(&shared.OutboxEntry{}).
			Where("id IN ?", won).
			Updates(map[string]any{
				"status":     shared.OutboxStatusProcessing,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(entry).Error
}

// DeleteOlderThan purges sent entries processed before the cutoff
func (r *GormOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Scopes(withStatus(shared.OutboxStatusSent)).
		Where("processed_at < ?", before).
		Delete(&shared.OutboxEntry{})
	return res.RowsAffected, res.Error
}

// FindDead pages through dead letters, most recently failed first
func (r *GormOutboxRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	filter := shared.Filter{Page: page, PageSize: pageSize}.Normalized("updated_at", "desc")
	dead := r.db.WithContext(ctx).Model(&shared.OutboxEntry{}).Scopes(withStatus(shared.OutboxStatusDead))

	var total int64
	if err := dead.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*shared.OutboxEntry
	err := dead.Session(&gorm.Session{}).
		Order("updated_at DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	var entry shared.OutboxEntry
	err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, shared.NewNotFoundError("outbox entry", id.String())
	case err != nil:
		return nil, err
	}
	return &entry, nil
}

// CountByStatus reports how many entries sit in each status; absent
// statuses are omitted
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	type bucket struct {
		Status shared.OutboxStatus
		Count  int64
	}
	var buckets []bucket
	err := r.db.WithContext(ctx).
		Model(&shared.OutboxEntry{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[shared.OutboxStatus]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Status] = b.Count
	}
	return counts, nil
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
