package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/production"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormActivityLogRepository implements production.ActivityLogRepository using GORM
type GormActivityLogRepository struct {
	db *gorm.DB
}

// NewGormActivityLogRepository creates a new GormActivityLogRepository
func NewGormActivityLogRepository(db *gorm.DB) *GormActivityLogRepository {
	return &GormActivityLogRepository{db: db}
}

// Append inserts the entry unless an entry with the same ID already exists
func (r *GormActivityLogRepository) Append(ctx context.Context, entry *production.ActivityLogEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(entry).Error
}

// FindByBatch returns the batch's audit trail, oldest first
func (r *GormActivityLogRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]production.ActivityLogEntry, error) {
	var entries []production.ActivityLogEntry
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

var _ production.ActivityLogRepository = (*GormActivityLogRepository)(nil)
