package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/production"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// batchUpdateColumns are the header columns rewritten by Save
var batchUpdateColumns = []string{
	"batch_number", "master_product_id", "scheduled_date", "planned_quantity",
	"formula_id", "formula_density", "formula_viscosity", "formula_water_percentage",
	"status", "supervisor_id", "labour_roster", "notes", "started_at",
	"actual_quantity", "actual_density", "actual_viscosity", "actual_water_percentage",
	"actual_start_time", "actual_end_time", "elapsed_hours",
	"completed_at", "completed_by", "cancelled_at", "cancelled_by", "cancel_reason",
	"version", "updated_at",
}

// GormBatchRepository implements production.BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// Create inserts the batch with its lines inside a savepoint, so a batch
// number collision rolls back only the insert and the caller can retry
// with the next number in the same transaction.
func (r *GormBatchRepository) Create(ctx context.Context, batch *production.ProductionBatch) error {
	model := &models.BatchModel{}
	model.FromDomain(batch)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists.WithDetails(map[string]string{"batch_number": batch.BatchNumber})
	}
	return err
}

// FindByID loads a batch with its line items and material lines
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.ProductionBatch, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate loads a batch and locks its row until the transaction ends
func (r *GormBatchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*production.ProductionBatch, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormBatchRepository) findOne(query *gorm.DB, id uuid.UUID) (*production.ProductionBatch, error) {
	var model models.BatchModel
	if err := preloadBatchLines(query).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Production batch", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save writes the header with an optimistic version check and upserts every
// line. Lines are never removed from a batch.
func (r *GormBatchRepository) Save(ctx context.Context, batch *production.ProductionBatch) error {
	model := &models.BatchModel{}
	model.FromDomain(batch)
	expected := batch.Version
	model.Version = expected + 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(model).
			Where("version = ?", expected).
			Select(batchUpdateColumns).
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict.WithDetails(map[string]string{"batch_id": batch.ID.String()})
		}
		if len(model.LineItems) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model.LineItems).Error; err != nil {
				return err
			}
		}
		if len(model.MaterialLines) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model.MaterialLines).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	batch.IncrementVersion()
	return nil
}

// List returns a page of batches matching filter and the total match count
func (r *GormBatchRepository) List(ctx context.Context, filter production.BatchFilter) ([]production.ProductionBatch, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BatchModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.MasterProductID != nil {
		query = query.Where("master_product_id = ?", *filter.MasterProductID)
	}
	if filter.ScheduledFrom != nil {
		query = query.Where("scheduled_date >= ?", *filter.ScheduledFrom)
	}
	if filter.ScheduledTo != nil {
		query = query.Where("scheduled_date <= ?", *filter.ScheduledTo)
	}
	if filter.Search != "" {
		query = query.Where("batch_number LIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, BatchSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.BatchModel
	if err := preloadBatchLines(query).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	batches := make([]production.ProductionBatch, 0, len(rows))
	for i := range rows {
		batches = append(batches, *rows[i].ToDomain())
	}
	return batches, total, nil
}

// LatestSequence returns the highest sequence used in the month of period.
// Malformed numbers are skipped.
func (r *GormBatchRepository) LatestSequence(ctx context.Context, period time.Time) (int, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&models.BatchModel{}).
		Where("batch_number LIKE ?", "%"+production.BatchNumberSuffix(period)).
		Pluck("batch_number", &numbers).Error; err != nil {
		return 0, err
	}
	latest := 0
	for _, n := range numbers {
		seq, err := production.ParseBatchSequence(n)
		if err != nil {
			continue
		}
		if seq > latest {
			latest = seq
		}
	}
	return latest, nil
}

// FindStatusesByOrder returns one status per batch that has a line for the order
func (r *GormBatchRepository) FindStatusesByOrder(ctx context.Context, orderID uuid.UUID) ([]production.BatchStatus, error) {
	var rows []struct {
		ID     uuid.UUID
		Status production.BatchStatus
	}
	if err := r.db.WithContext(ctx).
		Table("production_batches b").
		Select("DISTINCT b.id AS id, b.status AS status").
		Joins("JOIN batch_line_items li ON li.batch_id = b.id").
		Where("li.order_id = ?", orderID).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	statuses := make([]production.BatchStatus, 0, len(rows))
	for _, row := range rows {
		statuses = append(statuses, row.Status)
	}
	return statuses, nil
}

func preloadBatchLines(query *gorm.DB) *gorm.DB {
	return query.
		Preload("LineItems").
		Preload("MaterialLines", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_additional ASC, sequence ASC")
		})
}

var _ production.BatchRepository = (*GormBatchRepository)(nil)
