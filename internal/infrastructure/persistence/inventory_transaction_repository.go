package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormInventoryTransactionRepository implements InventoryTransactionRepository using GORM
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new GormInventoryTransactionRepository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// Append inserts the transactions in one statement
func (r *GormInventoryTransactionRepository) Append(ctx context.Context, txs ...*inventory.InventoryTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(txs).Error
}

// FindByReference lists the movements recorded against a document, oldest first
func (r *GormInventoryTransactionRepository) FindByReference(ctx context.Context, refType inventory.ReferenceType, refID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	var txs []inventory.InventoryTransaction
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("created_at ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

var _ inventory.InventoryTransactionRepository = (*GormInventoryTransactionRepository)(nil)
