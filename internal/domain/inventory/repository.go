package inventory

import (
	"context"

	"github.com/google/uuid"
)

// InventoryTransactionRepository is the append-only store of stock movements
type InventoryTransactionRepository interface {
	// Append persists new transactions; existing rows are never modified
	Append(ctx context.Context, txs ...*InventoryTransaction) error

	// FindByReference lists the movements recorded against a document, oldest first
	FindByReference(ctx context.Context, refType ReferenceType, refID uuid.UUID) ([]InventoryTransaction, error)
}
