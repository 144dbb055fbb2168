package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of inventory transaction
type TransactionType string

const (
	// TransactionTypeBatchConsumption is raw material deducted when a batch is scheduled
	TransactionTypeBatchConsumption TransactionType = "BATCH_CONSUMPTION"
	// TransactionTypeAdditionalConsumption is material used beyond the formula, deducted at completion
	TransactionTypeAdditionalConsumption TransactionType = "BATCH_ADDITIONAL_CONSUMPTION"
	// TransactionTypeBatchRelease is raw material returned to the pool on cancellation
	TransactionTypeBatchRelease TransactionType = "BATCH_RELEASE"
	// TransactionTypeProductionOutput is finished goods credited at completion
	TransactionTypeProductionOutput TransactionType = "PRODUCTION_OUTPUT"
	// TransactionTypePackagingConsumption is packaging debited per produced unit
	TransactionTypePackagingConsumption TransactionType = "PACKAGING_CONSUMPTION"
	// TransactionTypeOrderReserve is finished goods held for an order
	TransactionTypeOrderReserve TransactionType = "ORDER_RESERVE"
	// TransactionTypeOrderRelease is an order hold released
	TransactionTypeOrderRelease TransactionType = "ORDER_RELEASE"
	// TransactionTypeDispatch is finished goods leaving with an order
	TransactionTypeDispatch TransactionType = "DISPATCH"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeBatchConsumption,
		TransactionTypeAdditionalConsumption,
		TransactionTypeBatchRelease,
		TransactionTypeProductionOutput,
		TransactionTypePackagingConsumption,
		TransactionTypeOrderReserve,
		TransactionTypeOrderRelease,
		TransactionTypeDispatch:
		return true
	}
	return false
}

// IsDecrease returns true if this transaction type reduces the counter it touches
func (t TransactionType) IsDecrease() bool {
	switch t {
	case TransactionTypeBatchConsumption,
		TransactionTypeAdditionalConsumption,
		TransactionTypePackagingConsumption,
		TransactionTypeOrderReserve,
		TransactionTypeDispatch:
		return true
	}
	return false
}

// ProductKind tells whether a transaction touches a master product pool or a SKU
type ProductKind string

const (
	ProductKindMaster ProductKind = "MASTER"
	ProductKindSKU    ProductKind = "SKU"
)

// ReferenceType is the kind of document a transaction points back to
type ReferenceType string

const (
	ReferenceTypeBatch ReferenceType = "PRODUCTION_BATCH"
	ReferenceTypeOrder ReferenceType = "ORDER"
)

// InventoryTransaction is an immutable record of a stock movement.
// Corrections are made with new transactions, never by editing.
type InventoryTransaction struct {
	shared.BaseEntity
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_inv_tx_product"`
	ProductKind     ProductKind     `gorm:"type:varchar(10);not null"`
	TransactionType TransactionType `gorm:"type:varchar(40);not null;index:idx_inv_tx_type"`
	// SignedQuantity is negative for decreases
	SignedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Weight         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReferenceType  ReferenceType   `gorm:"type:varchar(30);not null;index:idx_inv_tx_reference,priority:1"`
	ReferenceID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_inv_tx_reference,priority:2"`
	Actor          string          `gorm:"type:varchar(100)"`
	Notes          string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InventoryTransaction) TableName() string {
	return "inventory_transactions"
}

// NewInventoryTransaction creates a transaction; quantity is given unsigned and
// signed from the transaction type.
func NewInventoryTransaction(
	productID uuid.UUID,
	kind ProductKind,
	txType TransactionType,
	quantity decimal.Decimal,
	refType ReferenceType,
	refID uuid.UUID,
) (*InventoryTransaction, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("Product ID cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewValidationError("Invalid transaction type %q", txType)
	}
	if quantity.IsNegative() {
		return nil, shared.NewValidationError("Transaction quantity cannot be negative")
	}
	if refID == uuid.Nil {
		return nil, shared.NewValidationError("Reference ID cannot be empty")
	}

	signed := quantity
	if txType.IsDecrease() {
		signed = quantity.Neg()
	}

	return &InventoryTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		ProductID:       productID,
		ProductKind:     kind,
		TransactionType: txType,
		SignedQuantity:  signed,
		Weight:          decimal.Zero,
		ReferenceType:   refType,
		ReferenceID:     refID,
	}, nil
}

// WithWeight sets the weight moved by the transaction
func (t *InventoryTransaction) WithWeight(weight decimal.Decimal) *InventoryTransaction {
	t.Weight = weight
	return t
}

// WithActor sets who performed the operation
func (t *InventoryTransaction) WithActor(actor string) *InventoryTransaction {
	t.Actor = actor
	return t
}

// WithNotes sets free text notes
func (t *InventoryTransaction) WithNotes(notes string) *InventoryTransaction {
	t.Notes = notes
	return t
}

// OccurredAt returns when the movement was recorded
func (t *InventoryTransaction) OccurredAt() time.Time {
	return t.CreatedAt
}
