package persistence

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// clampedAdd renders col + delta floored at zero. col is always a constant
// column name from this file.
func clampedAdd(col string, delta decimal.Decimal) clause.Expr {
	return gorm.Expr("CASE WHEN "+col+" + ? < 0 THEN 0 ELSE "+col+" + ? END", delta, delta)
}

// cappedAdd renders col + delta floored at zero and capped at capCol
func cappedAdd(col, capCol string, delta decimal.Decimal) clause.Expr {
	return gorm.Expr(
		"CASE WHEN "+col+" + ? > "+capCol+" THEN "+capCol+
			" WHEN "+col+" + ? < 0 THEN 0 ELSE "+col+" + ? END",
		delta, delta, delta)
}

// sortedIDs returns distinct ids in ascending order, the order rows are locked in
func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func checkDelta(qty decimal.Decimal) error {
	if qty.IsNegative() {
		return shared.NewValidationError("Stock adjustment cannot be negative")
	}
	return nil
}

// GormRawMaterialPool implements inventory.RawMaterialPool on the
// available_quantity column of master products
type GormRawMaterialPool struct {
	db *gorm.DB
}

// NewGormRawMaterialPool creates a new GormRawMaterialPool
func NewGormRawMaterialPool(db *gorm.DB) *GormRawMaterialPool {
	return &GormRawMaterialPool{db: db}
}

type materialLevel struct {
	ID                uuid.UUID
	AvailableQuantity decimal.Decimal
}

// LockMaterials locks the rows in ascending id order and returns their levels.
// Unknown ids are absent from the result.
func (p *GormRawMaterialPool) LockMaterials(ctx context.Context, materialIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	return p.levels(p.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), materialIDs)
}

// Levels reads available quantities without locking
func (p *GormRawMaterialPool) Levels(ctx context.Context, materialIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	return p.levels(p.db.WithContext(ctx), materialIDs)
}

func (p *GormRawMaterialPool) levels(query *gorm.DB, materialIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	ids := sortedIDs(materialIDs)
	levels := make(map[uuid.UUID]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return levels, nil
	}
	var rows []materialLevel
	if err := query.
		Model(&models.MasterProductModel{}).
		Select("id, available_quantity").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		levels[row.ID] = row.AvailableQuantity
	}
	return levels, nil
}

// Consume subtracts qty from the pool, flooring at zero
func (p *GormRawMaterialPool) Consume(ctx context.Context, materialID uuid.UUID, qty decimal.Decimal) error {
	if err := checkDelta(qty); err != nil {
		return err
	}
	return p.adjust(ctx, materialID, qty.Neg())
}

// Restore adds qty back to the pool
func (p *GormRawMaterialPool) Restore(ctx context.Context, materialID uuid.UUID, qty decimal.Decimal) error {
	if err := checkDelta(qty); err != nil {
		return err
	}
	return p.adjust(ctx, materialID, qty)
}

func (p *GormRawMaterialPool) adjust(ctx context.Context, materialID uuid.UUID, delta decimal.Decimal) error {
	result := p.db.WithContext(ctx).
		Model(&models.MasterProductModel{}).
		Where("id = ?", materialID).
		Update("available_quantity", clampedAdd("available_quantity", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Material", materialID)
	}
	return nil
}

// GormFinishedGoodStock implements inventory.FinishedGoodStock on the
// quantity and weight counters of SKUs
type GormFinishedGoodStock struct {
	db *gorm.DB
}

// NewGormFinishedGoodStock creates a new GormFinishedGoodStock
func NewGormFinishedGoodStock(db *gorm.DB) *GormFinishedGoodStock {
	return &GormFinishedGoodStock{db: db}
}

// LockSKUs locks the SKU rows in ascending id order and returns their counters
func (s *GormFinishedGoodStock) LockSKUs(ctx context.Context, skuIDs []uuid.UUID) (map[uuid.UUID]inventory.SKULevel, error) {
	ids := sortedIDs(skuIDs)
	levels := make(map[uuid.UUID]inventory.SKULevel, len(ids))
	if len(ids) == 0 {
		return levels, nil
	}
	var rows []models.SKUModel
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id, available_quantity, reserved_quantity, available_weight, reserved_weight").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		levels[row.ID] = inventory.SKULevel{
			SKUID:             row.ID,
			AvailableQuantity: row.AvailableQuantity,
			ReservedQuantity:  row.ReservedQuantity,
			AvailableWeight:   row.AvailableWeight,
			ReservedWeight:    row.ReservedWeight,
		}
	}
	return levels, nil
}

// Credit adds produced units and weight to available
func (s *GormFinishedGoodStock) Credit(ctx context.Context, skuID uuid.UUID, units, weight decimal.Decimal) error {
	if err := checkUnitsAndWeight(units, weight); err != nil {
		return err
	}
	return s.update(ctx, skuID, map[string]interface{}{
		"available_quantity": clampedAdd("available_quantity", units),
		"available_weight":   clampedAdd("available_weight", weight),
	})
}

// Reserve moves units into reserved, capped at available
func (s *GormFinishedGoodStock) Reserve(ctx context.Context, skuID uuid.UUID, units, weight decimal.Decimal) error {
	if err := checkUnitsAndWeight(units, weight); err != nil {
		return err
	}
	return s.update(ctx, skuID, map[string]interface{}{
		"reserved_quantity": cappedAdd("reserved_quantity", "available_quantity", units),
		"reserved_weight":   cappedAdd("reserved_weight", "available_weight", weight),
	})
}

// Release takes units out of reserved, flooring at zero
func (s *GormFinishedGoodStock) Release(ctx context.Context, skuID uuid.UUID, units, weight decimal.Decimal) error {
	if err := checkUnitsAndWeight(units, weight); err != nil {
		return err
	}
	return s.update(ctx, skuID, map[string]interface{}{
		"reserved_quantity": clampedAdd("reserved_quantity", units.Neg()),
		"reserved_weight":   clampedAdd("reserved_weight", weight.Neg()),
	})
}

// Ship removes dispatched units from both available and reserved
func (s *GormFinishedGoodStock) Ship(ctx context.Context, skuID uuid.UUID, units, weight decimal.Decimal) error {
	if err := checkUnitsAndWeight(units, weight); err != nil {
		return err
	}
	return s.update(ctx, skuID, map[string]interface{}{
		"available_quantity": clampedAdd("available_quantity", units.Neg()),
		"available_weight":   clampedAdd("available_weight", weight.Neg()),
		"reserved_quantity":  clampedAdd("reserved_quantity", units.Neg()),
		"reserved_weight":    clampedAdd("reserved_weight", weight.Neg()),
	})
}

func (s *GormFinishedGoodStock) update(ctx context.Context, skuID uuid.UUID, columns map[string]interface{}) error {
	result := s.db.WithContext(ctx).
		Model(&models.SKUModel{}).
		Where("id = ?", skuID).
		Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("SKU", skuID)
	}
	return nil
}

func checkUnitsAndWeight(units, weight decimal.Decimal) error {
	if err := checkDelta(units); err != nil {
		return err
	}
	return checkDelta(weight)
}

var (
	_ inventory.RawMaterialPool   = (*GormRawMaterialPool)(nil)
	_ inventory.FinishedGoodStock = (*GormFinishedGoodStock)(nil)
)
