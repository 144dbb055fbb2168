package persistence

import (
	"github.com/paintworks/backend/internal/domain/inventory"
	"github.com/paintworks/backend/internal/domain/production"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// Models lists every table the service owns. Postgres schemas come from the
// SQL migrations; sqlite databases are created from this list.
func Models() []interface{} {
	return []interface{}{
		&models.MasterProductModel{},
		&models.FormulaModel{},
		&models.FormulaComponentModel{},
		&models.SKUModel{},
		&models.OrderModel{},
		&models.OrderLineModel{},
		&models.BatchModel{},
		&models.BatchLineItemModel{},
		&models.BatchMaterialLineModel{},
		&inventory.InventoryTransaction{},
		&production.ActivityLogEntry{},
		&shared.OutboxEntry{},
	}
}

// AutoMigrate creates or updates the tables in Models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
