package production_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	appprod "github.com/paintworks/backend/internal/application/production"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/paintworks/backend/internal/domain/planning"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/cache"
	"github.com/paintworks/backend/internal/infrastructure/event"
	"github.com/paintworks/backend/internal/infrastructure/persistence"
	"github.com/paintworks/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// plant is a wired batch service over an in-memory database with a small
// catalog: one paint with an approved formula, two raw materials, a tin and
// two SKUs of the paint.
type plant struct {
	db        *gorm.DB
	service   *appprod.BatchService
	orders    *persistence.GormOrderRepository
	processor *event.OutboxProcessor

	paint     uuid.UUID
	titanium  uuid.UUID
	resin     uuid.UUID
	tin       uuid.UUID
	sku1L     uuid.UUID
	sku4L     uuid.UUID
	formulaID uuid.UUID
}

func newPlant(t *testing.T) *plant {
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
	require.NoError(t, persistence.AutoMigrate(db))

	p := &plant{db: db}
	p.seedCatalog(t)

	log := zap.NewNop()
	masters := persistence.NewGormMasterProductRepository(db)
	skus := persistence.NewGormSKURepository(db)
	formulas := persistence.NewGormFormulaRepository(db)
	batches := persistence.NewGormBatchRepository(db)
	activity := persistence.NewGormActivityLogRepository(db)
	p.orders = persistence.NewGormOrderRepository(db)

	serializer := event.NewProductionEventSerializer()
	publisher := event.NewOutboxPublisher(serializer, shared.DefaultMaxRetries)
	bus := event.NewInMemoryEventBus(log)
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	appprod.RegisterHandlers(bus, p.orders, batches, activity, func(h shared.NamedHandler) shared.NamedHandler {
		return event.NewIdempotentHandler(h, store, log)
	}, log)
	p.processor = event.NewOutboxProcessor(event.NewGormOutboxRepository(db), bus, serializer,
		event.DefaultOutboxProcessorConfig(), nil, log)

	resolver := planning.NewResolver(skus, masters, formulas)
	checker := planning.NewChecker(resolver, planning.NewAggregator(resolver), masters)
	p.service = appprod.NewBatchService(
		persistence.NewGormTransactionScope(db, publisher),
		batches, activity, masters, skus, p.orders,
		resolver, checker, p.processor,
		appprod.DefaultConfig(), log,
	)
	p.service.SetIdempotencyStore(store)
	return p
}

func (p *plant) seedCatalog(t *testing.T) {
	t.Helper()
	now := time.Now().UTC()
	master := func(code, name string, typ catalog.ProductType, stock string) uuid.UUID {
		m := models.MasterProductModel{
			Code:              code,
			Name:              name,
			Type:              typ,
			Unit:              "KG",
			DefaultDensity:    dec("1.2"),
			DefaultViscosity:  dec("90"),
			AvailableQuantity: dec(stock),
		}
		m.ID = uuid.New()
		m.CreatedAt, m.UpdatedAt, m.Version = now, now, 1
		require.NoError(t, p.db.Create(&m).Error)
		return m.ID
	}
	p.paint = master("EM-WHITE", "Emulsion White", catalog.ProductTypeFinishedGood, "0")
	p.titanium = master("TIO2", "Titanium Dioxide", catalog.ProductTypeRawMaterial, "100")
	p.resin = master("RESIN", "Acrylic Resin", catalog.ProductTypeRawMaterial, "50")
	p.tin = master("TIN-4L", "4L Tin", catalog.ProductTypePackaging, "500")

	f := models.FormulaModel{
		MasterProductID: p.paint,
		Version:         1,
		IsActive:        true,
		Status:          catalog.FormulaStatusApproved,
		Density:         dec("1.5"),
		Viscosity:       dec("95"),
		WaterPercentage: dec("30"),
		ProductionHours: dec("4"),
	}
	f.ID = uuid.New()
	f.CreatedAt, f.UpdatedAt = now, now
	f.Components = []models.FormulaComponentModel{
		{ID: uuid.New(), FormulaID: f.ID, MaterialID: p.titanium, Percentage: dec("60"), Sequence: 1, WaitingTime: 10},
		{ID: uuid.New(), FormulaID: f.ID, MaterialID: p.resin, Percentage: dec("40"), Sequence: 2, WaitingTime: 5},
	}
	require.NoError(t, p.db.Create(&f).Error)
	p.formulaID = f.ID

	sku := func(code string, capacity string, packaging *uuid.UUID, available string) uuid.UUID {
		s := models.SKUModel{
			Code:              code,
			Name:              code,
			MasterProductID:   p.paint,
			PackagingID:       packaging,
			PackageCapacity:   dec(capacity),
			AvailableQuantity: dec(available),
		}
		s.ID = uuid.New()
		s.CreatedAt, s.UpdatedAt, s.Version = now, now, 1
		require.NoError(t, p.db.Create(&s).Error)
		return s.ID
	}
	p.sku1L = sku("EM-WHITE-1L", "1", nil, "0")
	tin := p.tin
	p.sku4L = sku("EM-WHITE-4L", "4", &tin, "2")
}

func (p *plant) acceptedOrder(t *testing.T, number string, lines map[uuid.UUID]string) *order.Order {
	t.Helper()
	o := &order.Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       number,
		CustomerID:        uuid.New(),
		Status:            order.StatusAccepted,
	}
	for skuID, qty := range lines {
		o.Lines = append(o.Lines, order.Line{ID: uuid.New(), OrderID: o.ID, SKUID: skuID, Quantity: dec(qty)})
	}
	require.NoError(t, p.orders.Create(context.Background(), o))
	return o
}

func (p *plant) materialStock(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var m models.MasterProductModel
	require.NoError(t, p.db.First(&m, "id = ?", id).Error)
	return m.AvailableQuantity
}

func (p *plant) skuStock(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var s models.SKUModel
	require.NoError(t, p.db.First(&s, "id = ?", id).Error)
	return s.AvailableQuantity
}

func (p *plant) orderStatus(t *testing.T, id uuid.UUID) order.Status {
	t.Helper()
	o, err := p.orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}

func (p *plant) outboxCount(t *testing.T, status shared.OutboxStatus) int64 {
	t.Helper()
	var n int64
	require.NoError(t, p.db.Model(&shared.OutboxEntry{}).Where("status = ?", status).Count(&n).Error)
	return n
}
