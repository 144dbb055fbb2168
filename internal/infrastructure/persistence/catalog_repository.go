package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormMasterProductRepository implements catalog.MasterProductRepository using GORM
type GormMasterProductRepository struct {
	db *gorm.DB
}

// NewGormMasterProductRepository creates a new GormMasterProductRepository
func NewGormMasterProductRepository(db *gorm.DB) *GormMasterProductRepository {
	return &GormMasterProductRepository{db: db}
}

// FindByID finds a master product by its ID
func (r *GormMasterProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.MasterProduct, error) {
	var model models.MasterProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Master product", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds the master products that exist among ids
func (r *GormMasterProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.MasterProduct, error) {
	if len(ids) == 0 {
		return []catalog.MasterProduct{}, nil
	}
	var rows []models.MasterProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]catalog.MasterProduct, 0, len(rows))
	for i := range rows {
		products = append(products, *rows[i].ToDomain())
	}
	return products, nil
}

// Save creates or replaces a master product; used by seeding and tests
func (r *GormMasterProductRepository) Save(ctx context.Context, p *catalog.MasterProduct) error {
	model := &models.MasterProductModel{}
	model.FromDomain(p)
	return r.db.WithContext(ctx).Save(model).Error
}

// GormFormulaRepository implements catalog.FormulaRepository using GORM
type GormFormulaRepository struct {
	db *gorm.DB
}

// NewGormFormulaRepository creates a new GormFormulaRepository
func NewGormFormulaRepository(db *gorm.DB) *GormFormulaRepository {
	return &GormFormulaRepository{db: db}
}

// FindByMasterProduct returns every formula version of a master product with its components
func (r *GormFormulaRepository) FindByMasterProduct(ctx context.Context, masterProductID uuid.UUID) ([]catalog.Formula, error) {
	var rows []models.FormulaModel
	if err := r.db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("master_product_id = ?", masterProductID).
		Order("version DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	formulas := make([]catalog.Formula, 0, len(rows))
	for i := range rows {
		formulas = append(formulas, rows[i].ToDomain())
	}
	return formulas, nil
}

// Save creates a formula with its components
func (r *GormFormulaRepository) Save(ctx context.Context, f *catalog.Formula) error {
	model := &models.FormulaModel{}
	model.FromDomain(f)
	return r.db.WithContext(ctx).Create(model).Error
}

// GormSKURepository implements catalog.SKURepository using GORM
type GormSKURepository struct {
	db *gorm.DB
}

// NewGormSKURepository creates a new GormSKURepository
func NewGormSKURepository(db *gorm.DB) *GormSKURepository {
	return &GormSKURepository{db: db}
}

// FindByID finds a SKU by its ID
func (r *GormSKURepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.SKU, error) {
	var model models.SKUModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("SKU", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds the SKUs that exist among ids
func (r *GormSKURepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.SKU, error) {
	if len(ids) == 0 {
		return []catalog.SKU{}, nil
	}
	return r.find(r.db.WithContext(ctx).Where("id IN ?", ids))
}

// FindByMasterProduct lists the SKUs packaging a master product
func (r *GormSKURepository) FindByMasterProduct(ctx context.Context, masterProductID uuid.UUID) ([]catalog.SKU, error) {
	return r.find(r.db.WithContext(ctx).Where("master_product_id = ?", masterProductID))
}

// FindFinishedGoods lists SKUs whose master product is a finished good
func (r *GormSKURepository) FindFinishedGoods(ctx context.Context) ([]catalog.SKU, error) {
	return r.find(r.db.WithContext(ctx).
		Joins("JOIN master_products mp ON mp.id = skus.master_product_id").
		Where("mp.type = ?", catalog.ProductTypeFinishedGood))
}

func (r *GormSKURepository) find(query *gorm.DB) ([]catalog.SKU, error) {
	var rows []models.SKUModel
	if err := query.Order("skus.code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	skus := make([]catalog.SKU, 0, len(rows))
	for i := range rows {
		skus = append(skus, *rows[i].ToDomain())
	}
	return skus, nil
}

// UpdateUnitWeight rewrites the cached unit weight of a SKU
func (r *GormSKURepository) UpdateUnitWeight(ctx context.Context, id uuid.UUID, unitWeight decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.SKUModel{}).
		Where("id = ?", id).
		Update("unit_weight", unitWeight)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("SKU", id)
	}
	return nil
}

// Save creates or replaces a SKU; used by seeding and tests
func (r *GormSKURepository) Save(ctx context.Context, s *catalog.SKU) error {
	model := &models.SKUModel{}
	model.FromDomain(s)
	return r.db.WithContext(ctx).Save(model).Error
}

var (
	_ catalog.MasterProductRepository = (*GormMasterProductRepository)(nil)
	_ catalog.FormulaRepository       = (*GormFormulaRepository)(nil)
	_ catalog.SKURepository           = (*GormSKURepository)(nil)
)
