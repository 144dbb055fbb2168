package models

import (
	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// MasterProductModel is the persistence model for catalog.MasterProduct
type MasterProductModel struct {
	AggregateModel
	Code              string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name              string              `gorm:"type:varchar(200);not null"`
	Type              catalog.ProductType `gorm:"type:varchar(20);not null;index"`
	Unit              string              `gorm:"type:varchar(20);not null"`
	DefaultDensity    decimal.Decimal     `gorm:"type:decimal(10,4);not null"`
	DefaultViscosity  decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	AvailableQuantity decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (MasterProductModel) TableName() string {
	return "master_products"
}

// ToDomain converts the model to a domain MasterProduct
func (m *MasterProductModel) ToDomain() *catalog.MasterProduct {
	return &catalog.MasterProduct{
		BaseAggregateRoot: m.root(),
		Code:              m.Code,
		Name:              m.Name,
		Type:              m.Type,
		Unit:              m.Unit,
		DefaultDensity:    m.DefaultDensity,
		DefaultViscosity:  m.DefaultViscosity,
		AvailableQuantity: m.AvailableQuantity,
	}
}

// FromDomain populates the model from a domain MasterProduct
func (m *MasterProductModel) FromDomain(p *catalog.MasterProduct) {
	m.setRoot(p.BaseAggregateRoot)
	m.Code = p.Code
	m.Name = p.Name
	m.Type = p.Type
	m.Unit = p.Unit
	m.DefaultDensity = p.DefaultDensity
	m.DefaultViscosity = p.DefaultViscosity
	m.AvailableQuantity = p.AvailableQuantity
}

// FormulaModel is the persistence model for catalog.Formula
type FormulaModel struct {
	BaseModel
	MasterProductID uuid.UUID               `gorm:"type:uuid;not null;index"`
	Version         int                     `gorm:"not null"`
	IsActive        bool                    `gorm:"not null;index"`
	Status          catalog.FormulaStatus   `gorm:"type:varchar(20);not null"`
	Density         decimal.Decimal         `gorm:"type:decimal(10,4);not null"`
	Viscosity       decimal.Decimal         `gorm:"type:decimal(10,2);not null"`
	WaterPercentage decimal.Decimal         `gorm:"type:decimal(6,2);not null"`
	ProductionHours decimal.Decimal         `gorm:"type:decimal(8,2);not null"`
	Components      []FormulaComponentModel `gorm:"foreignKey:FormulaID"`
}

// TableName returns the table name for GORM
func (FormulaModel) TableName() string {
	return "formulas"
}

// ToDomain converts the model and its loaded components to a domain Formula
func (m *FormulaModel) ToDomain() catalog.Formula {
	f := catalog.Formula{
		BaseEntity:      m.entity(),
		MasterProductID: m.MasterProductID,
		Version:         m.Version,
		IsActive:        m.IsActive,
		Status:          m.Status,
		Density:         m.Density,
		Viscosity:       m.Viscosity,
		WaterPercentage: m.WaterPercentage,
		ProductionHours: m.ProductionHours,
		Components:      make([]catalog.FormulaComponent, 0, len(m.Components)),
	}
	for _, c := range m.Components {
		f.Components = append(f.Components, catalog.FormulaComponent{
			ID:          c.ID,
			FormulaID:   c.FormulaID,
			MaterialID:  c.MaterialID,
			Percentage:  c.Percentage,
			Sequence:    c.Sequence,
			WaitingTime: c.WaitingTime,
		})
	}
	return f
}

// FromDomain populates the model and its components from a domain Formula
func (m *FormulaModel) FromDomain(f *catalog.Formula) {
	m.setEntity(f.BaseEntity)
	m.MasterProductID = f.MasterProductID
	m.Version = f.Version
	m.IsActive = f.IsActive
	m.Status = f.Status
	m.Density = f.Density
	m.Viscosity = f.Viscosity
	m.WaterPercentage = f.WaterPercentage
	m.ProductionHours = f.ProductionHours
	m.Components = make([]FormulaComponentModel, 0, len(f.Components))
	for _, c := range f.Components {
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		m.Components = append(m.Components, FormulaComponentModel{
			ID:          id,
			FormulaID:   f.ID,
			MaterialID:  c.MaterialID,
			Percentage:  c.Percentage,
			Sequence:    c.Sequence,
			WaitingTime: c.WaitingTime,
		})
	}
}

// FormulaComponentModel is one material line of a formula
type FormulaComponentModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FormulaID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	MaterialID  uuid.UUID       `gorm:"type:uuid;not null"`
	Percentage  decimal.Decimal `gorm:"type:decimal(8,4);not null"`
	Sequence    int             `gorm:"not null"`
	WaitingTime int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FormulaComponentModel) TableName() string {
	return "formula_components"
}

// SKUModel is the persistence model for catalog.SKU
type SKUModel struct {
	AggregateModel
	Code              string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name              string          `gorm:"type:varchar(200);not null"`
	MasterProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	PackagingID       *uuid.UUID      `gorm:"type:uuid"`
	PackageCapacity   decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	FillingDensity    decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	UnitWeight        decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	AvailableQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReservedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AvailableWeight   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReservedWeight    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (SKUModel) TableName() string {
	return "skus"
}

// ToDomain converts the model to a domain SKU
func (m *SKUModel) ToDomain() *catalog.SKU {
	return &catalog.SKU{
		BaseAggregateRoot: m.root(),
		Code:              m.Code,
		Name:              m.Name,
		MasterProductID:   m.MasterProductID,
		PackagingID:       m.PackagingID,
		PackageCapacity:   m.PackageCapacity,
		FillingDensity:    m.FillingDensity,
		UnitWeight:        m.UnitWeight,
		AvailableQuantity: m.AvailableQuantity,
		ReservedQuantity:  m.ReservedQuantity,
		AvailableWeight:   m.AvailableWeight,
		ReservedWeight:    m.ReservedWeight,
	}
}

// FromDomain populates the model from a domain SKU
func (m *SKUModel) FromDomain(s *catalog.SKU) {
	m.setRoot(s.BaseAggregateRoot)
	m.Code = s.Code
	m.Name = s.Name
	m.MasterProductID = s.MasterProductID
	m.PackagingID = s.PackagingID
	m.PackageCapacity = s.PackageCapacity
	m.FillingDensity = s.FillingDensity
	m.UnitWeight = s.UnitWeight
	m.AvailableQuantity = s.AvailableQuantity
	m.ReservedQuantity = s.ReservedQuantity
	m.AvailableWeight = s.AvailableWeight
	m.ReservedWeight = s.ReservedWeight
}

