package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/catalog"
	"github.com/paintworks/backend/internal/domain/production"
	"github.com/shopspring/decimal"
)

// BatchModel is the persistence model for production.ProductionBatch
type BatchModel struct {
	AggregateModel
	BatchNumber            string                 `gorm:"type:varchar(20);not null;uniqueIndex"`
	MasterProductID        uuid.UUID              `gorm:"type:uuid;not null;index"`
	ScheduledDate          time.Time              `gorm:"not null;index"`
	PlannedQuantity        decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	FormulaID              *uuid.UUID             `gorm:"type:uuid"`
	FormulaDensity         decimal.Decimal        `gorm:"type:decimal(10,4);not null"`
	FormulaViscosity       decimal.Decimal        `gorm:"type:decimal(10,2);not null"`
	FormulaWaterPercentage decimal.Decimal        `gorm:"type:decimal(6,2);not null"`
	Status                 production.BatchStatus `gorm:"type:varchar(20);not null;index"`
	SupervisorID           *uuid.UUID             `gorm:"type:uuid"`
	LabourRoster           []string               `gorm:"type:jsonb;serializer:json"`
	Notes                  string                 `gorm:"type:text"`
	StartedAt              *time.Time
	ActualQuantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ActualDensity          decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	ActualViscosity        decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ActualWaterPercentage  decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	ActualStartTime        *time.Time
	ActualEndTime          *time.Time
	ElapsedHours           decimal.Decimal `gorm:"type:decimal(8,2);not null"`
	CompletedAt            *time.Time
	CompletedBy            string `gorm:"type:varchar(100)"`
	CancelledAt            *time.Time
	CancelledBy            string                   `gorm:"type:varchar(100)"`
	CancelReason           string                   `gorm:"type:text"`
	LineItems              []BatchLineItemModel     `gorm:"foreignKey:BatchID"`
	MaterialLines          []BatchMaterialLineModel `gorm:"foreignKey:BatchID"`
}

// TableName returns the table name for GORM
func (BatchModel) TableName() string {
	return "production_batches"
}

// ToDomain converts the model and its loaded lines to a domain batch
func (m *BatchModel) ToDomain() *production.ProductionBatch {
	b := &production.ProductionBatch{
		BaseAggregateRoot: m.root(),
		BatchNumber:       m.BatchNumber,
		MasterProductID:   m.MasterProductID,
		ScheduledDate:     m.ScheduledDate,
		PlannedQuantity:   m.PlannedQuantity,
		Formulation: catalog.FormulationSnapshot{
			FormulaID:       m.FormulaID,
			Density:         m.FormulaDensity,
			Viscosity:       m.FormulaViscosity,
			WaterPercentage: m.FormulaWaterPercentage,
		},
		Status:       m.Status,
		SupervisorID: m.SupervisorID,
		LabourRoster: m.LabourRoster,
		Notes:        m.Notes,
		StartedAt:    m.StartedAt,
		Actual: production.ActualProduction{
			Quantity:        m.ActualQuantity,
			Density:         m.ActualDensity,
			Viscosity:       m.ActualViscosity,
			WaterPercentage: m.ActualWaterPercentage,
			StartTime:       m.ActualStartTime,
			EndTime:         m.ActualEndTime,
			ElapsedHours:    m.ElapsedHours,
		},
		CompletedAt:   m.CompletedAt,
		CompletedBy:   m.CompletedBy,
		CancelledAt:   m.CancelledAt,
		CancelledBy:   m.CancelledBy,
		CancelReason:  m.CancelReason,
		LineItems:     make([]production.BatchLineItem, 0, len(m.LineItems)),
		MaterialLines: make([]production.BatchMaterialLine, 0, len(m.MaterialLines)),
	}
	for _, l := range m.LineItems {
		b.LineItems = append(b.LineItems, l.ToDomain())
	}
	for _, l := range m.MaterialLines {
		b.MaterialLines = append(b.MaterialLines, l.ToDomain())
	}
	return b
}

// FromDomain populates the model and its lines from a domain batch
func (m *BatchModel) FromDomain(b *production.ProductionBatch) {
	m.setRoot(b.BaseAggregateRoot)
	m.BatchNumber = b.BatchNumber
	m.MasterProductID = b.MasterProductID
	m.ScheduledDate = b.ScheduledDate
	m.PlannedQuantity = b.PlannedQuantity
	m.FormulaID = b.Formulation.FormulaID
	m.FormulaDensity = b.Formulation.Density
	m.FormulaViscosity = b.Formulation.Viscosity
	m.FormulaWaterPercentage = b.Formulation.WaterPercentage
	m.Status = b.Status
	m.SupervisorID = b.SupervisorID
	m.LabourRoster = b.LabourRoster
	m.Notes = b.Notes
	m.StartedAt = b.StartedAt
	m.ActualQuantity = b.Actual.Quantity
	m.ActualDensity = b.Actual.Density
	m.ActualViscosity = b.Actual.Viscosity
	m.ActualWaterPercentage = b.Actual.WaterPercentage
	m.ActualStartTime = b.Actual.StartTime
	m.ActualEndTime = b.Actual.EndTime
	m.ElapsedHours = b.Actual.ElapsedHours
	m.CompletedAt = b.CompletedAt
	m.CompletedBy = b.CompletedBy
	m.CancelledAt = b.CancelledAt
	m.CancelledBy = b.CancelledBy
	m.CancelReason = b.CancelReason
	m.LineItems = make([]BatchLineItemModel, 0, len(b.LineItems))
	for _, l := range b.LineItems {
		m.LineItems = append(m.LineItems, BatchLineItemModelFromDomain(b.ID, l))
	}
	m.MaterialLines = make([]BatchMaterialLineModel, 0, len(b.MaterialLines))
	for _, l := range b.MaterialLines {
		m.MaterialLines = append(m.MaterialLines, BatchMaterialLineModelFromDomain(b.ID, l))
	}
}

// BatchLineItemModel links a batch to a SKU and optionally an order
type BatchLineItemModel struct {
	ID               uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	BatchID          uuid.UUID                  `gorm:"type:uuid;not null;index"`
	SKUID            uuid.UUID                  `gorm:"column:sku_id;type:uuid;not null"`
	OrderID          *uuid.UUID                 `gorm:"type:uuid;index"`
	PlannedUnits     decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	PlannedWeight    decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	ProducedUnits    decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	ProducedWeight   decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	FulfillmentType  production.FulfillmentType `gorm:"type:varchar(20);not null"`
	InventoryApplied bool                       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BatchLineItemModel) TableName() string {
	return "batch_line_items"
}

// ToDomain converts the model to a domain line item
func (m BatchLineItemModel) ToDomain() production.BatchLineItem {
	return production.BatchLineItem{
		ID:               m.ID,
		BatchID:          m.BatchID,
		SKUID:            m.SKUID,
		OrderID:          m.OrderID,
		PlannedUnits:     m.PlannedUnits,
		PlannedWeight:    m.PlannedWeight,
		ProducedUnits:    m.ProducedUnits,
		ProducedWeight:   m.ProducedWeight,
		FulfillmentType:  m.FulfillmentType,
		InventoryApplied: m.InventoryApplied,
	}
}

// BatchLineItemModelFromDomain creates a line item model owned by batchID
func BatchLineItemModelFromDomain(batchID uuid.UUID, l production.BatchLineItem) BatchLineItemModel {
	return BatchLineItemModel{
		ID:               l.ID,
		BatchID:          batchID,
		SKUID:            l.SKUID,
		OrderID:          l.OrderID,
		PlannedUnits:     l.PlannedUnits,
		PlannedWeight:    l.PlannedWeight,
		ProducedUnits:    l.ProducedUnits,
		ProducedWeight:   l.ProducedWeight,
		FulfillmentType:  l.FulfillmentType,
		InventoryApplied: l.InventoryApplied,
	}
}

// BatchMaterialLineModel links a batch to a raw material it consumes
type BatchMaterialLineModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BatchID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	MaterialID       uuid.UUID       `gorm:"type:uuid;not null"`
	MaterialName     string          `gorm:"type:varchar(200)"`
	RequiredQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ActualQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Sequence         int             `gorm:"not null"`
	WaitingTime      int             `gorm:"not null"`
	IsAdditional     bool            `gorm:"not null"`
	Reserved         bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BatchMaterialLineModel) TableName() string {
	return "batch_material_lines"
}

// ToDomain converts the model to a domain material line
func (m BatchMaterialLineModel) ToDomain() production.BatchMaterialLine {
	return production.BatchMaterialLine{
		ID:               m.ID,
		BatchID:          m.BatchID,
		MaterialID:       m.MaterialID,
		MaterialName:     m.MaterialName,
		RequiredQuantity: m.RequiredQuantity,
		ActualQuantity:   m.ActualQuantity,
		Sequence:         m.Sequence,
		WaitingTime:      m.WaitingTime,
		IsAdditional:     m.IsAdditional,
		Reserved:         m.Reserved,
	}
}

// BatchMaterialLineModelFromDomain creates a material line model owned by batchID
func BatchMaterialLineModelFromDomain(batchID uuid.UUID, l production.BatchMaterialLine) BatchMaterialLineModel {
	return BatchMaterialLineModel{
		ID:               l.ID,
		BatchID:          batchID,
		MaterialID:       l.MaterialID,
		MaterialName:     l.MaterialName,
		RequiredQuantity: l.RequiredQuantity,
		ActualQuantity:   l.ActualQuantity,
		Sequence:         l.Sequence,
		WaitingTime:      l.WaitingTime,
		IsAdditional:     l.IsAdditional,
		Reserved:         l.Reserved,
	}
}
