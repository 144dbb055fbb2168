// Package export renders planning data as downloadable documents
package export

import (
	"fmt"
	"io"

	appplanning "github.com/paintworks/backend/internal/application/planning"
	"github.com/xuri/excelize/v2"
)

const (
	bomSheet     = "Consolidated BOM"
	missingSheet = "Missing Recipes"
)

var bomHeaders = []string{"Sequence", "Material", "Material ID", "Required", "Available", "Shortfall"}

// BOMWorkbookWriter writes consolidated BOMs as XLSX workbooks
type BOMWorkbookWriter struct{}

// NewBOMWorkbookWriter creates a new BOMWorkbookWriter
func NewBOMWorkbookWriter() *BOMWorkbookWriter {
	return &BOMWorkbookWriter{}
}

// WriteConsolidatedBOM writes one row per material, and a second sheet
// listing SKUs that had no active formula when there are any
func (BOMWorkbookWriter) WriteConsolidatedBOM(w io.Writer, bom *appplanning.ConsolidatedBOMResponse) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", bomSheet); err != nil {
		return err
	}
	if err := writeRow(f, bomSheet, 1, toCells(bomHeaders)); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(bomSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, m := range bom.Materials {
		required, _ := m.RequiredQuantity.Float64()
		available, _ := m.AvailableQuantity.Float64()
		shortfall, _ := m.Shortfall.Float64()
		row := []interface{}{m.Sequence, m.MaterialName, m.MaterialID.String(), required, available, shortfall}
		if err := writeRow(f, bomSheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(bomSheet, "B", "C", 38); err != nil {
		return err
	}

	if len(bom.MissingRecipeSKUs) > 0 {
		if _, err := f.NewSheet(missingSheet); err != nil {
			return err
		}
		if err := f.SetCellValue(missingSheet, "A1", "SKU ID"); err != nil {
			return err
		}
		for i, id := range bom.MissingRecipeSKUs {
			if err := f.SetCellValue(missingSheet, fmt.Sprintf("A%d", i+2), id.String()); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}

func writeRow(f *excelize.File, sheet string, rowNo int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

var _ appplanning.WorkbookWriter = (*BOMWorkbookWriter)(nil)
