package ChangeLog

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const historySheet = "History"

var historyHeaders = []string{"Entity", "Entity ID", "Field", "Old Value", "New Value", "Updated By", "Updated At"}

// ExportXLSX renders change-log entries as a single-sheet workbook
func ExportXLSX(entries []Entry) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes the history sheet
	f.SetSheetName(f.GetSheetName(0), historySheet)

	for i, header := range historyHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(historySheet, cell, header)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(historySheet, 1, 1, headerStyle)
	}

	for r, e := range entries {
		values := []any{
			e.Entity,
			e.EntityID,
			e.FieldName,
			e.OldValue,
			e.NewValue,
			e.UpdatedBy,
			e.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(historySheet, cell, v)
		}
	}
	f.SetColWidth(historySheet, "A", "G", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}
	return &buf, nil
}
