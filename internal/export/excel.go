package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/amitsh06/leadgen/internal/models"
)

const sheetName = "Leads"

// WriteExcel writes the flattened results as a styled workbook
func WriteExcel(w io.Writer, export *Export, maxTemplateLength int) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D7E4BC"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "999999", Style: 2},
		},
	})
	if err != nil {
		return &models.ExportError{Format: "excel", Err: err}
	}

	cols := headers()
	for i, col := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return &models.ExportError{Format: "excel", Err: err}
		}
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return &models.ExportError{Format: "excel", Err: err}
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(cols))
	if err != nil {
		return &models.ExportError{Format: "excel", Err: err}
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return &models.ExportError{Format: "excel", Err: err}
	}

	for r, b := range export.Results {
		row := flatten(b, maxTemplateLength)
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return &models.ExportError{Format: "excel", Err: err}
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return &models.ExportError{Format: "excel", Err: err}
			}
		}
	}

	// Reasonable reading widths; the template column stays wide
	if err := f.SetColWidth(sheetName, "A", lastCol, 20); err != nil {
		return &models.ExportError{Format: "excel", Err: err}
	}
	templateCol, err := excelize.ColumnNumberToName(len(cols))
	if err == nil {
		_ = f.SetColWidth(sheetName, templateCol, templateCol, 60)
	}

	if err := f.AutoFilter(sheetName, fmt.Sprintf("A1:%s1", lastCol), nil); err != nil {
		return &models.ExportError{Format: "excel", Err: err}
	}

	if err := f.Write(w); err != nil {
		return &models.ExportError{Format: "excel", Err: err}
	}
	return nil
}
