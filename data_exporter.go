package hermes

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// exportCSV writes table to filename with a header row, replacing any
// previous file.
func exportCSV(filename string, table *Table) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writer.WriteAll(table.StringRows()); err != nil {
		return fmt.Errorf("failed to write records to CSV: %w", err)
	}
	return nil
}

// exportXLSX writes table to the first sheet of a new workbook. Numbers stay
// numeric cells and nulls are left blank.
func exportXLSX(filename, sheet string, table *Table) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for col, name := range table.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}
	for r, row := range table.Rows {
		for col, v := range row {
			if v.IsNull() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v.Interface()); err != nil {
				return err
			}
		}
	}
	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// exportTable writes the CSV and XLSX renditions of one job's table and
// returns their paths.
func (app *Extractor) exportTable(job string, table *Table) ([]string, error) {
	dir := app.Config.EnvString("EXPORT_DIR", filepath.Join("storage", "data"))
	csvFile := generateExportFileName(dir, app.Name, job, "csv")
	if err := exportCSV(csvFile, table); err != nil {
		return nil, err
	}
	xlsxFile := generateExportFileName(dir, app.Name, job, "xlsx")
	if err := exportXLSX(xlsxFile, job, table); err != nil {
		return []string{csvFile}, err
	}
	app.Logger.Info("Exported %d rows to %s and %s", table.Len(), csvFile, xlsxFile)
	return []string{csvFile, xlsxFile}, nil
}
