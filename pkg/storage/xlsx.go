package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"clipharvest/pkg/models"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet ExportXLSX writes.
const SheetName = "Results"

// ExportXLSX writes records to a spreadsheet at path with the table columns
// as the header row. Counts stay numeric; shares is left blank when unknown.
func (s *Store) ExportXLSX(path string, records []models.VideoRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := xlsxRow(&records[i])
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save spreadsheet: %w", err)
	}

	s.logger.InfoWithFields("Spreadsheet exported", map[string]interface{}{
		"path": path,
		"rows": len(records),
	})
	return nil
}

func xlsxRow(r *models.VideoRecord) []interface{} {
	encoded := encodeRecord(r)
	var shares interface{} = ""
	if r.Shares != nil {
		shares = *r.Shares
	}
	return []interface{}{
		encoded[0],
		encoded[1],
		encoded[2],
		r.Views,
		r.Likes,
		r.Comments,
		shares,
		encoded[7],
		encoded[8],
		encoded[9],
		encoded[10],
	}
}
