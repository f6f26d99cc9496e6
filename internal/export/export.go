// Package export writes a resolved grid as a spreadsheet or CSV file.
//
// Input is the table produced by grid.ExportGrid: first row is the header,
// remaining rows are formatted cell values.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// DefaultSheetName is the worksheet name used when none is configured.
const DefaultSheetName = "Export"

// ParseFormat reads a format name, accepting an optional leading dot.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (expected xlsx or csv)", s)
	}
}

// FormatForPath picks the format from the file extension of path.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Write dispatches to the writer for format.
func Write(w io.Writer, format Format, rows [][]string, sheetName string) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, rows, sheetName)
	case FormatCSV:
		return WriteCSV(w, rows)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteXLSX writes rows to a single-sheet workbook with an autofilter over
// the header row.
func WriteXLSX(w io.Writer, rows [][]string, sheetName string) (err error) {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	width := 0
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
		if len(row) > width {
			width = len(row)
		}
	}

	if width > 0 && len(rows) > 0 {
		last, err := excelize.CoordinatesToCellName(width, len(rows))
		if err != nil {
			return err
		}
		if err := f.AutoFilter(sheetName, "A1:"+last, nil); err != nil {
			return fmt.Errorf("failed to add autofilter: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV writes rows as RFC 4180 CSV.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
