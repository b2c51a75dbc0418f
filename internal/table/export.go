package table

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// utf8BOM prefixes CSV exports so spreadsheet tools detect UTF-8 (Korean headers).
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SheetName is the single worksheet written by WriteXLSX.
const SheetName = "Data"

// WriteCSV writes header and rows without the row-id column.
func WriteCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(t.ColumnNames()); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, r := range t.rows {
		rec := make([]string, len(r))
		for j, v := range r {
			rec[j] = v.Text()
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes a one-sheet workbook: header row then values in column
// order, no row-id column.
func WriteXLSX(t *Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet writer: %w", err)
	}

	header := make([]any, t.Width())
	for i, name := range t.ColumnNames() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(r))
		for j, v := range r {
			values[j] = v.Raw()
		}
		if err := sw.SetRow(cell, values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
