package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/PabloGalante/tabula/internal/table"
)

// ReadXLSX loads the first worksheet of a workbook. The first row is the
// header; ragged rows are padded with nulls.
func ReadXLSX(r io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("open workbook: no sheets: %w", table.ErrInvalidOperationInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read sheet %q: empty: %w", sheets[0], table.ErrInvalidOperationInput)
	}

	header := rows[0]
	body := rows[1:]
	// GetRows trims trailing empty cells, so a row can be wider than a
	// short header only when the header itself has gaps at the end.
	width := len(header)
	for _, r := range body {
		width = max(width, len(r))
	}
	for len(header) < width {
		header = append(header, "")
	}
	return table.FromRecords(header, body)
}
