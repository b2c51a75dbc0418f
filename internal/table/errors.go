package table

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrColumnNotFound is returned when an operation names a column the table does not have.
	ErrColumnNotFound = errors.New("column not found")

	// ErrNoValidIndices is returned when a row drop matches none of the table's row ids.
	ErrNoValidIndices = errors.New("no valid row indices")

	// ErrInvalidOperationInput is returned for malformed parameters (negative k, unknown operator, ...).
	ErrInvalidOperationInput = errors.New("invalid operation input")
)

// ColumnNotFoundError lists every requested column that is missing.
type ColumnNotFoundError struct {
	Columns []string
}

func (e *ColumnNotFoundError) Error() string {
	quoted := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		quoted[i] = fmt.Sprintf("'%s'", c)
	}
	return fmt.Sprintf("존재하지 않는 컬럼: [%s]", strings.Join(quoted, ", "))
}

func (e *ColumnNotFoundError) Unwrap() error { return ErrColumnNotFound }

func missingColumns(cols ...string) error {
	return &ColumnNotFoundError{Columns: cols}
}
