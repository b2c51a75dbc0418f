// Package table holds the in-memory dataset model: typed cells, immutable
// table snapshots with stable row ids, and the Store that tracks an
// original/working pair plus an operation history.
package table

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Column describes one named, typed column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"-"`
}

// Table is an immutable snapshot. Every operation returns a new Table and
// never touches the receiver, so snapshots can be shared freely.
type Table struct {
	columns []Column
	ids     []int
	rows    [][]Value
}

// New builds a table with row ids 0..len(rows)-1.
func New(columns []Column, rows [][]Value) (*Table, error) {
	ids := make([]int, len(rows))
	for i := range ids {
		ids[i] = i
	}
	return newWithIDs(columns, ids, rows)
}

func newWithIDs(columns []Column, ids []int, rows [][]Value) (*Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidOperationInput, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidOperationInput, i, len(r), len(columns))
		}
	}
	return &Table{
		columns: slices.Clone(columns),
		ids:     slices.Clone(ids),
		rows:    cloneRows(rows),
	}, nil
}

// Empty returns a table with the given columns and no rows.
func Empty(columns []Column) *Table {
	return &Table{columns: slices.Clone(columns)}
}

func (t *Table) Len() int   { return len(t.rows) }
func (t *Table) Width() int { return len(t.columns) }

func (t *Table) Columns() []Column { return slices.Clone(t.columns) }

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// RowIDs returns the stable row identifiers in current order.
func (t *Table) RowIDs() []int { return slices.Clone(t.ids) }

// RowID returns the identifier of the row at position pos.
func (t *Table) RowID(pos int) (int, bool) {
	if pos < 0 || pos >= len(t.ids) {
		return 0, false
	}
	return t.ids[pos], true
}

// Row returns a copy of the row at position pos.
func (t *Table) Row(pos int) []Value { return slices.Clone(t.rows[pos]) }

func (t *Table) Cell(pos, col int) Value { return t.rows[pos][col] }

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]Value, error) {
	ci := t.ColumnIndex(name)
	if ci < 0 {
		return nil, missingColumns(name)
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[ci]
	}
	return out, nil
}

// Clone returns a deep copy that shares no slices with t.
func (t *Table) Clone() *Table {
	return &Table{
		columns: slices.Clone(t.columns),
		ids:     slices.Clone(t.ids),
		rows:    cloneRows(t.rows),
	}
}

// Head returns the first k rows; k is clamped to [0, Len].
func (t *Table) Head(k int) *Table {
	k = clamp(k, len(t.rows))
	return t.pick(seq(0, k))
}

// Tail returns the last k rows in their existing order.
func (t *Table) Tail(k int) *Table {
	k = clamp(k, len(t.rows))
	return t.pick(seq(len(t.rows)-k, len(t.rows)))
}

// Where keeps the rows for which keep reports true.
func (t *Table) Where(keep func(row []Value) bool) *Table {
	var positions []int
	for i, r := range t.rows {
		if keep(r) {
			positions = append(positions, i)
		}
	}
	return t.pick(positions)
}

// Filter matches cond against column using method. Text methods coerce the
// cell to text and ignore case; MatchEquals uses native equality.
func (t *Table) Filter(column string, cond Value, method MatchMethod) (*Table, error) {
	ci := t.ColumnIndex(column)
	if ci < 0 {
		return nil, missingColumns(column)
	}

	if method == MatchEquals {
		return t.Where(func(r []Value) bool { return r[ci].Equal(cond) }), nil
	}

	needle := FoldCase(cond.Text())
	var match func(string) bool
	switch method {
	case MatchStartsWith:
		match = func(s string) bool { return strings.HasPrefix(s, needle) }
	case MatchEndsWith:
		match = func(s string) bool { return strings.HasSuffix(s, needle) }
	case MatchContains:
		match = func(s string) bool { return strings.Contains(s, needle) }
	default:
		return nil, fmt.Errorf("%w: unknown match method %d", ErrInvalidOperationInput, int(method))
	}

	return t.Where(func(r []Value) bool {
		if r[ci].IsNull() {
			return false
		}
		return match(FoldCase(r[ci].Text()))
	}), nil
}

// FilterNumeric coerces column to numbers and keeps rows satisfying op value.
// Cells that do not coerce are excluded.
func (t *Table) FilterNumeric(column string, op CompareOp, value float64) (*Table, error) {
	ci := t.ColumnIndex(column)
	if ci < 0 {
		return nil, missingColumns(column)
	}
	if !op.valid() {
		return nil, fmt.Errorf("%w: unknown comparison %d", ErrInvalidOperationInput, int(op))
	}
	return t.Where(func(r []Value) bool {
		n, ok := r[ci].Number()
		return ok && op.apply(n, value)
	}), nil
}

// DropColumns removes the named columns. Every name must exist.
func (t *Table) DropColumns(names ...string) (*Table, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no columns given", ErrInvalidOperationInput)
	}
	var missing []string
	drop := make(map[int]struct{}, len(names))
	for _, n := range names {
		ci := t.ColumnIndex(n)
		if ci < 0 {
			missing = append(missing, n)
			continue
		}
		drop[ci] = struct{}{}
	}
	if len(missing) > 0 {
		return nil, missingColumns(missing...)
	}

	keep := make([]int, 0, len(t.columns)-len(drop))
	for i := range t.columns {
		if _, ok := drop[i]; !ok {
			keep = append(keep, i)
		}
	}

	cols := make([]Column, len(keep))
	for j, ci := range keep {
		cols[j] = t.columns[ci]
	}
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		nr := make([]Value, len(keep))
		for j, ci := range keep {
			nr[j] = r[ci]
		}
		rows[i] = nr
	}
	return &Table{columns: cols, ids: slices.Clone(t.ids), rows: rows}, nil
}

// DropRows removes rows by id. Unknown ids are ignored; if none of them is
// present ErrNoValidIndices is returned. The ids actually removed are
// returned in request order.
func (t *Table) DropRows(ids ...int) (*Table, []int, error) {
	present := make(map[int]struct{}, len(t.ids))
	for _, id := range t.ids {
		present[id] = struct{}{}
	}

	var valid []int
	drop := make(map[int]struct{})
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			continue
		}
		if _, dup := drop[id]; dup {
			continue
		}
		drop[id] = struct{}{}
		valid = append(valid, id)
	}
	if len(valid) == 0 {
		return nil, nil, ErrNoValidIndices
	}

	positions := make([]int, 0, len(t.ids)-len(valid))
	for i, id := range t.ids {
		if _, ok := drop[id]; !ok {
			positions = append(positions, i)
		}
	}
	return t.pick(positions), valid, nil
}

// SortBy stably sorts rows by column. Nulls go last in both directions.
func (t *Table) SortBy(column string, ascending bool) (*Table, error) {
	ci := t.ColumnIndex(column)
	if ci < 0 {
		return nil, missingColumns(column)
	}

	positions := seq(0, len(t.rows))
	slices.SortStableFunc(positions, func(a, b int) int {
		va, vb := t.rows[a][ci], t.rows[b][ci]
		switch {
		case va.IsNull() && vb.IsNull():
			return 0
		case va.IsNull():
			return 1
		case vb.IsNull():
			return -1
		}
		c := compare(va, vb)
		if !ascending {
			c = -c
		}
		return c
	})
	return t.pick(positions), nil
}

func (t *Table) pick(positions []int) *Table {
	out := &Table{
		columns: slices.Clone(t.columns),
		ids:     make([]int, len(positions)),
		rows:    make([][]Value, len(positions)),
	}
	for j, p := range positions {
		out.ids[j] = t.ids[p]
		out.rows[j] = slices.Clone(t.rows[p])
	}
	return out
}

// MatchMethod selects how Filter compares a condition to a cell.
type MatchMethod int

const (
	MatchContains MatchMethod = iota
	MatchEquals
	MatchStartsWith
	MatchEndsWith
)

func (m MatchMethod) String() string {
	switch m {
	case MatchContains:
		return "contains"
	case MatchEquals:
		return "equals"
	case MatchStartsWith:
		return "startswith"
	case MatchEndsWith:
		return "endswith"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMatchMethod maps a method name to a MatchMethod. Unknown names fall
// back to contains.
func ParseMatchMethod(s string) MatchMethod {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equals", "eq", "==":
		return MatchEquals
	case "startswith", "prefix":
		return MatchStartsWith
	case "endswith", "suffix":
		return MatchEndsWith
	default:
		return MatchContains
	}
}

// CompareOp is a numeric comparison against a constant.
type CompareOp int

const (
	OpGreaterEqual CompareOp = iota
	OpLessEqual
	OpGreater
	OpLess
)

func (op CompareOp) String() string {
	switch op {
	case OpGreaterEqual:
		return ">="
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

func (op CompareOp) valid() bool { return op >= OpGreaterEqual && op <= OpLess }

func (op CompareOp) apply(x, y float64) bool {
	switch op {
	case OpGreaterEqual:
		return x >= y
	case OpLessEqual:
		return x <= y
	case OpGreater:
		return x > y
	case OpLess:
		return x < y
	default:
		return false
	}
}

// FoldCase returns the case-folded form of s used for case-insensitive matching.
func FoldCase(s string) string {
	return cases.Fold().String(s)
}

func clamp(k, n int) int {
	if k < 0 {
		return 0
	}
	if k > n {
		return n
	}
	return k
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func cloneRows(rows [][]Value) [][]Value {
	out := make([][]Value, len(rows))
	for i, r := range rows {
		out[i] = slices.Clone(r)
	}
	return out
}

type tableJSON struct {
	Columns []string  `json:"columns"`
	Types   []string  `json:"types"`
	RowIDs  []int     `json:"row_ids"`
	Rows    [][]Value `json:"rows"`
}

func (t *Table) MarshalJSON() ([]byte, error) {
	types := make([]string, len(t.columns))
	for i, c := range t.columns {
		types[i] = c.Kind.String()
	}
	out := tableJSON{
		Columns: t.ColumnNames(),
		Types:   types,
		RowIDs:  t.ids,
		Rows:    t.rows,
	}
	if out.RowIDs == nil {
		out.RowIDs = []int{}
		out.Rows = [][]Value{}
	}
	return json.Marshal(out)
}
