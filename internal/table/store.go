package table

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// RecentHistory is how many history entries Summarize shows.
const RecentHistory = 5

// Store owns the original/working table pair of one uploaded dataset.
//
// Every transform computes a candidate table from Current and appends a
// history entry; Current only moves through Commit and ResetToOriginal.
// Original is never handed out by pointer to Current.
type Store struct {
	mu       sync.RWMutex
	name     string
	original *Table
	current  *Table
	history  []string
}

// NewStore snapshots t as both the original and the working table.
func NewStore(name string, t *Table) *Store {
	return &Store{
		name:     name,
		original: t.Clone(),
		current:  t.Clone(),
	}
}

func (s *Store) Name() string { return s.name }

// Original returns the load-time snapshot.
func (s *Store) Original() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.original
}

// Current returns the working snapshot.
func (s *Store) Current() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// History returns every recorded operation, oldest first.
func (s *Store) History() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// TopK returns the first k rows of the working table.
func (s *Store) TopK(k int) (*Table, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: k must be >= 0, got %d", ErrInvalidOperationInput, k)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.current.Head(k)
	s.record(fmt.Sprintf("상위 %d개 데이터 조회", k))
	return out, nil
}

// BottomK returns the last k rows of the working table, order preserved.
func (s *Store) BottomK(k int) (*Table, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: k must be >= 0, got %d", ErrInvalidOperationInput, k)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.current.Tail(k)
	s.record(fmt.Sprintf("하위 %d개 데이터 조회", k))
	return out, nil
}

// FilterByColumn matches condition text against column. For MatchEquals the
// condition is compared as a text cell without coercion.
func (s *Store) FilterByColumn(column, condition string, method MatchMethod) (*Table, error) {
	return s.filter(column, StringValue(condition), method)
}

// FilterEquals keeps rows whose cell equals v natively.
func (s *Store) FilterEquals(column string, v Value) (*Table, error) {
	return s.filter(column, v, MatchEquals)
}

func (s *Store) filter(column string, cond Value, method MatchMethod) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.current.Filter(column, cond, method)
	if err != nil {
		return nil, err
	}
	s.record(fmt.Sprintf("'%s' 컬럼에서 '%s' 조건으로 필터링 (%s)", column, cond.Text(), method))
	return out, nil
}

// FilterNumeric keeps rows whose column coerces to a number satisfying op value.
func (s *Store) FilterNumeric(column string, op CompareOp, value float64) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.current.FilterNumeric(column, op, value)
	if err != nil {
		return nil, err
	}
	s.record(fmt.Sprintf("'%s' 컬럼 숫자 조건 필터링: %s %s", column, op, strconv.FormatFloat(value, 'f', -1, 64)))
	return out, nil
}

// DropColumns returns the working table without columns.
func (s *Store) DropColumns(columns ...string) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.current.DropColumns(columns...)
	if err != nil {
		return nil, err
	}
	s.record("컬럼 삭제: " + strings.Join(columns, ", "))
	return out, nil
}

// DropRows returns the working table without the given row ids.
func (s *Store) DropRows(ids ...int) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, removed, err := s.current.DropRows(ids...)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(removed))
	for i, id := range removed {
		parts[i] = strconv.Itoa(id)
	}
	s.record("행 삭제: 인덱스 " + strings.Join(parts, ", "))
	return out, nil
}

// SortByColumn returns the working table stably sorted by column.
func (s *Store) SortByColumn(column string, ascending bool) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.current.SortBy(column, ascending)
	if err != nil {
		return nil, err
	}
	s.record(fmt.Sprintf("'%s' 컬럼 기준 %s 정렬", column, OrderLabel(ascending)))
	return out, nil
}

// Commit replaces the working table.
func (s *Store) Commit(t *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = t.Clone()
}

// ResetToOriginal restores the working table to the load-time snapshot.
func (s *Store) ResetToOriginal() *Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = s.original.Clone()
	s.record("원본 데이터로 복원")
	return s.current
}

// Summarize describes the working table and the last few operations.
func (s *Store) Summarize() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "데이터셋: %s\n", s.name)
	fmt.Fprintf(&b, "행 수: %d\n", s.current.Len())
	fmt.Fprintf(&b, "열 수: %d\n", s.current.Width())
	fmt.Fprintf(&b, "컬럼: %s\n", strings.Join(s.current.ColumnNames(), ", "))
	if len(s.history) > 0 {
		b.WriteString("수행한 작업:\n")
		recent := s.history[max(0, len(s.history)-RecentHistory):]
		for i, op := range recent {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- " + op)
		}
	}
	return b.String()
}

// ExportCSV serialises the working table as UTF-8 CSV with a byte-order mark.
func (s *Store) ExportCSV() ([]byte, error) { return WriteCSV(s.Current()) }

// ExportExcel serialises the working table as a one-sheet workbook.
func (s *Store) ExportExcel() ([]byte, error) { return WriteXLSX(s.Current()) }

// ExportParquet serialises the working table as a Parquet file.
func (s *Store) ExportParquet() ([]byte, error) { return WriteParquet(s.Current()) }

func (s *Store) record(entry string) {
	s.history = append(s.history, entry)
}

// OrderLabel names a sort direction the way history entries do.
func OrderLabel(ascending bool) string {
	if ascending {
		return "오름차순"
	}
	return "내림차순"
}
