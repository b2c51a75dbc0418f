package interpreter

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/PabloGalante/tabula/internal/table"
)

// rule inspects a request. It returns nil, nil when it does not apply.
type rule struct {
	name string
	run  func(*request) (*Result, error)
}

func defaultRules() []rule {
	return []rule{
		{"help", helpRule},
		{"top", topRule},
		{"bottom", bottomRule},
		{"numeric_filter", numericFilterRule},
		{"keyword_filter", keywordFilterRule},
		{"drop_columns", dropColumnsRule},
		{"drop_row", dropRowRule},
		{"sort", sortRule},
		{"reset", resetRule},
	}
}

func helpRule(r *request) (*Result, error) {
	if !containsAny(r.folded, helpTriggers) {
		return nil, nil
	}
	return &Result{
		Message: Guide(r.store.Name(), r.current),
		Table:   r.current.Head(5),
	}, nil
}

func topRule(r *request) (*Result, error) {
	m := topPattern.FindStringSubmatch(r.folded)
	if m == nil {
		return nil, nil
	}
	k, err := parseCount(m[1])
	if err != nil {
		return nil, err
	}
	out, err := r.store.TopK(k)
	if err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("상위 %d개 데이터를 보여드립니다:", k), Table: out}, nil
}

func bottomRule(r *request) (*Result, error) {
	m := bottomPattern.FindStringSubmatch(r.folded)
	if m == nil {
		return nil, nil
	}
	k, err := parseCount(m[1])
	if err != nil {
		return nil, err
	}
	out, err := r.store.BottomK(k)
	if err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("하위 %d개 데이터를 보여드립니다:", k), Table: out}, nil
}

// numericFilterRule commits the first mentioned column whose comparison
// keeps at least one row.
func numericFilterRule(r *request) (*Result, error) {
	m := numericPattern.FindStringSubmatch(r.folded)
	if m == nil || len(r.mentioned) == 0 {
		return nil, nil
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: number %q", table.ErrInvalidOperationInput, m[1])
	}
	op := comparisonOps[m[2]]

	for _, col := range r.mentioned {
		hits, err := r.current.FilterNumeric(col, op, value)
		if err != nil || hits.Len() == 0 {
			continue
		}
		out, err := r.store.FilterNumeric(col, op, value)
		if err != nil {
			return nil, err
		}
		r.store.Commit(out)
		return &Result{
			Message:   fmt.Sprintf("'%s' 컬럼에서 조건에 맞는 데이터를 필터링했습니다:", col),
			Table:     out,
			Committed: true,
		}, nil
	}
	return nil, nil
}

// keywordFilterRule tries every named column in order: first the domain
// keywords, then a condition extracted from the surrounding words. Only a
// non-empty result is returned.
func keywordFilterRule(r *request) (*Result, error) {
	for _, col := range r.named {
		for _, kw := range domainKeywords {
			if !containsKeyword(r.folded, kw) {
				continue
			}
			if !r.yields(col, kw) {
				continue
			}
			out, err := r.store.FilterByColumn(col, kw, table.MatchContains)
			if err != nil {
				return nil, err
			}
			return &Result{
				Message: fmt.Sprintf("'%s' 컬럼에서 '%s' 관련 데이터를 필터링했습니다:", col, kw),
				Table:   out,
			}, nil
		}

		for _, re := range conditionPatterns(table.FoldCase(col)) {
			m := re.FindStringSubmatch(r.folded)
			if m == nil {
				continue
			}
			cond := cleanCondition(m[1])
			if utf8.RuneCountInString(cond) <= 1 || !r.yields(col, cond) {
				continue
			}
			out, err := r.store.FilterByColumn(col, cond, table.MatchContains)
			if err != nil {
				return nil, err
			}
			return &Result{
				Message: fmt.Sprintf("'%s' 컬럼에서 '%s' 조건으로 필터링했습니다:", col, cond),
				Table:   out,
			}, nil
		}
	}
	return nil, nil
}

// yields reports whether a contains-filter on col would keep any row.
func (r *request) yields(col, cond string) bool {
	out, err := r.current.Filter(col, table.StringValue(cond), table.MatchContains)
	return err == nil && out.Len() > 0
}

// dropColumnsRule drops the first mentioned column only.
func dropColumnsRule(r *request) (*Result, error) {
	if !containsAny(r.folded, deleteKeywords) || len(r.mentioned) == 0 {
		return nil, nil
	}
	col := r.mentioned[0]
	out, err := r.store.DropColumns(col)
	if err != nil {
		return nil, err
	}
	r.store.Commit(out)
	return &Result{
		Message:   fmt.Sprintf("'%s' 컬럼을 삭제했습니다:", col),
		Table:     out,
		Committed: true,
	}, nil
}

// dropRowRule reads a 1-based position and removes the row at that position
// of the working table. Positions outside the table do not match.
func dropRowRule(r *request) (*Result, error) {
	m := rowDropPattern.FindStringSubmatch(r.folded)
	if m == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, nil
	}
	id, ok := r.current.RowID(n - 1)
	if !ok {
		return nil, nil
	}
	out, err := r.store.DropRows(id)
	if err != nil {
		return nil, err
	}
	r.store.Commit(out)
	return &Result{
		Message:   fmt.Sprintf("%d번째 행을 삭제했습니다:", n),
		Table:     out,
		Committed: true,
	}, nil
}

func sortRule(r *request) (*Result, error) {
	if !containsAny(r.folded, sortKeywords) || len(r.mentioned) == 0 {
		return nil, nil
	}
	col := r.mentioned[0]
	asc := sortDirection(r.folded)
	out, err := r.store.SortByColumn(col, asc)
	if err != nil {
		return nil, err
	}
	r.store.Commit(out)
	return &Result{
		Message:   fmt.Sprintf("'%s' 컬럼 기준으로 %s 정렬했습니다:", col, table.OrderLabel(asc)),
		Table:     out,
		Committed: true,
	}, nil
}

// sortDirection is ascending unless only descending cues are present.
func sortDirection(folded string) bool {
	if containsAny(folded, ascendingCues) {
		return true
	}
	return !containsAny(folded, descendingCues)
}

func resetRule(r *request) (*Result, error) {
	if !containsAny(r.folded, resetKeywords) {
		return nil, nil
	}
	out := r.store.ResetToOriginal()
	return &Result{Message: "원본 데이터로 복원했습니다:", Table: out, Committed: true}, nil
}

func parseCount(s string) (int, error) {
	k, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: count %q", table.ErrInvalidOperationInput, s)
	}
	return k, nil
}
