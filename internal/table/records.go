package table

import (
	"fmt"
	"strings"
)

// FromRecords builds a table from a header row and text records, inferring
// one kind per column. A column is int64 when every non-null cell is an
// integer, float64 when every non-null cell is numeric, and text otherwise.
// Short records are padded with nulls; long records are rejected.
func FromRecords(header []string, records [][]string) (*Table, error) {
	names := normalizeHeader(header)
	width := len(names)

	parsed := make([][]Value, len(records))
	for i, rec := range records {
		if len(rec) > width {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrInvalidOperationInput, i+2, len(rec), width)
		}
		row := make([]Value, width)
		for j := range row {
			if j < len(rec) {
				row[j] = ParseValue(rec[j])
			} else {
				row[j] = NullValue()
			}
		}
		parsed[i] = row
	}

	columns := make([]Column, width)
	for j, name := range names {
		kind := inferKind(parsed, j)
		columns[j] = Column{Name: name, Kind: kind}
		for i := range parsed {
			parsed[i][j] = conform(parsed[i][j], records[i], j, kind)
		}
	}

	return New(columns, parsed)
}

func inferKind(rows [][]Value, col int) Kind {
	kind := KindNull
	for _, r := range rows {
		switch v := r[col]; v.Kind() {
		case KindString:
			return KindString
		case KindFloat:
			kind = KindFloat
		case KindInt:
			if kind == KindNull {
				kind = KindInt
			}
		}
	}
	if kind == KindNull {
		// all-null columns behave like pandas' float64 NaN columns
		return KindFloat
	}
	return kind
}

func conform(v Value, rec []string, col int, kind Kind) Value {
	if v.IsNull() {
		return v
	}
	switch kind {
	case KindFloat:
		if v.Kind() == KindInt {
			f, _ := v.Number()
			return FloatValue(f)
		}
	case KindString:
		if v.Kind() != KindString {
			return StringValue(rec[col])
		}
	}
	return v
}

// normalizeHeader fills blank names with "Unnamed: i" and suffixes
// duplicates with ".1", ".2", ..., skipping suffixes already taken.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	next := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for used[name] {
			next[base]++
			name = fmt.Sprintf("%s.%d", base, next[base])
		}
		used[name] = true
		out[i] = name
	}
	return out
}
