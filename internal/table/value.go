package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the storage type of a cell or column.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
)

// String returns the dtype label used in summaries.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindString:
		return "object"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Numeric reports whether values of this kind take part in numeric statistics.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// Value is an immutable typed cell.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

func NullValue() Value           { return Value{kind: KindNull} }
func IntValue(v int64) Value     { return Value{kind: KindInt, i: v} }
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

func FloatValue(v float64) Value {
	if math.IsNaN(v) {
		return NullValue()
	}
	return Value{kind: KindFloat, f: v}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Raw returns the underlying Go value (nil, int64, float64 or string).
func (v Value) Raw() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	default:
		return nil
	}
}

// Text is the text coercion of the cell. Null cells render as "".
// Floats always keep a fractional part so 100000 stored as float reads "100000.0".
func (v Value) Text() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// String implements fmt.Stringer; nulls print as NaN.
func (v Value) String() string {
	if v.kind == KindNull {
		return "NaN"
	}
	return v.Text()
}

// Number coerces the cell to float64. Text that does not parse as a number
// and null cells report false.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Equal is native cell equality: numbers compare numerically across int and
// float, strings compare exactly, and null never equals anything.
func (v Value) Equal(o Value) bool {
	switch {
	case v.kind == KindNull || o.kind == KindNull:
		return false
	case v.kind == KindString || o.kind == KindString:
		return v.kind == o.kind && v.s == o.s
	case v.kind == KindInt && o.kind == KindInt:
		return v.i == o.i
	default:
		a, _ := v.Number()
		b, _ := o.Number()
		return a == b
	}
}

// compare orders two non-null values: numbers before strings, numbers
// numerically, strings lexicographically.
func compare(a, b Value) int {
	an, bn := a.kind.Numeric(), b.kind.Numeric()
	switch {
	case an && bn:
		if a.kind == KindInt && b.kind == KindInt {
			return cmpOrdered(a.i, b.i)
		}
		x, _ := a.Number()
		y, _ := b.Number()
		return cmpOrdered(x, y)
	case an:
		return -1
	case bn:
		return 1
	default:
		return strings.Compare(a.s, b.s)
	}
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindFloat && math.IsInf(v.f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v.Raw())
}

// ParseValue converts a raw text cell the way CSV readers do: blank and the
// usual NA markers become null, integers and floats are recognised, anything
// else stays text.
func ParseValue(s string) Value {
	t := strings.TrimSpace(s)
	if isNA(t) {
		return NullValue()
	}
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return FloatValue(f)
	}
	return StringValue(s)
}

var naMarkers = map[string]struct{}{
	"": {}, "#N/A": {}, "N/A": {}, "NA": {}, "NULL": {}, "NaN": {},
	"None": {}, "n/a": {}, "nan": {}, "null": {}, "<NA>": {},
}

func isNA(s string) bool {
	_, ok := naMarkers[s]
	return ok
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
