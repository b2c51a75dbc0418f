package table

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ColumnStats are the descriptive statistics of one numeric column.
type ColumnStats struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// NumericStats computes count/mean/std/quartiles for every numeric column.
// Std is the sample standard deviation; quartiles use linear interpolation.
func NumericStats(t *Table) []ColumnStats {
	var out []ColumnStats
	for ci, c := range t.columns {
		if !c.Kind.Numeric() {
			continue
		}
		var xs []float64
		for _, r := range t.rows {
			if n, ok := r[ci].Number(); ok {
				xs = append(xs, n)
			}
		}
		st := ColumnStats{Column: c.Name, Count: len(xs)}
		if len(xs) > 0 {
			slices.Sort(xs)
			st.Mean = mean(xs)
			st.Std = sampleStd(xs, st.Mean)
			st.Min = xs[0]
			st.Q1 = quantile(xs, 0.25)
			st.Median = quantile(xs, 0.5)
			st.Q3 = quantile(xs, 0.75)
			st.Max = xs[len(xs)-1]
		} else {
			st.Mean, st.Std, st.Min, st.Q1, st.Median, st.Q3, st.Max =
				math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
		}
		out = append(out, st)
	}
	return out
}

// Describe renders descriptive statistics. Numeric columns get
// count/mean/std/min/25%/50%/75%/max; a table without numeric columns gets
// count/unique/top/freq per column instead.
func Describe(t *Table) string {
	stats := NumericStats(t)
	if len(stats) == 0 {
		return describeText(t)
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{""}
	for _, s := range stats {
		header = append(header, s.Column)
	}
	fmt.Fprintln(w, strings.Join(header, "\t")+"\t")

	rows := []struct {
		label string
		get   func(ColumnStats) float64
	}{
		{"count", func(s ColumnStats) float64 { return float64(s.Count) }},
		{"mean", func(s ColumnStats) float64 { return s.Mean }},
		{"std", func(s ColumnStats) float64 { return s.Std }},
		{"min", func(s ColumnStats) float64 { return s.Min }},
		{"25%", func(s ColumnStats) float64 { return s.Q1 }},
		{"50%", func(s ColumnStats) float64 { return s.Median }},
		{"75%", func(s ColumnStats) float64 { return s.Q3 }},
		{"max", func(s ColumnStats) float64 { return s.Max }},
	}
	for _, r := range rows {
		cells := []string{r.label}
		for _, s := range stats {
			cells = append(cells, formatStat(r.get(s)))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t")+"\t")
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func describeText(t *Table) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "\t"+strings.Join(t.ColumnNames(), "\t")+"\t")

	counts := make([]string, t.Width())
	uniques := make([]string, t.Width())
	tops := make([]string, t.Width())
	freqs := make([]string, t.Width())
	for ci := range t.columns {
		freq := map[string]int{}
		var order []string
		count := 0
		for _, r := range t.rows {
			if r[ci].IsNull() {
				continue
			}
			count++
			k := r[ci].Text()
			if freq[k] == 0 {
				order = append(order, k)
			}
			freq[k]++
		}
		top, best := "NaN", 0
		for _, k := range order {
			if freq[k] > best {
				top, best = k, freq[k]
			}
		}
		counts[ci] = strconv.Itoa(count)
		uniques[ci] = strconv.Itoa(len(order))
		tops[ci] = top
		freqs[ci] = strconv.Itoa(best)
	}
	fmt.Fprintln(w, "count\t"+strings.Join(counts, "\t")+"\t")
	fmt.Fprintln(w, "unique\t"+strings.Join(uniques, "\t")+"\t")
	fmt.Fprintln(w, "top\t"+strings.Join(tops, "\t")+"\t")
	fmt.Fprintln(w, "freq\t"+strings.Join(freqs, "\t")+"\t")
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sampleStd(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// quantile expects sorted input.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func formatStat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}
