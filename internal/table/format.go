package table

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Format renders t as an aligned text grid with the row id as the leading
// column. limit <= 0 renders every row.
func Format(t *Table, limit int) string {
	n := t.Len()
	if limit > 0 && limit < n {
		n = limit
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := append([]string{""}, t.ColumnNames()...)
	fmt.Fprintln(w, strings.Join(header, "\t")+"\t")
	for i := 0; i < n; i++ {
		cells := make([]string, 0, t.Width()+1)
		cells = append(cells, strconv.Itoa(t.ids[i]))
		for _, v := range t.rows[i] {
			cells = append(cells, v.String())
		}
		fmt.Fprintln(w, strings.Join(cells, "\t")+"\t")
	}
	_ = w.Flush()

	out := strings.TrimRight(b.String(), "\n")
	if t.Len() == 0 {
		out += "\n(empty)"
	}
	return out
}

// DTypes lists each column with its kind.
func DTypes(t *Table) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 4, ' ', 0)
	for _, c := range t.columns {
		fmt.Fprintf(w, "%s\t%s\n", c.Name, c.Kind)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
