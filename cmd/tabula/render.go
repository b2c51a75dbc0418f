package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/PabloGalante/tabula/internal/models"
	"github.com/PabloGalante/tabula/internal/table"
)

// previewRows is how many rows the REPL prints for a table result.
const previewRows = 20

var (
	accentColor    = lipgloss.ANSIColor(14) // Bright cyan
	dimColor       = lipgloss.ANSIColor(8)  // Bright black (gray)
	userColor      = lipgloss.ANSIColor(12) // Bright blue
	assistantColor = lipgloss.ANSIColor(13) // Bright magenta
	errorColor     = lipgloss.ANSIColor(9)  // Bright red
	successColor   = lipgloss.ANSIColor(10) // Bright green

	promptStyle    = lipgloss.NewStyle().Foreground(userColor).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(assistantColor).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(errorColor)
	successStyle   = lipgloss.NewStyle().Foreground(successColor)
	dimStyle       = lipgloss.NewStyle().Foreground(dimColor)

	headerCellStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Padding(0, 1)
	cellStyle       = lipgloss.NewStyle().Padding(0, 1)
	indexCellStyle  = cellStyle.Foreground(dimColor)
	borderStyle     = lipgloss.NewStyle().Foreground(dimColor)
)

// renderTable draws up to limit rows of t with the row id as first column.
func renderTable(t *table.Table, limit int) string {
	n := t.Len()
	if limit > 0 && limit < n {
		n = limit
	}

	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		id, _ := t.RowID(i)
		cells := make([]string, 0, t.Width()+1)
		cells = append(cells, strconv.Itoa(id))
		for _, v := range t.Row(i) {
			cells = append(cells, v.String())
		}
		rows = append(rows, cells)
	}

	tb := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(append([]string{""}, t.ColumnNames()...)...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == ltable.HeaderRow:
				return headerCellStyle
			case col == 0:
				return indexCellStyle
			default:
				return cellStyle
			}
		})

	out := tb.String()
	switch {
	case t.Len() == 0:
		out += "\n" + dimStyle.Render("(빈 결과)")
	case t.Len() > n:
		out += "\n" + dimStyle.Render(fmt.Sprintf("… 외 %d행 (총 %d행)", t.Len()-n, t.Len()))
	}
	return out
}

// renderModels lists the catalogue grouped by category order.
func renderModels(caps []models.Capability, current string) string {
	rows := make([][]string, 0, len(caps))
	for _, c := range caps {
		marker := ""
		if c.ID == current {
			marker = "*"
		}
		note := c.Description
		if c.Deprecated {
			note += " (deprecated)"
		}
		rows = append(rows, []string{
			marker,
			c.ID,
			c.Category,
			strconv.Itoa(c.MaxOutputTokens),
			yesNo(c.SupportsStreaming),
			yesNo(c.SupportsTemperature),
			note,
		})
	}

	return ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("", "model", "category", "max tokens", "stream", "temp", "description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		}).
		String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
