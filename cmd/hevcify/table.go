package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableColumn declares one output column. Counts and sizes set right; path
// columns set maxWidth so long library paths are tail-truncated instead of
// wrapping the table.
type tableColumn struct {
	title    string
	right    bool
	maxWidth int
}

func renderTable(columns []tableColumn, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		header[i] = col.title
		align := text.AlignLeft
		if col.right {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i, col := range columns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			if col.maxWidth > 0 {
				value = truncatePath(value, col.maxWidth)
			}
			r[i] = value
		}
		tw.AppendRow(r)
	}

	return tw.Render()
}
