package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. A positive width caps the column and
// trims longer cells with an ellipsis.
type column struct {
	title string
	right bool
	width int
}

var scanColumns = []column{
	{title: "Run"},
	{title: "Year", right: true},
	{title: "Instrument"},
	{title: "Flow Cell"},
	{title: "Eligible"},
	{title: "Workspace"},
}

var historyColumns = []column{
	{title: "Started"},
	{title: "Run"},
	{title: "Mode"},
	{title: "Result"},
	{title: "Writes"},
	{title: "Duration", right: true},
	{title: "Detail", width: 60},
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if col.right {
			configs[i].Align = text.AlignRight
		}
		if col.width > 0 {
			configs[i].WidthMax = col.width
			configs[i].WidthMaxEnforcer = trimCell
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

func trimCell(value string, width int) string {
	if text.RuneWidthWithoutEscSequences(value) <= width {
		return value
	}
	return text.Trim(value, width-3) + "..."
}
