package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type columnAlignment = text.Align

const (
	alignLeft  = text.AlignLeft
	alignRight = text.AlignRight
)

var numberPrinter = message.NewPrinter(language.English)

// formatCount groups digits for display, e.g. 14400000 -> 14,400,000.
func formatCount[T ~int | ~int64 | ~uint32 | ~uint64](n T) string {
	return numberPrinter.Sprintf("%d", n)
}

func formatMicros(us float64) string {
	return numberPrinter.Sprintf("%.3f µs", us)
}

// renderTable draws rows under headers. Short rows are padded with blanks
// and columns beyond len(aligns) are left aligned.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}
	toRow := func(cells []string) table.Row {
		row := make(table.Row, len(headers))
		for i := range row {
			row[i] = ""
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		return row
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers))
	for _, r := range rows {
		tw.AppendRow(toRow(r))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: alignLeft, AlignHeader: alignLeft}
		if i < len(aligns) {
			configs[i].Align = aligns[i]
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}
