package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// columnSpec tunes one column of renderTable beyond its alignment.
type columnSpec struct {
	align    columnAlignment
	maxWidth int
	colorize func(string) string
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	specs := make([]columnSpec, len(aligns))
	for i, a := range aligns {
		specs[i].align = a
	}
	return renderTableSpec(headers, rows, specs)
}

func renderTableSpec(headers []string, rows [][]string, specs []columnSpec) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		cc := table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		}
		if i < len(specs) {
			spec := specs[i]
			if spec.align == alignRight {
				cc.Align = text.AlignRight
			}
			if spec.maxWidth > 0 {
				cc.WidthMax = spec.maxWidth
				cc.WidthMaxEnforcer = text.WrapSoft
			}
			if spec.colorize != nil {
				colorize := spec.colorize
				cc.Transformer = func(val interface{}) string {
					s, _ := val.(string)
					return colorize(s)
				}
			}
		}
		columnConfigs = append(columnConfigs, cc)
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
