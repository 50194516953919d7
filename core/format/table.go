package format

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var _ Formatter = (*Table)(nil)

type Table struct{}

func NewTable() *Table {
	return &Table{}
}

func (tf *Table) Name() string {
	return "table"
}

func (tf *Table) Format(header []string, rows [][]any, writer io.Writer) error {
	var tableHeaders table.Row
	for _, k := range header {
		tableHeaders = append(tableHeaders, k)
	}

	var tableRows []table.Row
	for _, row := range rows {
		tableRow := make(table.Row, len(row))
		for i, val := range row {
			tableRow[i] = Display(val)
		}
		tableRows = append(tableRows, tableRow)
	}

	t := table.NewWriter()
	t.AppendHeader(tableHeaders)
	t.AppendRows(tableRows)
	t.AppendSeparator()
	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	t.Style().Options.DrawBorder = false
	render := t.Render()

	_, err := writer.Write([]byte(render + "\n"))
	if err != nil {
		return err
	}
	return nil
}
