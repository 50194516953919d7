package format

import (
	"encoding/csv"
	"fmt"
	"io"
)

var _ Formatter = (*CSV)(nil)

type CSV struct{}

func NewCSV() *CSV {
	return &CSV{}
}

func (cf *CSV) Name() string {
	return "csv"
}

func (cf *CSV) parse(header []string, rows [][]any) [][]string {
	data := [][]string{
		header,
	}
	for _, row := range rows {
		var csvRow []string
		for _, rec := range row {
			csvRow = append(csvRow, Display(rec))
		}
		data = append(data, csvRow)
	}

	return data
}

func (cf *CSV) Format(header []string, rows [][]any, writer io.Writer) error {
	w := csv.NewWriter(writer)

	err := w.WriteAll(cf.parse(header, rows))
	if err != nil {
		return fmt.Errorf("w.WriteAll: %w", err)
	}

	return nil
}
