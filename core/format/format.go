// Package format renders decoded result records for humans and tools.
package format

import (
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/kndndrj/priam/core"
)

// Formatter writes a set of records to writer.
type Formatter interface {
	Name() string
	Format(header []string, rows [][]any, writer io.Writer) error
}

// New returns the formatter registered under name.
func New(name string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "table", "":
		return NewTable(), nil
	case "json":
		return NewJSON(), nil
	case "csv":
		return NewCSV(), nil
	default:
		return nil, fmt.Errorf("unknown format: %q", name)
	}
}

// Records decodes every row of result. It must be called while the result
// is alive, i.e. from the execution callback.
func Records(result *core.Result) ([]string, [][]any, error) {
	header := result.GetColumns().Names()
	rows := make([][]any, 0, result.GetRowCount())

	var rowErr error
	err := result.ForEachRow(func(row core.Row) {
		if rowErr != nil {
			return
		}
		values, err := row.Values()
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", row.GetIndex(), err)
			return
		}
		rows = append(rows, values)
	})
	if err != nil {
		return nil, nil, err
	}
	if rowErr != nil {
		return nil, nil, rowErr
	}

	return header, rows, nil
}

// Display renders a decoded value the way cqlsh does.
func Display(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case time.Time:
		return val.UTC().Format(core.TimestampFormat)
	case *big.Int:
		return val.String()
	case []core.MapEntry:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = quoted(e.Key) + ": " + quoted(e.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = quoted(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(val)
	}
}

// quoted is Display with strings quoted, for elements of composites.
func quoted(v any) string {
	if s, ok := v.(string); ok {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return Display(v)
}
