package format

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/kndndrj/priam/core"
)

var _ Formatter = (*JSON)(nil)

type JSON struct{}

func NewJSON() *JSON {
	return &JSON{}
}

func (jf *JSON) Name() string {
	return "json"
}

// jsonValue converts decoded values to types with a natural JSON form.
func jsonValue(v any) any {
	switch val := v.(type) {
	case core.Blob, core.Decimal, core.Duration:
		return fmt.Sprint(val)
	case *big.Int:
		return json.Number(val.String())
	case time.Time:
		return val.UTC().Format(core.TimestampFormat)
	case []core.MapEntry:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[Display(e.Key)] = jsonValue(e.Value)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = jsonValue(e)
		}
		return out
	default:
		return val
	}
}

func (jf *JSON) parse(header []string, rows [][]any) []map[string]any {
	data := make([]map[string]any, 0, len(rows))

	for _, row := range rows {
		record := make(map[string]any, len(row))
		for i, val := range row {
			var h string
			if i < len(header) {
				h = header[i]
			} else {
				h = fmt.Sprintf("<unknown-field-%d>", i)
			}
			record[h] = jsonValue(val)
		}
		data = append(data, record)
	}

	return data
}

func (jf *JSON) Format(header []string, rows [][]any, writer io.Writer) error {
	out, err := json.MarshalIndent(jf.parse(header, rows), "", "  ")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent: %w", err)
	}

	_, err = writer.Write(append(out, '\n'))
	return err
}
