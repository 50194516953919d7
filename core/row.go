package core

import "fmt"

// Row is one record of a Result.
type Row struct {
	result *Result
	index  int
}

func (r Row) GetIndex() int {
	return r.index
}

func (r Row) GetColumnCount() int {
	return len(r.result.header)
}

// ForEachColumn calls fn with the value of every column in column order.
func (r Row) ForEachColumn(fn func(Value)) error {
	if r.result.isReleased() {
		return ErrResultReleased
	}

	for i := range r.result.header {
		fn(r.result.value(r.index, i))
	}
	return nil
}

func (r Row) GetColumn(i int) (Value, error) {
	if r.result.isReleased() {
		return Value{}, ErrResultReleased
	}
	if i < 0 || i >= len(r.result.header) {
		return Value{}, fmt.Errorf("%w: index %d of %d", ErrNoSuchColumn, i, len(r.result.header))
	}
	return r.result.value(r.index, i), nil
}

func (r Row) GetColumnByName(name string) (Value, error) {
	if r.result.isReleased() {
		return Value{}, ErrResultReleased
	}
	for i, col := range r.result.header {
		if col.Name == name {
			return r.result.value(r.index, i), nil
		}
	}
	return Value{}, fmt.Errorf("%w: %q", ErrNoSuchColumn, name)
}

// Values decodes every column with Value.Any.
func (r Row) Values() ([]any, error) {
	if r.result.isReleased() {
		return nil, ErrResultReleased
	}

	out := make([]any, len(r.result.header))
	for i := range r.result.header {
		v, err := r.result.value(r.index, i).Any()
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", r.result.header[i].Name, err)
		}
		out[i] = v
	}
	return out, nil
}
