package core

import (
	"fmt"

	"go.uber.org/atomic"
)

// StatusCode is the outcome of an execution.
type StatusCode int

const (
	StatusOK StatusCode = iota
	StatusError
	StatusTimeout
)

func (s StatusCode) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

type cell struct {
	off  int
	size int
	null bool
}

// Result owns the decoded rows of one execution. Rows, values and
// collections obtained from it are only usable until the result is
// released, which happens when the execution callback returns.
type Result struct {
	status StatusCode
	err    error
	header Header

	// arena holds the bytes of every non-null cell back to back
	arena    []byte
	cells    []cell
	rowCount int

	released atomic.Bool
}

func newResult() *Result {
	return &Result{
		status: StatusOK,
		arena:  make([]byte, 0, 256),
	}
}

func newFailedResult(status StatusCode, err error) *Result {
	return &Result{
		status: status,
		err:    err,
		arena:  make([]byte, 0),
	}
}

// fill drains the stream into the arena and closes it.
// This can be done only once!
func (r *Result) fill(stream ResultStream) error {
	defer stream.Close()

	r.header = stream.Header()
	width := len(r.header)

	for stream.HasNext() {
		row, err := stream.Next()
		if err != nil {
			return err
		}
		if len(row) != width {
			return fmt.Errorf("row %d has %d columns, expected %d", r.rowCount, len(row), width)
		}

		for _, data := range row {
			if data == nil {
				r.cells = append(r.cells, cell{null: true})
				continue
			}
			r.cells = append(r.cells, cell{off: len(r.arena), size: len(data)})
			r.arena = append(r.arena, data...)
		}
		r.rowCount++
	}

	return nil
}

func (r *Result) release() {
	if r.released.Swap(true) {
		return
	}
	r.arena = nil
	r.cells = nil
}

func (r *Result) isReleased() bool {
	return r.released.Load()
}

func (r *Result) value(row, column int) Value {
	c := r.cells[row*len(r.header)+column]
	v := Value{
		result: r,
		info:   r.header[column].Type,
		null:   c.null,
	}
	if !c.null {
		v.data = r.arena[c.off : c.off+c.size : c.off+c.size]
	}
	return v
}

func (r *Result) GetStatusCode() StatusCode {
	return r.status
}

// GetStatusMessage describes the failure of an unsuccessful execution.
func (r *Result) GetStatusMessage() string {
	if r.err == nil {
		return r.status.String()
	}
	return r.err.Error()
}

// Err returns the error of an unsuccessful execution.
func (r *Result) Err() error {
	return r.err
}

func (r *Result) GetRowCount() int {
	return r.rowCount
}

func (r *Result) GetColumnCount() int {
	return len(r.header)
}

func (r *Result) GetColumns() Header {
	return r.header
}

// ForEachRow calls fn with every row in the order returned by the cluster.
func (r *Result) ForEachRow(fn func(Row)) error {
	if r.isReleased() {
		return ErrResultReleased
	}

	for i := 0; i < r.rowCount; i++ {
		fn(Row{result: r, index: i})
	}
	return nil
}
