package mock

import (
	"errors"
	"time"

	"github.com/kndndrj/priam/core"
)

func newNext(rows []core.RawRow) (func() (core.RawRow, error), func() bool) {
	index := 0

	hasNext := func() bool {
		return index < len(rows)
	}

	// iterator functions
	next := func() (core.RawRow, error) {
		if !hasNext() {
			return nil, errors.New("no next row")
		}

		row := rows[index]
		index++
		return row, nil
	}

	return next, hasNext
}

type ResultStream struct {
	header  core.Header
	next    func() (core.RawRow, error)
	hasNext func() bool
	config  *resultStreamConfig
}

// NewResultStream returns a mocked result stream with provided header and rows.
func NewResultStream(header core.Header, rows []core.RawRow, opts ...ResultStreamOption) *ResultStream {
	config := &resultStreamConfig{
		nextSleep: 0,
	}
	for _, opt := range opts {
		opt(config)
	}

	next, hasNext := newNext(rows)

	return &ResultStream{
		header:  header,
		next:    next,
		hasNext: hasNext,
		config:  config,
	}
}

func (rs *ResultStream) Header() core.Header {
	return rs.header
}

func (rs *ResultStream) Next() (core.RawRow, error) {
	time.Sleep(rs.config.nextSleep)
	if rs.config.nextErr != nil {
		return nil, rs.config.nextErr
	}
	return rs.next()
}

func (rs *ResultStream) HasNext() bool {
	return rs.hasNext()
}

func (rs *ResultStream) Close() {}
