package mock

import (
	"context"
	"time"

	"github.com/kndndrj/priam/core"
)

type queryConfig struct {
	params core.Header
	header core.Header
	rows   []core.RawRow
	echo   bool

	prepareErr   error
	prepareDelay time.Duration
	sideEffect   func(context.Context) error
}

type adapterConfig struct {
	queries    map[string]*queryConfig
	connectErr error

	resultStreamOptions []ResultStreamOption
}

func (c *adapterConfig) query(query string) *queryConfig {
	q, ok := c.queries[query]
	if !ok {
		panic("query not registered: " + query)
	}
	return q
}

type AdapterOption func(*adapterConfig)

// AdapterWithPrepared registers a query the session can prepare, with its
// bind markers. Without further options it returns no rows.
func AdapterWithPrepared(query string, params ...core.ColumnSpec) AdapterOption {
	return func(c *adapterConfig) {
		_, ok := c.queries[query]
		if ok {
			panic("query already registered: " + query)
		}

		c.queries[query] = &queryConfig{params: params}
	}
}

// AdapterWithRows sets the rows returned by a registered query.
func AdapterWithRows(query string, header core.Header, rows ...core.RawRow) AdapterOption {
	return func(c *adapterConfig) {
		q := c.query(query)
		q.header = header
		q.rows = rows
	}
}

// AdapterWithEcho makes a registered query return a single row holding its
// bound values, one column per bind marker. Unset values come back as null.
func AdapterWithEcho(query string) AdapterOption {
	return func(c *adapterConfig) {
		c.query(query).echo = true
	}
}

// AdapterWithPrepareError makes preparing a registered query fail with err.
func AdapterWithPrepareError(query string, err error) AdapterOption {
	return func(c *adapterConfig) {
		c.query(query).prepareErr = err
	}
}

// AdapterWithPrepareDelay makes preparing a registered query take delay,
// or until the prepare context is done.
func AdapterWithPrepareDelay(query string, delay time.Duration) AdapterOption {
	return func(c *adapterConfig) {
		c.query(query).prepareDelay = delay
	}
}

// AdapterWithQuerySideEffect runs sideEffect on every execution of a
// registered query. A returned error fails the execution.
func AdapterWithQuerySideEffect(query string, sideEffect func(context.Context) error) AdapterOption {
	return func(c *adapterConfig) {
		q := c.query(query)
		if q.sideEffect != nil {
			panic("side effect already registered for query: " + query)
		}

		q.sideEffect = sideEffect
	}
}

func AdapterWithConnectError(err error) AdapterOption {
	return func(c *adapterConfig) {
		c.connectErr = err
	}
}

func AdapterWithResultStreamOpts(opts ...ResultStreamOption) AdapterOption {
	return func(c *adapterConfig) {
		c.resultStreamOptions = append(c.resultStreamOptions, opts...)
	}
}
