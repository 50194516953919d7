package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kndndrj/priam/core"
)

var _ core.Session = (*Session)(nil)

// Session is an in-memory session. It records released prepared
// statements and executed values for inspection.
type Session struct {
	config *adapterConfig

	mu       sync.Mutex
	released map[string]int
	executed [][]core.BoundValue
	closed   bool
}

func (s *Session) Prepare(ctx context.Context, query string) (*core.PreparedInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, ok := s.config.queries[query]
	if !ok {
		return nil, fmt.Errorf("syntax error in query: %q", query)
	}
	if q.prepareDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.prepareDelay):
		}
	}
	if q.prepareErr != nil {
		return nil, q.prepareErr
	}

	return &core.PreparedInfo{
		Query:  query,
		Params: q.params,
		Handle: q,
	}, nil
}

func (s *Session) Execute(ctx context.Context, info *core.PreparedInfo, values []core.BoundValue) (core.ResultStream, error) {
	q, ok := info.Handle.(*queryConfig)
	if !ok {
		return nil, fmt.Errorf("unknown prepared statement: %q", info.Query)
	}
	if len(values) != len(q.params) {
		return nil, fmt.Errorf("expected %d values, got %d", len(q.params), len(values))
	}

	s.mu.Lock()
	s.executed = append(s.executed, values)
	s.mu.Unlock()

	if q.sideEffect != nil {
		err := q.sideEffect(ctx)
		if err != nil {
			return nil, fmt.Errorf("side effect error: %w", err)
		}
	}

	if q.echo {
		row := make(core.RawRow, len(values))
		for i, v := range values {
			if v.IsSet {
				row[i] = v.Data
			}
		}
		return NewResultStream(q.params, []core.RawRow{row}, s.config.resultStreamOptions...), nil
	}

	return NewResultStream(q.header, q.rows, s.config.resultStreamOptions...), nil
}

func (s *Session) Release(info *core.PreparedInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released[info.Query]++
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Released returns how many times a prepared statement of query was released.
func (s *Session) Released(query string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released[query]
}

// Executed returns the values of every execution, in order.
func (s *Session) Executed() [][]core.BoundValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]core.BoundValue{}, s.executed...)
}

func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ core.Adapter = (*Adapter)(nil)

type Adapter struct {
	config *adapterConfig

	mu      sync.Mutex
	session *Session
}

func NewAdapter(opts ...AdapterOption) *Adapter {
	config := &adapterConfig{
		queries: make(map[string]*queryConfig),

		resultStreamOptions: []ResultStreamOption{},
	}
	for _, opt := range opts {
		opt(config)
	}

	return &Adapter{
		config: config,
	}
}

func (a *Adapter) Connect() (core.Session, error) {
	if a.config.connectErr != nil {
		return nil, a.config.connectErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = &Session{
		config:   a.config,
		released: make(map[string]int),
	}
	return a.session, nil
}

// Session returns the last session opened by Connect.
func (a *Adapter) Session() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}
