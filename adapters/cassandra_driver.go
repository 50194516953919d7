package adapters

import (
	"context"
	"encoding/binary"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"github.com/kndndrj/priam/core"
)

var _ core.Session = (*cassandraSession)(nil)

// errPrepared stops a bound query right after the driver prepared it.
var errPrepared = errors.New("prepared")

type cassandraSession struct {
	session *gocql.Session
	logger  log.Logger
}

func columnSpecs(cols []gocql.ColumnInfo) core.Header {
	header := make(core.Header, len(cols))
	for i, col := range cols {
		header[i] = core.ColumnSpec{
			Keyspace: col.Keyspace,
			Table:    col.Table,
			Name:     col.Name,
			Type:     col.TypeInfo,
		}
	}
	return header
}

// Prepare compiles the query through the driver's statement cache and
// returns the bind marker metadata. The query itself is never sent for
// execution: the binder captures the metadata and aborts.
func (s *cassandraSession) Prepare(ctx context.Context, query string) (*core.PreparedInfo, error) {
	if !preparable(query) {
		// schema and session statements run unprepared and take no markers
		return &core.PreparedInfo{Query: query}, nil
	}

	var info *gocql.QueryInfo

	q := s.session.Bind(query, func(qi *gocql.QueryInfo) ([]interface{}, error) {
		info = qi
		return nil, errPrepared
	}).WithContext(ctx).RetryPolicy(nil)
	defer q.Release()

	err := q.Exec()
	if !errors.Is(err, errPrepared) {
		if err == nil {
			err = errors.New("driver skipped the binder")
		}
		return nil, errors.Wrap(err, "prepare")
	}

	return &core.PreparedInfo{
		Query:  query,
		Params: columnSpecs(info.Args),
		Handle: info,
	}, nil
}

// preparable reports whether the driver prepares query before running it.
func preparable(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}

	switch strings.ToLower(fields[0]) {
	case "select", "insert", "update", "delete", "batch", "begin":
		return true
	default:
		return false
	}
}

func (s *cassandraSession) Execute(ctx context.Context, info *core.PreparedInfo, values []core.BoundValue) (core.ResultStream, error) {
	args := make([]interface{}, len(values))
	for i, v := range values {
		if !v.IsSet {
			args[i] = gocql.UnsetValue
			continue
		}
		args[i] = v
	}

	stream := newCassandraStream(s.session.Query(info.Query, args...).WithContext(ctx).Iter())

	// the first page decides whether the statement failed
	stream.HasNext()
	if !stream.ready && stream.err != nil {
		err := stream.err
		stream.Close()
		return nil, err
	}

	return stream, nil
}

// Release drops the metadata handle. Compiled statements live in the
// driver's own cache.
func (s *cassandraSession) Release(info *core.PreparedInfo) {
	info.Handle = nil
	level.Debug(s.logger).Log("msg", "released prepared statement", "query", info.Query)
}

func (s *cassandraSession) Close() {
	s.session.Close()
}

// rawCell captures the undecoded bytes of a column.
type rawCell struct {
	data []byte
}

func (c *rawCell) UnmarshalCQL(_ gocql.TypeInfo, data []byte) error {
	if data == nil {
		c.data = nil
		return nil
	}
	c.data = append([]byte{}, data...)
	return nil
}

// frameTuple rebuilds the wire form of a tuple from its elements, which the
// driver always hands out one by one.
func frameTuple(cells []rawCell) []byte {
	var out []byte
	for _, c := range cells {
		if c.data == nil {
			out = binary.BigEndian.AppendUint32(out, 0xffffffff)
			continue
		}
		out = binary.BigEndian.AppendUint32(out, uint32(len(c.data)))
		out = append(out, c.data...)
	}
	return out
}

var _ core.ResultStream = (*cassandraStream)(nil)

type cassandraStream struct {
	iter    *gocql.Iter
	scanner gocql.Scanner
	header  core.Header

	// number of scan destinations per column, more than one for tuples
	widths []int
	total  int

	ready bool
	done  bool
	err   error
}

func newCassandraStream(iter *gocql.Iter) *cassandraStream {
	cols := iter.Columns()

	s := &cassandraStream{
		iter:    iter,
		scanner: iter.Scanner(),
		header:  columnSpecs(cols),
		widths:  make([]int, len(cols)),
	}

	for i, col := range cols {
		s.widths[i] = 1
		if tuple, ok := col.TypeInfo.(gocql.TupleTypeInfo); ok {
			s.widths[i] = len(tuple.Elems)
		}
		s.total += s.widths[i]
	}

	return s
}

func (s *cassandraStream) Header() core.Header {
	return s.header
}

// HasNext advances the scanner. A scan error is kept for the following Next.
func (s *cassandraStream) HasNext() bool {
	if s.ready {
		return true
	}
	if s.done {
		return s.err != nil
	}

	if s.scanner.Next() {
		s.ready = true
		return true
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		s.err = errors.WithStack(err)
		return true
	}
	return false
}

func (s *cassandraStream) Next() (core.RawRow, error) {
	if !s.HasNext() {
		return nil, errors.New("no next row")
	}
	if !s.ready {
		err := s.err
		s.err = nil
		return nil, err
	}
	s.ready = false

	cells := make([]rawCell, s.total)
	dest := make([]interface{}, s.total)
	for i := range cells {
		dest[i] = &cells[i]
	}

	if err := s.scanner.Scan(dest...); err != nil {
		return nil, errors.WithStack(err)
	}

	row := make(core.RawRow, len(s.widths))
	offset := 0
	for i, width := range s.widths {
		if _, ok := s.header[i].Type.(gocql.TupleTypeInfo); ok {
			row[i] = frameTuple(cells[offset : offset+width])
		} else {
			row[i] = cells[offset].data
		}
		offset += width
	}

	return row, nil
}

func (s *cassandraStream) Close() {
	_ = s.iter.Close()
}
