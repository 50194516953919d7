package core

import (
	"math/big"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// Statement is a single use instance of a Prepared query with its own bound
// parameters. It is created by Prepared.CreateStatement and consumed by
// Client.ExecuteStatement: once submitted, every bind fails and a second
// submission is rejected.
//
// Bind methods return false, leaving the statement unchanged, when the
// position is out of range, the marker type does not accept the value or the
// statement was already submitted.
type Statement struct {
	prepared *Prepared
	// holdsRef is false when the prepared statement was fully released
	// before this statement was created
	holdsRef bool

	mu        sync.Mutex
	values    []BoundValue
	submitted bool
}

func newStatement(p *Prepared, holdsRef bool) *Statement {
	return &Statement{
		prepared: p,
		holdsRef: holdsRef,
		values:   make([]BoundValue, len(p.info.Params)),
	}
}

func (s *Statement) GetPrepared() *Prepared {
	return s.prepared
}

// IsSubmitted reports whether the statement was handed over for execution.
func (s *Statement) IsSubmitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

func (s *Statement) set(position int, value BoundValue) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted || position < 0 || position >= len(s.values) {
		return false
	}
	s.values[position] = value
	return true
}

func (s *Statement) param(position int) (ColumnSpec, bool) {
	params := s.prepared.info.Params
	if position < 0 || position >= len(params) {
		return ColumnSpec{}, false
	}
	return params[position], true
}

// bind encodes value for the marker at position. When accepted is not
// empty, the marker must be of one of the accepted types.
func (s *Statement) bind(value any, position int, accepted ...DataType) bool {
	param, ok := s.param(position)
	if !ok {
		return false
	}
	if len(accepted) > 0 && !slices.Contains(accepted, param.DataType()) {
		return false
	}

	// nil data from the codec means null
	data, err := gocql.Marshal(param.Type, value)
	if err != nil {
		return false
	}
	return s.set(position, BoundValue{Data: data, IsSet: true})
}

// Bind encodes any value the driver codec accepts for the marker type,
// including slices and maps for collection markers.
func (s *Statement) Bind(value any, position int) bool {
	if value == nil {
		return s.BindNull(position)
	}
	return s.bind(value, position)
}

// BindNull binds null to the marker at position.
func (s *Statement) BindNull(position int) bool {
	if _, ok := s.param(position); !ok {
		return false
	}
	return s.set(position, BoundValue{IsSet: true})
}

// BindUUID parses a textual uuid and binds it to a uuid or timeuuid marker.
func (s *Statement) BindUUID(value string, position int) bool {
	u, err := uuid.Parse(value)
	if err != nil {
		return false
	}
	return s.bind(gocql.UUID(u), position, DataTypeUUID, DataTypeTimeUUID)
}

func (s *Statement) BindString(value string, position int) bool {
	return s.bind(value, position, DataTypeASCII, DataTypeText, DataTypeVarChar)
}

func (s *Statement) BindInt32(value int32, position int) bool {
	return s.bind(value, position, DataTypeInt)
}

// BindInt64 binds to bigint and counter markers.
func (s *Statement) BindInt64(value int64, position int) bool {
	return s.bind(value, position, DataTypeBigInt, DataTypeCounter)
}

func (s *Statement) BindInt16(value int16, position int) bool {
	return s.bind(value, position, DataTypeSmallInt)
}

func (s *Statement) BindInt8(value int8, position int) bool {
	return s.bind(value, position, DataTypeTinyInt)
}

func (s *Statement) BindBoolean(value bool, position int) bool {
	return s.bind(value, position, DataTypeBoolean)
}

func (s *Statement) BindFloat(value float32, position int) bool {
	return s.bind(value, position, DataTypeFloat)
}

func (s *Statement) BindDouble(value float64, position int) bool {
	return s.bind(value, position, DataTypeDouble)
}

func (s *Statement) BindBlob(value []byte, position int) bool {
	if value == nil {
		value = []byte{}
	}
	return s.bind(value, position, DataTypeBlob)
}

func (s *Statement) BindTimestamp(value time.Time, position int) bool {
	return s.bind(value, position, DataTypeTimestamp)
}

// BindDate binds the day of value (UTC) to a date marker.
func (s *Statement) BindDate(value time.Time, position int) bool {
	return s.bind(value.UTC(), position, DataTypeDate)
}

// BindTime binds a time of day, as an offset from midnight.
func (s *Statement) BindTime(value time.Duration, position int) bool {
	return s.bind(value, position, DataTypeTime)
}

func (s *Statement) BindDecimal(value Decimal, position int) bool {
	return s.bind(value.toInf(), position, DataTypeDecimal)
}

func (s *Statement) BindVarInt(value *big.Int, position int) bool {
	if value == nil {
		return false
	}
	return s.bind(value, position, DataTypeVarInt)
}

func (s *Statement) BindDuration(value Duration, position int) bool {
	return s.bind(value.toDriver(), position, DataTypeDuration)
}

// BindInet parses an IPv4 or IPv6 address.
func (s *Statement) BindInet(value string, position int) bool {
	ip := net.ParseIP(value)
	if ip == nil {
		return false
	}
	return s.bind(ip, position, DataTypeInet)
}

// submit marks the statement as consumed and returns a snapshot of its
// values.
func (s *Statement) submit() ([]BoundValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return nil, ErrStatementSubmitted
	}
	s.submitted = true

	if !s.holdsRef {
		return nil, ErrPreparedReleased
	}

	return slices.Clone(s.values), nil
}

// Discard drops a statement that will never be executed, so the prepared
// statement it came from can be released.
func (s *Statement) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return
	}
	s.submitted = true
	if s.holdsRef {
		s.prepared.release()
	}
}
