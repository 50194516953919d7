package core

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"net"
	"slices"
	"time"

	"github.com/gocql/gocql"
	"gopkg.in/inf.v0"
)

// TimestampFormat is the layout of GetTimestampAsDateFormatted (UTC).
const TimestampFormat = "2006-01-02 15:04:05.000-0700"

// dateEpoch is the raw date value of 1970-01-01.
const dateEpoch = 1 << 31

// Value is a single column or collection element. It borrows its bytes from
// the Result it came from and must not be used after that result is released.
//
// Accessors must match GetDataType: a mismatch returns *TypeMismatchError and
// a null value returns ErrNullValue together with the zero value.
type Value struct {
	result *Result
	info   gocql.TypeInfo
	data   []byte
	null   bool
}

func (v Value) GetDataType() DataType {
	return DataTypeFromTypeInfo(v.info)
}

// GetTypeInfo returns the full driver type, including element types of
// collections.
func (v Value) GetTypeInfo() gocql.TypeInfo {
	return v.info
}

// IsNull reports whether the value was null on the wire.
func (v Value) IsNull() bool {
	return v.null
}

func (v Value) alive() error {
	if v.result == nil || v.result.isReleased() {
		return ErrResultReleased
	}
	return nil
}

// check validates an accessor call against the lifetime, tag and null flag.
func (v Value) check(accepted ...DataType) error {
	if err := v.alive(); err != nil {
		return err
	}
	if typ := v.GetDataType(); !slices.Contains(accepted, typ) {
		return &TypeMismatchError{Requested: accepted, Actual: typ}
	}
	if v.null {
		return ErrNullValue
	}
	return nil
}

func (v Value) unmarshal(dst any, accepted ...DataType) error {
	if err := v.check(accepted...); err != nil {
		return err
	}
	if err := gocql.Unmarshal(v.info, v.data, dst); err != nil {
		return fmt.Errorf("gocql.Unmarshal %s: %w", v.GetDataType(), err)
	}
	return nil
}

// GetRaw returns a copy of the wire bytes for any type, nil if null.
func (v Value) GetRaw() ([]byte, error) {
	if err := v.alive(); err != nil {
		return nil, err
	}
	if v.null {
		return nil, nil
	}
	return append([]byte{}, v.data...), nil
}

func (v Value) GetASCII() (string, error) {
	var out string
	err := v.unmarshal(&out, DataTypeASCII)
	return out, err
}

func (v Value) GetBigInt() (int64, error) {
	var out int64
	err := v.unmarshal(&out, DataTypeBigInt)
	return out, err
}

func (v Value) GetBlob() (Blob, error) {
	var out []byte
	err := v.unmarshal(&out, DataTypeBlob)
	return Blob(out), err
}

func (v Value) GetBoolean() (bool, error) {
	var out bool
	err := v.unmarshal(&out, DataTypeBoolean)
	return out, err
}

func (v Value) GetCounter() (int64, error) {
	var out int64
	err := v.unmarshal(&out, DataTypeCounter)
	return out, err
}

func (v Value) GetDecimal() (Decimal, error) {
	out := new(inf.Dec)
	if err := v.unmarshal(out, DataTypeDecimal); err != nil {
		return NewDecimal(nil, 0), err
	}
	return decimalFromInf(out), nil
}

func (v Value) GetDouble() (float64, error) {
	var out float64
	err := v.unmarshal(&out, DataTypeDouble)
	return out, err
}

func (v Value) GetFloat() (float32, error) {
	var out float32
	err := v.unmarshal(&out, DataTypeFloat)
	return out, err
}

func (v Value) GetInt() (int32, error) {
	var out int32
	err := v.unmarshal(&out, DataTypeInt)
	return out, err
}

// GetText reads text and varchar values, which are the same CQL type.
func (v Value) GetText() (string, error) {
	var out string
	err := v.unmarshal(&out, DataTypeText, DataTypeVarChar)
	return out, err
}

func (v Value) GetVarChar() (string, error) {
	var out string
	err := v.unmarshal(&out, DataTypeVarChar, DataTypeText)
	return out, err
}

// GetTimestamp returns milliseconds since the unix epoch.
func (v Value) GetTimestamp() (int64, error) {
	var out int64
	err := v.unmarshal(&out, DataTypeTimestamp)
	return out, err
}

func (v Value) GetTimestampAsTime() (time.Time, error) {
	ms, err := v.GetTimestamp()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// GetTimestampAsDateFormatted formats the timestamp with TimestampFormat.
func (v Value) GetTimestampAsDateFormatted() (string, error) {
	t, err := v.GetTimestampAsTime()
	if err != nil {
		return "", err
	}
	return t.Format(TimestampFormat), nil
}

func (v Value) GetUUID() (string, error) {
	var out gocql.UUID
	if err := v.unmarshal(&out, DataTypeUUID); err != nil {
		return "", err
	}
	return out.String(), nil
}

// GetVarInt returns the raw big-endian two's complement bytes.
func (v Value) GetVarInt() (Blob, error) {
	if err := v.check(DataTypeVarInt); err != nil {
		return nil, err
	}
	return Blob(append([]byte{}, v.data...)), nil
}

func (v Value) GetVarIntAsBigInt() (*big.Int, error) {
	out := new(big.Int)
	if err := v.unmarshal(out, DataTypeVarInt); err != nil {
		return new(big.Int), err
	}
	return out, nil
}

func (v Value) GetTimeUUID() (string, error) {
	var out gocql.UUID
	if err := v.unmarshal(&out, DataTypeTimeUUID); err != nil {
		return "", err
	}
	return out.String(), nil
}

func (v Value) GetINet() (string, error) {
	var out net.IP
	if err := v.unmarshal(&out, DataTypeInet); err != nil {
		return "", err
	}
	return out.String(), nil
}

// GetDate returns days since the unix epoch shifted by 2^31, as sent on the
// wire. Use DateToTime to get a calendar date.
func (v Value) GetDate() (uint32, error) {
	if err := v.check(DataTypeDate); err != nil {
		return 0, err
	}
	if len(v.data) != 4 {
		return 0, fmt.Errorf("invalid date: %d bytes", len(v.data))
	}
	return binary.BigEndian.Uint32(v.data), nil
}

// GetTime returns nanoseconds since midnight.
func (v Value) GetTime() (int64, error) {
	var out int64
	err := v.unmarshal(&out, DataTypeTime)
	return out, err
}

func (v Value) GetSmallInt() (int16, error) {
	var out int16
	err := v.unmarshal(&out, DataTypeSmallInt)
	return out, err
}

func (v Value) GetTinyInt() (int8, error) {
	var out int8
	err := v.unmarshal(&out, DataTypeTinyInt)
	return out, err
}

func (v Value) GetDuration() (Duration, error) {
	var out gocql.Duration
	err := v.unmarshal(&out, DataTypeDuration)
	return durationFromDriver(out), err
}

func (v Value) GetList() (*List, error) {
	elem, err := v.collectionInfo(DataTypeList)
	if err != nil {
		return nil, err
	}
	return &List{collection{parent: v, elem: elem.Elem}}, nil
}

func (v Value) GetSet() (*Set, error) {
	elem, err := v.collectionInfo(DataTypeSet)
	if err != nil {
		return nil, err
	}
	return &Set{collection{parent: v, elem: elem.Elem}}, nil
}

func (v Value) GetMap() (*Map, error) {
	info, err := v.collectionInfo(DataTypeMap)
	if err != nil {
		return nil, err
	}
	return &Map{parent: v, key: info.Key, elem: info.Elem}, nil
}

func (v Value) GetTuple() (*Tuple, error) {
	if err := v.check(DataTypeTuple); err != nil {
		return nil, err
	}

	var elems []gocql.TypeInfo
	switch info := v.info.(type) {
	case gocql.TupleTypeInfo:
		elems = info.Elems
	case *gocql.TupleTypeInfo:
		elems = info.Elems
	default:
		return nil, fmt.Errorf("tuple without element types: %T", v.info)
	}

	return &Tuple{parent: v, elems: elems}, nil
}

func (v Value) collectionInfo(typ DataType) (gocql.CollectionType, error) {
	if err := v.check(typ); err != nil {
		return gocql.CollectionType{}, err
	}

	switch info := v.info.(type) {
	case gocql.CollectionType:
		return info, nil
	case *gocql.CollectionType:
		return *info, nil
	default:
		return gocql.CollectionType{}, fmt.Errorf("%s without element types: %T", typ, v.info)
	}
}

// Any decodes the value into a plain Go value. Timestamps and dates become
// time.Time, uuids become strings, lists, sets and tuples become []any and
// maps become []MapEntry. Null decodes to nil.
// Custom and udt values yield *UnsupportedTypeError.
func (v Value) Any() (any, error) {
	if err := v.alive(); err != nil {
		return nil, err
	}
	if v.null {
		return nil, nil
	}

	switch typ := v.GetDataType(); typ {
	case DataTypeASCII:
		return v.GetASCII()
	case DataTypeBigInt:
		return v.GetBigInt()
	case DataTypeBlob:
		return v.GetBlob()
	case DataTypeBoolean:
		return v.GetBoolean()
	case DataTypeCounter:
		return v.GetCounter()
	case DataTypeDecimal:
		return v.GetDecimal()
	case DataTypeDouble:
		return v.GetDouble()
	case DataTypeFloat:
		return v.GetFloat()
	case DataTypeInt:
		return v.GetInt()
	case DataTypeText, DataTypeVarChar:
		return v.GetText()
	case DataTypeTimestamp:
		return v.GetTimestampAsTime()
	case DataTypeUUID:
		return v.GetUUID()
	case DataTypeVarInt:
		return v.GetVarIntAsBigInt()
	case DataTypeTimeUUID:
		return v.GetTimeUUID()
	case DataTypeInet:
		return v.GetINet()
	case DataTypeDate:
		d, err := v.GetDate()
		if err != nil {
			return nil, err
		}
		return DateToTime(d), nil
	case DataTypeTime:
		ns, err := v.GetTime()
		return time.Duration(ns), err
	case DataTypeSmallInt:
		return v.GetSmallInt()
	case DataTypeTinyInt:
		return v.GetTinyInt()
	case DataTypeDuration:
		return v.GetDuration()
	case DataTypeList:
		l, err := v.GetList()
		if err != nil {
			return nil, err
		}
		return l.Values()
	case DataTypeSet:
		s, err := v.GetSet()
		if err != nil {
			return nil, err
		}
		return s.Values()
	case DataTypeMap:
		m, err := v.GetMap()
		if err != nil {
			return nil, err
		}
		return m.Entries()
	case DataTypeTuple:
		t, err := v.GetTuple()
		if err != nil {
			return nil, err
		}
		return t.Values()
	default:
		err := &UnsupportedTypeError{Type: typ}
		if v.info != nil {
			err.Custom = v.info.Custom()
		}
		return nil, err
	}
}

// DateToTime converts a raw date value to midnight UTC of that day.
func DateToTime(d uint32) time.Time {
	days := int64(d) - dateEpoch
	return time.Unix(days*24*60*60, 0).UTC()
}

// TimeToDate converts the day of t to a raw date value.
func TimeToDate(t time.Time) uint32 {
	days := t.UTC().Truncate(24*time.Hour).Unix() / (24 * 60 * 60)
	return uint32(days + dateEpoch)
}
