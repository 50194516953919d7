package core

import (
	"context"

	"github.com/gocql/gocql"
)

// DataType is the type tag of a column value.
type DataType int

const (
	DataTypeUnknown DataType = iota
	DataTypeCustom
	DataTypeASCII
	DataTypeBigInt
	DataTypeBlob
	DataTypeBoolean
	DataTypeCounter
	DataTypeDecimal
	DataTypeDouble
	DataTypeFloat
	DataTypeInt
	DataTypeText
	DataTypeTimestamp
	DataTypeUUID
	DataTypeVarChar
	DataTypeVarInt
	DataTypeTimeUUID
	DataTypeInet
	DataTypeDate
	DataTypeTime
	DataTypeSmallInt
	DataTypeTinyInt
	DataTypeDuration
	DataTypeList
	DataTypeMap
	DataTypeSet
	DataTypeUDT
	DataTypeTuple
)

// DataTypeFromTypeInfo returns the tag of a driver type.
func DataTypeFromTypeInfo(info gocql.TypeInfo) DataType {
	if info == nil {
		return DataTypeUnknown
	}

	switch info.Type() {
	case gocql.TypeCustom:
		return DataTypeCustom
	case gocql.TypeAscii:
		return DataTypeASCII
	case gocql.TypeBigInt:
		return DataTypeBigInt
	case gocql.TypeBlob:
		return DataTypeBlob
	case gocql.TypeBoolean:
		return DataTypeBoolean
	case gocql.TypeCounter:
		return DataTypeCounter
	case gocql.TypeDecimal:
		return DataTypeDecimal
	case gocql.TypeDouble:
		return DataTypeDouble
	case gocql.TypeFloat:
		return DataTypeFloat
	case gocql.TypeInt:
		return DataTypeInt
	case gocql.TypeText:
		return DataTypeText
	case gocql.TypeTimestamp:
		return DataTypeTimestamp
	case gocql.TypeUUID:
		return DataTypeUUID
	case gocql.TypeVarchar:
		return DataTypeVarChar
	case gocql.TypeVarint:
		return DataTypeVarInt
	case gocql.TypeTimeUUID:
		return DataTypeTimeUUID
	case gocql.TypeInet:
		return DataTypeInet
	case gocql.TypeDate:
		return DataTypeDate
	case gocql.TypeTime:
		return DataTypeTime
	case gocql.TypeSmallInt:
		return DataTypeSmallInt
	case gocql.TypeTinyInt:
		return DataTypeTinyInt
	case gocql.TypeDuration:
		return DataTypeDuration
	case gocql.TypeList:
		return DataTypeList
	case gocql.TypeMap:
		return DataTypeMap
	case gocql.TypeSet:
		return DataTypeSet
	case gocql.TypeUDT:
		return DataTypeUDT
	case gocql.TypeTuple:
		return DataTypeTuple
	default:
		return DataTypeUnknown
	}
}

// String returns the CQL name of the type.
func (t DataType) String() string {
	switch t {
	case DataTypeCustom:
		return "custom"
	case DataTypeASCII:
		return "ascii"
	case DataTypeBigInt:
		return "bigint"
	case DataTypeBlob:
		return "blob"
	case DataTypeBoolean:
		return "boolean"
	case DataTypeCounter:
		return "counter"
	case DataTypeDecimal:
		return "decimal"
	case DataTypeDouble:
		return "double"
	case DataTypeFloat:
		return "float"
	case DataTypeInt:
		return "int"
	case DataTypeText:
		return "text"
	case DataTypeTimestamp:
		return "timestamp"
	case DataTypeUUID:
		return "uuid"
	case DataTypeVarChar:
		return "varchar"
	case DataTypeVarInt:
		return "varint"
	case DataTypeTimeUUID:
		return "timeuuid"
	case DataTypeInet:
		return "inet"
	case DataTypeDate:
		return "date"
	case DataTypeTime:
		return "time"
	case DataTypeSmallInt:
		return "smallint"
	case DataTypeTinyInt:
		return "tinyint"
	case DataTypeDuration:
		return "duration"
	case DataTypeList:
		return "list"
	case DataTypeMap:
		return "map"
	case DataTypeSet:
		return "set"
	case DataTypeUDT:
		return "udt"
	case DataTypeTuple:
		return "tuple"
	default:
		return "unknown"
	}
}

// IsComposite reports whether values of the type hold nested values.
func (t DataType) IsComposite() bool {
	switch t {
	case DataTypeList, DataTypeMap, DataTypeSet, DataTypeTuple, DataTypeUDT:
		return true
	default:
		return false
	}
}

type (
	// ColumnSpec describes a result column or a bind marker.
	ColumnSpec struct {
		Keyspace string
		Table    string
		Name     string
		Type     gocql.TypeInfo
	}

	// Header holds the column specs of a result
	Header []ColumnSpec

	// RawRow holds the wire bytes of each column in a row. A nil cell is null.
	RawRow [][]byte

	// ResultStream is a result from executed statement and has a form of an iterator
	ResultStream interface {
		Header() Header
		Next() (RawRow, error)
		HasNext() bool
		Close()
	}
)

// Names returns column names in order.
func (h Header) Names() []string {
	names := make([]string, len(h))
	for i := range h {
		names[i] = h[i].Name
	}
	return names
}

// DataType returns the type tag of the column.
func (c ColumnSpec) DataType() DataType {
	return DataTypeFromTypeInfo(c.Type)
}

// BoundValue is one encoded bind parameter. Data is nil for null.
// Values that are not set are sent as "unset" so the server keeps
// whatever the column holds.
type BoundValue struct {
	Data  []byte
	IsSet bool
}

// MarshalCQL implements gocql.Marshaler. The data is already encoded for
// the marker type at bind time.
func (v BoundValue) MarshalCQL(gocql.TypeInfo) ([]byte, error) {
	return v.Data, nil
}

// PreparedInfo is what a session returns for a compiled query.
type PreparedInfo struct {
	Query  string
	Params Header
	// Handle is owned by the session that produced the info.
	Handle any
}

type (
	// Adapter opens sessions against a cluster.
	Adapter interface {
		Connect() (Session, error)
	}

	// Session is a connection to a cluster, safe for concurrent use.
	Session interface {
		// Prepare compiles the query against the cluster schema.
		Prepare(ctx context.Context, query string) (*PreparedInfo, error)
		// Execute runs a prepared query with one value per bind marker.
		Execute(ctx context.Context, info *PreparedInfo, values []BoundValue) (ResultStream, error)
		// Release is called once no prepared statement refers to info anymore.
		Release(info *PreparedInfo)
		Close()
	}
)
