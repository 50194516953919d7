package mock

import (
	"fmt"

	"github.com/gocql/gocql"

	"github.com/kndndrj/priam/core"
)

// ProtoVersion is the protocol version of every type built by this package.
const ProtoVersion = 4

func Native(typ gocql.Type) gocql.TypeInfo {
	return gocql.NewNativeType(ProtoVersion, typ, "")
}

func Custom(class string) gocql.TypeInfo {
	return gocql.NewNativeType(ProtoVersion, gocql.TypeCustom, class)
}

func ListOf(elem gocql.TypeInfo) gocql.TypeInfo {
	return gocql.CollectionType{
		NativeType: gocql.NewNativeType(ProtoVersion, gocql.TypeList, ""),
		Elem:       elem,
	}
}

func SetOf(elem gocql.TypeInfo) gocql.TypeInfo {
	return gocql.CollectionType{
		NativeType: gocql.NewNativeType(ProtoVersion, gocql.TypeSet, ""),
		Elem:       elem,
	}
}

func MapOf(key, elem gocql.TypeInfo) gocql.TypeInfo {
	return gocql.CollectionType{
		NativeType: gocql.NewNativeType(ProtoVersion, gocql.TypeMap, ""),
		Key:        key,
		Elem:       elem,
	}
}

func TupleOf(elems ...gocql.TypeInfo) gocql.TypeInfo {
	return gocql.TupleTypeInfo{
		NativeType: gocql.NewNativeType(ProtoVersion, gocql.TypeTuple, ""),
		Elems:      elems,
	}
}

// Column returns a column spec of the mock table.
func Column(name string, info gocql.TypeInfo) core.ColumnSpec {
	return core.ColumnSpec{
		Keyspace: "mock",
		Table:    "mock",
		Name:     name,
		Type:     info,
	}
}

// Raw is stored by NewRow as it is, without encoding.
type Raw []byte

// NewRow encodes values with the column types of header. A nil value is null.
// It panics if a value can not be encoded.
func NewRow(header core.Header, values ...any) core.RawRow {
	if len(values) != len(header) {
		panic(fmt.Sprintf("row has %d values, header has %d columns", len(values), len(header)))
	}

	row := make(core.RawRow, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		if raw, ok := v.(Raw); ok {
			row[i] = raw
			continue
		}
		data, err := gocql.Marshal(header[i].Type, v)
		if err != nil {
			panic(fmt.Sprintf("gocql.Marshal column %q: %s", header[i].Name, err))
		}
		row[i] = data
	}
	return row
}
