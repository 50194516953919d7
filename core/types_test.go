package core_test

import (
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/require"

	"github.com/kndndrj/priam/core"
	"github.com/kndndrj/priam/core/mock"
)

func TestDataTypeFromTypeInfo(t *testing.T) {
	testCases := []struct {
		info     gocql.TypeInfo
		expected core.DataType
		name     string
	}{
		{mock.Native(gocql.TypeInt), core.DataTypeInt, "int"},
		{mock.Native(gocql.TypeVarchar), core.DataTypeVarChar, "varchar"},
		{mock.Native(gocql.TypeTimeUUID), core.DataTypeTimeUUID, "timeuuid"},
		{mock.Native(gocql.TypeDuration), core.DataTypeDuration, "duration"},
		{mock.ListOf(mock.Native(gocql.TypeInt)), core.DataTypeList, "list"},
		{mock.MapOf(mock.Native(gocql.TypeText), mock.Native(gocql.TypeInt)), core.DataTypeMap, "map"},
		{mock.TupleOf(mock.Native(gocql.TypeInt)), core.DataTypeTuple, "tuple"},
		{mock.Custom("org.apache.cassandra.db.marshal.PointType"), core.DataTypeCustom, "custom"},
		{nil, core.DataTypeUnknown, "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := core.DataTypeFromTypeInfo(tc.info)
			require.Equal(t, tc.expected, got)
			require.Equal(t, tc.name, got.String())
		})
	}
}

func TestDataType_IsComposite(t *testing.T) {
	r := require.New(t)

	r.True(core.DataTypeList.IsComposite())
	r.True(core.DataTypeUDT.IsComposite())
	r.False(core.DataTypeBlob.IsComposite())
	r.False(core.DataTypeUnknown.IsComposite())
}

func TestHeader_Names(t *testing.T) {
	header := core.Header{
		mock.Column("k", mock.Native(gocql.TypeInt)),
		mock.Column("v", mock.Native(gocql.TypeText)),
	}
	require.Equal(t, []string{"k", "v"}, header.Names())
	require.Equal(t, core.DataTypeText, header[1].DataType())
}
