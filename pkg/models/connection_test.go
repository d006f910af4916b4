package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestConnection_Selector(t *testing.T) {
	tests := []struct {
		name     string
		connType string
		subType  string
		want     string
	}{
		{"bare type", "postgres", "", "postgres"},
		{"api with sub-type", "api", "events", "api:events"},
		{"api without sub-type", "api", "", "api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := Connection{Type: tt.connType, SubType: tt.subType}
			assert.Equal(t, tt.want, conn.Selector())
		})
	}
}

func TestConnection_IsSQLDialect(t *testing.T) {
	for _, sqlType := range []string{"postgres", "sqlserver", "mysql", "columnar"} {
		conn := Connection{Type: sqlType}
		assert.True(t, conn.IsSQLDialect(), sqlType)
	}
	for _, otherType := range []string{"mongodb", "api", ""} {
		conn := Connection{Type: otherType}
		assert.False(t, conn.IsSQLDialect(), otherType)
	}
}

func TestDataRequest_PaginationFields(t *testing.T) {
	req := DataRequest{}
	items, offset := req.PaginationFields()
	assert.Equal(t, "items", items)
	assert.Equal(t, "offset", offset)

	req = DataRequest{ItemsField: "results", OffsetField: "cursor"}
	items, offset = req.PaginationFields()
	assert.Equal(t, "results", items)
	assert.Equal(t, "cursor", offset)
}

func TestDataRequest_Binding(t *testing.T) {
	req := DataRequest{Variables: []VariableBinding{
		{Name: "status", Type: VariableTypeString},
		{Name: "limit", Type: VariableTypeNumber},
	}}

	binding := req.Binding("limit")
	assert.NotNil(t, binding)
	assert.Equal(t, VariableTypeNumber, binding.Type)
	assert.Nil(t, req.Binding("missing"))
}

func TestChart_IsTable(t *testing.T) {
	assert.True(t, (&Chart{Type: "table"}).IsTable())
	assert.False(t, (&Chart{Type: "line"}).IsTable())
}

func TestCacheKeys(t *testing.T) {
	chartID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	requestID := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")

	assert.Equal(t,
		"user_chart:u-1:6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		UserChartCacheKey("u-1", chartID))
	assert.Equal(t,
		"data_request:7d444840-9dc0-11d1-b245-5ffdce74fad2",
		DataRequestCacheKey(requestID))
}
