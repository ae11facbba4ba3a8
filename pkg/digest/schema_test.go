package digest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/adapters/datasource"
)

func TestBuildSchema(t *testing.T) {
	tables := []TableSchema{
		{
			Name: "orders",
			Columns: []datasource.Column{
				{Name: "customer_id", DataType: "VARCHAR"},
				{Name: "amount", DataType: "DOUBLE"},
			},
		},
		{
			Name: "customers",
			Columns: []datasource.Column{
				{Name: "id", DataType: "VARCHAR"},
			},
		},
	}

	out := BuildSchema(tables, SchemaMaxChars)
	assert.Equal(t, "orders(customer_id VARCHAR, amount DOUBLE)\ncustomers(id VARCHAR)", out)
}

func TestBuildSchema_Truncates(t *testing.T) {
	cols := make([]datasource.Column, 100)
	for i := range cols {
		cols[i] = datasource.Column{Name: strings.Repeat("c", 20), DataType: "VARCHAR"}
	}

	out := BuildSchema([]TableSchema{{Name: "wide", Columns: cols}}, SchemaMaxChars)
	assert.True(t, strings.HasSuffix(out, TruncationMarker))
	assert.Equal(t, SchemaMaxChars+utf8.RuneCountInString(TruncationMarker), utf8.RuneCountInString(out))
}

func TestBuildSchema_Empty(t *testing.T) {
	assert.Equal(t, "", BuildSchema(nil, SchemaMaxChars))
}
