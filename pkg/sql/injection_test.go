package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
)

func TestScreenFilter(t *testing.T) {
	t.Run("flags classic injection literal", func(t *testing.T) {
		findings := ScreenFilter(models.FilterExpr{
			Column: "note",
			Op:     models.OpEqual,
			Value:  "' OR 1=1--",
		})
		require.Len(t, findings, 1)
		assert.Equal(t, "note", findings[0].Column)
		assert.Equal(t, "' OR 1=1--", findings[0].Value)
		assert.NotEmpty(t, findings[0].Fingerprint)
	})

	t.Run("benign literal passes", func(t *testing.T) {
		findings := ScreenFilter(models.FilterExpr{
			Column: "status",
			Op:     models.OpEqual,
			Value:  "paid",
		})
		assert.Empty(t, findings)
	})

	t.Run("non-string values pass", func(t *testing.T) {
		findings := ScreenFilter(models.FilterExpr{
			Column: "amount",
			Op:     models.OpGreater,
			Value:  100,
		})
		assert.Empty(t, findings)
	})

	t.Run("array elements screened individually", func(t *testing.T) {
		findings := ScreenFilter(models.FilterExpr{
			Column: "region",
			Op:     models.OpIn,
			Value:  []any{"north", "'; DROP TABLE orders--", "south"},
		})
		require.Len(t, findings, 1)
		assert.Equal(t, "'; DROP TABLE orders--", findings[0].Value)
	})
}

func TestScreenFilters(t *testing.T) {
	filters := []models.FilterExpr{
		{Column: "status", Op: models.OpEqual, Value: "paid"},
		{Column: "note", Op: models.OpEqual, Value: "' UNION SELECT password FROM users--"},
	}
	findings := ScreenFilters(filters)
	require.Len(t, findings, 1)
	assert.Equal(t, "note", findings[0].Column)
}
