package digest

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
)

func sampleConfig(nFilters, nMetrics int) models.SkillConfig {
	cfg := models.SkillConfig{
		TableName: "orders",
		FieldMapping: models.FieldMapping{
			"customer": "customer_id",
			"amount":   "order_amount",
		},
	}
	for i := 0; i < nFilters; i++ {
		cfg.Filters = append(cfg.Filters, models.FilterExpr{
			Column: fmt.Sprintf("col_%d", i), Op: models.OpEqual, Value: i,
		})
	}
	for i := 0; i < nMetrics; i++ {
		cfg.Metrics = append(cfg.Metrics, models.MetricDefinition{
			Name:        fmt.Sprintf("m_%d", i),
			Label:       fmt.Sprintf("Metric %d", i),
			Aggregation: models.AggCount,
		})
	}
	return cfg
}

func TestBuild_IncludesMappingAndSections(t *testing.T) {
	out := Build(sampleConfig(2, 2), DefaultLimits())

	assert.Contains(t, out, "Table: orders")
	assert.Contains(t, out, "customer -> customer_id")
	assert.Contains(t, out, "col_0 = 0")
	assert.Contains(t, out, "Metric 1: count(*)")
	assert.NotContains(t, out, TruncationMarker)
}

func TestBuild_TopKCutoffKeepsOriginalOrder(t *testing.T) {
	out := Build(sampleConfig(8, 10), DefaultLimits())

	// First five filters kept in insertion order, remainder summarized.
	assert.Contains(t, out, "col_0 = 0")
	assert.Contains(t, out, "col_4 = 4")
	assert.NotContains(t, out, "col_5 = 5")
	assert.Contains(t, out, "+3 more...")

	// Eight metrics kept, two summarized.
	assert.Contains(t, out, "Metric 7: count(*)")
	assert.NotContains(t, out, "Metric 8: count(*)")
	assert.Contains(t, out, "+2 more...")
}

func TestBuild_RelativeTimeFilterDescription(t *testing.T) {
	cfg := models.SkillConfig{
		TableName: "orders",
		Filters: []models.FilterExpr{{
			Column: "order_date",
			Op:     models.OpGreaterEqual,
			Value: &models.RelativeTimeValue{
				Kind: "relative_time", Unit: models.UnitMonth, Amount: 3, Direction: models.DirectionPast,
			},
		}},
	}
	out := Build(cfg, DefaultLimits())
	assert.Contains(t, out, "order_date within last 3 month(s)")
}

func TestBuild_HardTruncation(t *testing.T) {
	cfg := sampleConfig(5, 8)
	lim := DefaultLimits()
	lim.MaxChars = 40

	out := Build(cfg, lim)
	require.True(t, strings.HasSuffix(out, TruncationMarker))
	assert.Equal(t, 40+utf8.RuneCountInString(TruncationMarker), utf8.RuneCountInString(out))
}

func TestBuild_LongMappingStarvesLaterSections(t *testing.T) {
	cfg := sampleConfig(2, 2)
	for i := 0; i < 100; i++ {
		cfg.FieldMapping[fmt.Sprintf("role_%03d", i)] = fmt.Sprintf("column_%03d", i)
	}
	lim := DefaultLimits()
	lim.MaxChars = 500

	out := Build(cfg, lim)
	assert.True(t, strings.HasSuffix(out, TruncationMarker))
	assert.NotContains(t, out, "Metrics:")
}

func TestCheckBudget(t *testing.T) {
	assert.True(t, CheckBudget("short", 10))
	assert.True(t, CheckBudget(strings.Repeat("x", 10), 10))
	assert.False(t, CheckBudget(strings.Repeat("x", 11), 10))
}
