package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/apperrors"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// DeriveAlias builds a SQL alias from a display label: lowercased, with
// whitespace runs collapsed to underscores and unsafe characters dropped.
func DeriveAlias(label string) string {
	alias := whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(label)), "_")
	var b strings.Builder
	for _, r := range alias {
		if identifierPattern.MatchString(string(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CompileMetric compiles one named aggregation into a SQL SELECT expression.
// An explicit alias wins; otherwise the alias derives from the label.
//
// When the metric carries filters, the aggregation is wrapped in conditional
// form: AGG(CASE WHEN cond THEN arg END). For count the arg is the constant
// 1; for count_distinct the DISTINCT keyword stays outside the CASE.
func CompileMetric(m models.MetricDefinition, alias string) (string, error) {
	if !m.Aggregation.Valid() {
		return "", fmt.Errorf("%w: unknown aggregation %q", apperrors.ErrUnsupportedOperator, m.Aggregation)
	}
	if m.Aggregation.RequiresColumn() {
		if m.Column == "" {
			return "", fmt.Errorf("%w: %s needs a column", apperrors.ErrMissingColumn, m.Aggregation)
		}
		if err := ValidateIdentifier(m.Column); err != nil {
			return "", err
		}
	}

	cond := ""
	if len(m.Where) > 0 {
		compiled, err := CompileFilters(m.Where)
		if err != nil {
			return "", err
		}
		cond = compiled
	}

	var expr string
	switch m.Aggregation {
	case models.AggCount:
		if cond == "" {
			expr = "COUNT(*)"
		} else {
			expr = fmt.Sprintf("COUNT(CASE WHEN %s THEN 1 END)", cond)
		}
	case models.AggCountDistinct:
		if cond == "" {
			expr = fmt.Sprintf("COUNT(DISTINCT %s)", m.Column)
		} else {
			expr = fmt.Sprintf("COUNT(DISTINCT CASE WHEN %s THEN %s END)", cond, m.Column)
		}
	case models.AggSum, models.AggAvg, models.AggMin, models.AggMax:
		agg := strings.ToUpper(string(m.Aggregation))
		if cond == "" {
			expr = fmt.Sprintf("%s(%s)", agg, m.Column)
		} else {
			expr = fmt.Sprintf("%s(CASE WHEN %s THEN %s END)", agg, cond, m.Column)
		}
	}

	if alias == "" {
		alias = DeriveAlias(m.Label)
	} else if err := ValidateIdentifier(alias); err != nil {
		return "", err
	}
	if alias == "" {
		return expr, nil
	}
	return expr + " AS " + alias, nil
}

// CompileMetrics compiles an ordered metric set into SELECT expressions,
// truncating to the first limit entries when limit > 0. A single failing
// metric aborts the whole batch.
func CompileMetrics(set models.MetricSet, limit int) ([]string, error) {
	if limit > 0 && len(set) > limit {
		set = set[:limit]
	}
	exprs := make([]string, 0, len(set))
	for _, m := range set {
		expr, err := CompileMetric(m, "")
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", m.Name, err)
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

// DetectMetricSource reports where the effective definition of a metric name
// comes from: a name present in both sets is a user override.
func DetectMetricSource(system, user models.MetricSet, name string) models.MetricSource {
	_, inUser := user.Lookup(name)
	if inUser {
		return models.MetricSourceUser
	}
	if _, inSystem := system.Lookup(name); inSystem {
		return models.MetricSourceSystem
	}
	return models.MetricSourceNone
}
