// Package sql compiles declarative filter and metric definitions into
// injection-safe SQL fragments for the embedded analytical engine.
package sql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/apperrors"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
)

// identifierPattern accepts alphanumerics, underscore, and CJK ideographs.
// Anything else is rejected outright, never quoted or interpolated.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_\p{Han}]+$`)

// ValidateIdentifier rejects any column name that could carry SQL syntax.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidColumn, name)
	}
	return nil
}

// QuoteString renders a SQL string literal with internal quotes doubled.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// renderLiteral renders a scalar literal. Arrays are handled by the in/not_in
// path and are a type mismatch anywhere else.
func renderLiteral(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return QuoteString(t), nil
	case bool:
		if t {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(t), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case nil:
		return "NULL", nil
	default:
		return "", fmt.Errorf("%w: unsupported literal type %T", apperrors.ErrTypeMismatch, v)
	}
}

// asArray normalizes the value of an in/not_in filter to a []any.
func asArray(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}

// CompileFilter compiles one atomic condition into a SQL boolean fragment.
//
// Returns apperrors.ErrInvalidColumn if the column fails the identifier
// check, apperrors.ErrTypeMismatch if the value shape does not match the
// operator, and apperrors.ErrUnsupportedOperator for any other combination.
func CompileFilter(f models.FilterExpr) (string, error) {
	if err := ValidateIdentifier(f.Column); err != nil {
		return "", err
	}

	if rt, ok := f.Value.(*models.RelativeTimeValue); ok {
		return compileRelativeTime(f.Column, f.Op, rt)
	}

	switch f.Op {
	case models.OpEqual, models.OpNotEqual, models.OpGreater,
		models.OpGreaterEqual, models.OpLess, models.OpLessEqual:
		if _, isArr := asArray(f.Value); isArr {
			return "", fmt.Errorf("%w: array value requires in/not_in", apperrors.ErrTypeMismatch)
		}
		lit, err := renderLiteral(f.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", f.Column, f.Op, lit), nil

	case models.OpIn, models.OpNotIn:
		arr, ok := asArray(f.Value)
		if !ok {
			return "", fmt.Errorf("%w: %s requires an array value", apperrors.ErrTypeMismatch, f.Op)
		}
		if len(arr) == 0 {
			return "", fmt.Errorf("%w: %s requires a non-empty array", apperrors.ErrTypeMismatch, f.Op)
		}
		parts := make([]string, len(arr))
		for i, el := range arr {
			lit, err := renderLiteral(el)
			if err != nil {
				return "", err
			}
			parts[i] = lit
		}
		keyword := "IN"
		if f.Op == models.OpNotIn {
			keyword = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", f.Column, keyword, strings.Join(parts, ", ")), nil

	case models.OpContains:
		s, ok := f.Value.(string)
		if !ok {
			return "", fmt.Errorf("%w: contains requires a string value", apperrors.ErrTypeMismatch)
		}
		escaped := strings.ReplaceAll(s, "'", "''")
		return fmt.Sprintf("%s LIKE '%%%s%%'", f.Column, escaped), nil

	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedOperator, f.Op)
	}
}

// compileRelativeTime renders a time-window condition against the evaluation
// clock. Direction decides the comparator: a past window keeps rows on or
// after now minus the interval, a future window keeps rows on or before now
// plus the interval. The supplied operator is validated but does not change
// the comparator; direction is authoritative.
func compileRelativeTime(column string, op models.Operator, rt *models.RelativeTimeValue) (string, error) {
	if !op.IsComparison() {
		return "", fmt.Errorf("%w: %q cannot take a relative-time value", apperrors.ErrUnsupportedOperator, op)
	}
	if !rt.Unit.Valid() {
		return "", fmt.Errorf("%w: unknown time unit %q", apperrors.ErrTypeMismatch, rt.Unit)
	}
	if rt.Amount <= 0 {
		return "", fmt.Errorf("%w: relative-time amount must be positive, got %d", apperrors.ErrTypeMismatch, rt.Amount)
	}

	switch rt.Direction {
	case models.DirectionPast:
		return fmt.Sprintf("CAST(%s AS TIMESTAMP) >= CURRENT_TIMESTAMP - INTERVAL '%d %s'",
			column, rt.Amount, rt.Unit), nil
	case models.DirectionFuture:
		return fmt.Sprintf("CAST(%s AS TIMESTAMP) <= CURRENT_TIMESTAMP + INTERVAL '%d %s'",
			column, rt.Amount, rt.Unit), nil
	default:
		return "", fmt.Errorf("%w: unknown time direction %q", apperrors.ErrTypeMismatch, rt.Direction)
	}
}

// CompileFilters compiles a list of conditions joined with AND. Fails on the
// first bad filter.
func CompileFilters(filters []models.FilterExpr) (string, error) {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		frag, err := CompileFilter(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, frag)
	}
	return strings.Join(parts, " AND "), nil
}
