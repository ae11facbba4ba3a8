package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
)

// InjectionFinding records a string literal that libinjection flagged.
// Quote doubling already neutralizes these values in generated SQL, so a
// finding is an audit signal, not a compile failure.
type InjectionFinding struct {
	Column      string // Filter column the value was supplied for
	Value       string // The flagged value
	Fingerprint string // libinjection fingerprint for pattern analysis
}

// checkLiteral runs libinjection over a single value. Non-string values
// cannot carry SQL syntax and always pass.
func checkLiteral(column string, value any) *InjectionFinding {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(s)
	if !isSQLi {
		return nil
	}
	return &InjectionFinding{
		Column:      column,
		Value:       s,
		Fingerprint: string(fingerprint),
	}
}

// ScreenFilter inspects every string literal in a filter (including array
// elements) for SQL injection patterns.
func ScreenFilter(f models.FilterExpr) []*InjectionFinding {
	var findings []*InjectionFinding
	if arr, ok := asArray(f.Value); ok {
		for _, el := range arr {
			if finding := checkLiteral(f.Column, el); finding != nil {
				findings = append(findings, finding)
			}
		}
		return findings
	}
	if finding := checkLiteral(f.Column, f.Value); finding != nil {
		findings = append(findings, finding)
	}
	return findings
}

// ScreenFilters screens a list of filters, including metric-level where
// clauses flattened by the caller.
func ScreenFilters(filters []models.FilterExpr) []*InjectionFinding {
	var findings []*InjectionFinding
	for _, f := range filters {
		findings = append(findings, ScreenFilter(f)...)
	}
	return findings
}
