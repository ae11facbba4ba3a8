// Package rfm detects Recency/Frequency/Monetary column roles in a table
// schema and generates the SQL that extracts per-customer RFM features.
package rfm

import (
	"fmt"
	"strings"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/apperrors"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
)

// Detect assigns semantic roles to columns by name. It is a pure function
// of the column-name list, case-insensitive, and returns a fresh value per
// call.
//
// Pre-computed RFM always wins: when the schema carries recency, frequency,
// and monetary columns, the result holds only those three and the raw-order
// fields stay empty even if raw order columns are also present.
func Detect(columns []string) models.RFMColumns {
	result := models.RFMColumns{
		Confidence: make(map[string]float64),
	}

	if pre, ok := detectPrecomputed(columns); ok {
		result.Precomputed = pre
		result.Confidence["recency"] = 1.0
		result.Confidence["frequency"] = 1.0
		result.Confidence["monetary"] = 1.0
		return result
	}

	result.CustomerID, result.Confidence["customer_id"] = matchRole(columns, customerIDPatterns)
	result.OrderID, result.Confidence["order_id"] = matchRole(columns, orderIDPatterns)
	result.OrderDate, result.Confidence["order_date"] = matchRole(columns, orderDatePatterns)
	result.OrderAmount, result.Confidence["order_amount"] = matchAmount(columns)

	return result
}

// detectPrecomputed scans for columns whose lowercased name equals or
// contains each RFM role term. All three must be present.
func detectPrecomputed(columns []string) (models.PrecomputedRFM, bool) {
	var pre models.PrecomputedRFM
	for role, term := range precomputedRoleTerms {
		for _, col := range columns {
			if strings.Contains(strings.ToLower(col), term) {
				switch role {
				case "recency":
					pre.Recency = col
				case "frequency":
					pre.Frequency = col
				case "monetary":
					pre.Monetary = col
				}
				break
			}
		}
	}
	return pre, pre.Complete()
}

// matchRole scans pattern tiers in order; within a tier every column is
// tried before moving on, so a lower-priority column never outranks an
// earlier pattern.
func matchRole(columns []string, patterns []rolePattern) (string, float64) {
	for _, p := range patterns {
		for _, col := range columns {
			lower := strings.ToLower(col)
			if p.re.MatchString(lower) || p.re.MatchString(normalizeColumn(col)) {
				return col, p.confidence
			}
		}
	}
	return "", 0
}

// matchAmount runs the three amount tiers: exact precise names short-circuit
// at confidence 1.0, then fuzzy term matches survive only if no exclusion
// term fires, at confidence 0.8.
func matchAmount(columns []string) (string, float64) {
	for _, name := range preciseAmountNames {
		for _, col := range columns {
			if strings.ToLower(col) == name || normalizeColumn(col) == name {
				return col, 1.0
			}
		}
	}

	for _, col := range columns {
		lower := strings.ToLower(col)
		for _, term := range fuzzyAmountTerms {
			if !strings.Contains(lower, term) {
				continue
			}
			if hasExclusionTerm(lower) {
				break
			}
			return col, 0.8
		}
	}

	return "", 0
}

func hasExclusionTerm(lower string) bool {
	for _, excl := range amountExclusions {
		if strings.Contains(lower, excl) {
			return true
		}
	}
	return false
}

// Validate checks that segmentation can run on the detected columns. A
// complete precomputed mapping always validates; otherwise customer id,
// order date, and order amount must all be present. The error names exactly
// the missing roles.
func Validate(cols models.RFMColumns) error {
	if cols.Precomputed.Complete() {
		return nil
	}

	var missing []string
	if cols.CustomerID == "" {
		missing = append(missing, "customer id")
	}
	if cols.OrderDate == "" {
		missing = append(missing, "order date")
	}
	if cols.OrderAmount == "" {
		missing = append(missing, "order amount")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrMissingRequiredColumns, strings.Join(missing, ", "))
	}
	return nil
}
