package rfm

import (
	"fmt"
	"strings"
	"time"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/apperrors"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
	enginesql "github.com/cohortiq-inc/cohortiq-engine/pkg/sql"
)

const (
	// MinCustomers is the smallest population segmentation accepts.
	MinCustomers = 10
	// LargeDatasetThreshold is the cleaned-population size above which the
	// automatic sampling predicate starts dropping customers.
	LargeDatasetThreshold = 50000
	// MaxSampleSize caps the random sample taken from large populations.
	MaxSampleSize = 10000
)

// GenerateResult describes the SQL produced for one RFM extraction.
type GenerateResult struct {
	SQL           string
	IsPrecomputed bool
	IsSampled     bool
	SampleSize    int
}

// Generate emits the SQL that produces one (customer_id, recency, frequency,
// monetary) row per customer.
//
// With a complete precomputed mapping the query is a straight SELECT over
// those columns and sampling never applies. Otherwise the query aggregates
// raw order rows per customer and derives recency in whole days against the
// baseline date, which defaults to the table-wide latest order date.
//
// sampleSize <= 0 selects automatic sampling: small populations are kept
// whole, large ones are cut to a random sample, decided inside a single SQL
// predicate rather than in two passes. An explicit sampleSize always
// samples to at most that many customers.
func Generate(tableName string, cols models.RFMColumns, sampleSize int, baseline *time.Time) (GenerateResult, error) {
	if err := enginesql.ValidateIdentifier(tableName); err != nil {
		return GenerateResult{}, err
	}

	if cols.Precomputed.Complete() {
		return generatePrecomputed(tableName, cols)
	}
	if err := Validate(cols); err != nil {
		return GenerateResult{}, err
	}
	return generateComputed(tableName, cols, sampleSize, baseline)
}

func generatePrecomputed(tableName string, cols models.RFMColumns) (GenerateResult, error) {
	pre := cols.Precomputed
	for _, col := range []string{pre.Recency, pre.Frequency, pre.Monetary} {
		if err := enginesql.ValidateIdentifier(col); err != nil {
			return GenerateResult{}, err
		}
	}

	// Precomputed tables are keyed however the row identity falls out;
	// without a detected customer column a synthetic row key stands in.
	customerKey := "CAST(row_number() OVER () AS VARCHAR)"
	orderBy := "customer_id"
	if cols.CustomerID != "" {
		if err := enginesql.ValidateIdentifier(cols.CustomerID); err != nil {
			return GenerateResult{}, err
		}
		customerKey = fmt.Sprintf("CAST(%s AS VARCHAR)", cols.CustomerID)
		orderBy = cols.CustomerID
	}

	sql := fmt.Sprintf(`SELECT
    %s AS customer_id,
    CAST(%s AS DOUBLE) AS recency,
    CAST(%s AS DOUBLE) AS frequency,
    CAST(%s AS DOUBLE) AS monetary
FROM %s
WHERE %s IS NOT NULL AND CAST(%s AS DOUBLE) >= 0
  AND %s IS NOT NULL AND CAST(%s AS DOUBLE) >= 0
  AND %s IS NOT NULL
ORDER BY %s`,
		customerKey,
		pre.Recency, pre.Frequency, pre.Monetary,
		tableName,
		pre.Recency, pre.Recency,
		pre.Monetary, pre.Monetary,
		pre.Frequency,
		orderBy)

	return GenerateResult{SQL: sql, IsPrecomputed: true}, nil
}

func generateComputed(tableName string, cols models.RFMColumns, sampleSize int, baseline *time.Time) (GenerateResult, error) {
	for _, col := range []string{cols.CustomerID, cols.OrderDate, cols.OrderAmount} {
		if err := enginesql.ValidateIdentifier(col); err != nil {
			return GenerateResult{}, err
		}
	}

	// Frequency counts distinct orders when an order id was detected,
	// otherwise it falls back to counting rows.
	frequencyExpr := "COUNT(*)"
	if cols.OrderID != "" {
		if err := enginesql.ValidateIdentifier(cols.OrderID); err != nil {
			return GenerateResult{}, err
		}
		frequencyExpr = fmt.Sprintf("COUNT(DISTINCT %s)", cols.OrderID)
	}

	baselineExpr := fmt.Sprintf("SELECT MAX(CAST(%s AS TIMESTAMP)) AS baseline_date FROM %s", cols.OrderDate, tableName)
	if baseline != nil {
		baselineExpr = fmt.Sprintf("SELECT TIMESTAMP '%s' AS baseline_date", baseline.Format("2006-01-02 15:04:05"))
	}

	var b strings.Builder
	fmt.Fprintf(&b, `WITH customer_orders AS (
    SELECT
        CAST(%s AS VARCHAR) AS customer_id,
        MAX(CAST(%s AS TIMESTAMP)) AS last_order_date,
        %s AS frequency,
        SUM(CAST(%s AS DOUBLE)) AS monetary
    FROM %s
    WHERE %s IS NOT NULL
      AND %s IS NOT NULL
      AND %s IS NOT NULL AND CAST(%s AS DOUBLE) >= 0
    GROUP BY customer_id
),
baseline AS (
    %s
),
cleaned AS (
    SELECT
        co.customer_id,
        CAST(date_diff('day', co.last_order_date, b.baseline_date) AS DOUBLE) AS recency,
        CAST(co.frequency AS DOUBLE) AS frequency,
        co.monetary
    FROM customer_orders co
    CROSS JOIN baseline b
    WHERE date_diff('day', co.last_order_date, b.baseline_date) >= 0
      AND co.monetary >= 0
)`,
		cols.CustomerID,
		cols.OrderDate,
		frequencyExpr,
		cols.OrderAmount,
		tableName,
		cols.CustomerID,
		cols.OrderDate,
		cols.OrderAmount, cols.OrderAmount,
		baselineExpr)

	result := GenerateResult{IsSampled: true, SampleSize: sampleSize}

	switch {
	case sampleSize > 0:
		// Explicit sample: always cut to at most sampleSize customers.
		fmt.Fprintf(&b, `,
sampled AS (
    SELECT customer_id FROM cleaned ORDER BY RANDOM() LIMIT %d
)
SELECT c.customer_id, c.recency, c.frequency, c.monetary
FROM cleaned c
WHERE c.customer_id IN (SELECT customer_id FROM sampled)
ORDER BY c.customer_id`, sampleSize)

	default:
		// Automatic sampling: keep everyone below the threshold, otherwise
		// keep the random sample. One predicate, not two passes.
		result.SampleSize = MaxSampleSize
		fmt.Fprintf(&b, `,
sampled AS (
    SELECT customer_id FROM cleaned ORDER BY RANDOM() LIMIT %d
)
SELECT c.customer_id, c.recency, c.frequency, c.monetary
FROM cleaned c
WHERE (SELECT COUNT(*) FROM cleaned) <= %d
   OR c.customer_id IN (SELECT customer_id FROM sampled)
ORDER BY c.customer_id`, MaxSampleSize, LargeDatasetThreshold)
	}

	result.SQL = b.String()
	return result, nil
}

// GenerateCustomerCount emits the companion query that counts eligible
// customers before committing to the full RFM extraction.
func GenerateCustomerCount(tableName string, cols models.RFMColumns) (string, error) {
	if err := enginesql.ValidateIdentifier(tableName); err != nil {
		return "", err
	}

	if cols.Precomputed.Complete() {
		if err := enginesql.ValidateIdentifier(cols.Precomputed.Recency); err != nil {
			return "", err
		}
		return fmt.Sprintf("SELECT COUNT(*) AS customer_count FROM %s WHERE %s IS NOT NULL",
			tableName, cols.Precomputed.Recency), nil
	}

	if cols.CustomerID == "" {
		return "", fmt.Errorf("%w: customer id", apperrors.ErrMissingRequiredColumns)
	}
	if err := enginesql.ValidateIdentifier(cols.CustomerID); err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT COUNT(DISTINCT %s) AS customer_count FROM %s WHERE %s IS NOT NULL",
		cols.CustomerID, tableName, cols.CustomerID), nil
}

// ValidateCustomerCount rejects populations too small to segment. The error
// carries both the actual and the required count.
func ValidateCustomerCount(n int) error {
	if n < MinCustomers {
		return fmt.Errorf("%w: found %d, need at least %d", apperrors.ErrInsufficientData, n, MinCustomers)
	}
	return nil
}
