package rfm

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/apperrors"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
)

func rawCols() models.RFMColumns {
	return models.RFMColumns{
		CustomerID:  "customer_id",
		OrderID:     "order_id",
		OrderDate:   "order_date",
		OrderAmount: "amount",
	}
}

func TestGenerate_Computed(t *testing.T) {
	result, err := Generate("orders", rawCols(), 0, nil)
	require.NoError(t, err)

	assert.False(t, result.IsPrecomputed)
	assert.True(t, result.IsSampled)
	assert.Equal(t, MaxSampleSize, result.SampleSize)

	assert.True(t, strings.HasPrefix(result.SQL, "WITH customer_orders AS"))
	assert.Contains(t, result.SQL, "COUNT(DISTINCT order_id)")
	assert.Contains(t, result.SQL, "date_diff('day', co.last_order_date, b.baseline_date)")
	assert.Contains(t, result.SQL, "MAX(CAST(order_date AS TIMESTAMP)) AS baseline_date")
	assert.Contains(t, result.SQL, "ORDER BY RANDOM() LIMIT 10000")
	assert.Contains(t, result.SQL, "(SELECT COUNT(*) FROM cleaned) <= 50000")
	assert.Contains(t, result.SQL, "CAST(amount AS DOUBLE) >= 0")
	assert.Contains(t, result.SQL, "ORDER BY c.customer_id")
}

func TestGenerate_ComputedWithoutOrderID(t *testing.T) {
	cols := rawCols()
	cols.OrderID = ""

	result, err := Generate("orders", cols, 0, nil)
	require.NoError(t, err)

	assert.Contains(t, result.SQL, "COUNT(*) AS frequency")
	assert.NotContains(t, result.SQL, "DISTINCT")
}

func TestGenerate_ExplicitSampleSize(t *testing.T) {
	result, err := Generate("orders", rawCols(), 500, nil)
	require.NoError(t, err)

	assert.True(t, result.IsSampled)
	assert.Equal(t, 500, result.SampleSize)
	assert.Contains(t, result.SQL, "ORDER BY RANDOM() LIMIT 500")
	// An explicit sample applies unconditionally, with no threshold escape.
	assert.NotContains(t, result.SQL, "50000")
}

func TestGenerate_ExplicitBaseline(t *testing.T) {
	baseline := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	result, err := Generate("orders", rawCols(), 0, &baseline)
	require.NoError(t, err)

	assert.Contains(t, result.SQL, "TIMESTAMP '2024-06-30 00:00:00'")
	assert.NotContains(t, result.SQL, "MAX(CAST(order_date AS TIMESTAMP))")
}

func TestGenerate_Precomputed(t *testing.T) {
	cols := models.RFMColumns{
		Precomputed: models.PrecomputedRFM{
			Recency:   "recency",
			Frequency: "frequency",
			Monetary:  "monetary",
		},
	}

	result, err := Generate("customer_scores", cols, 0, nil)
	require.NoError(t, err)

	assert.True(t, result.IsPrecomputed)
	assert.False(t, result.IsSampled)
	assert.Contains(t, result.SQL, "row_number() OVER ()")
	assert.Contains(t, result.SQL, "CAST(recency AS DOUBLE) >= 0")
	assert.NotContains(t, result.SQL, "RANDOM")
}

func TestGenerate_PrecomputedWithCustomerID(t *testing.T) {
	cols := models.RFMColumns{
		CustomerID: "customer_id",
		Precomputed: models.PrecomputedRFM{
			Recency:   "recency",
			Frequency: "frequency",
			Monetary:  "monetary",
		},
	}

	result, err := Generate("customer_scores", cols, 0, nil)
	require.NoError(t, err)

	assert.Contains(t, result.SQL, "CAST(customer_id AS VARCHAR) AS customer_id")
	assert.NotContains(t, result.SQL, "row_number")
	assert.Contains(t, result.SQL, "ORDER BY customer_id")
}

func TestGenerate_RejectsBadIdentifiers(t *testing.T) {
	_, err := Generate("orders; DROP TABLE orders;--", rawCols(), 0, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidColumn))

	cols := rawCols()
	cols.OrderAmount = "amount\" OR 1=1"
	_, err = Generate("orders", cols, 0, nil)
	require.Error(t, err)
}

func TestGenerate_MissingColumns(t *testing.T) {
	_, err := Generate("orders", models.RFMColumns{CustomerID: "customer_id"}, 0, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMissingRequiredColumns))
}

func TestGenerateCustomerCount(t *testing.T) {
	sql, err := GenerateCustomerCount("orders", rawCols())
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(DISTINCT customer_id) AS customer_count FROM orders WHERE customer_id IS NOT NULL", sql)

	pre := models.RFMColumns{
		Precomputed: models.PrecomputedRFM{
			Recency:   "recency",
			Frequency: "frequency",
			Monetary:  "monetary",
		},
	}
	sql, err = GenerateCustomerCount("customer_scores", pre)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS customer_count FROM customer_scores WHERE recency IS NOT NULL", sql)
}

func TestValidateCustomerCount(t *testing.T) {
	require.NoError(t, ValidateCustomerCount(MinCustomers))
	require.NoError(t, ValidateCustomerCount(5000))

	err := ValidateCustomerCount(9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientData))
	assert.Contains(t, err.Error(), "9")
	assert.Contains(t, err.Error(), "10")
}
