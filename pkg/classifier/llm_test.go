package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/llm"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
)

func TestRouter_HighKeywordConfidenceSkipsModel(t *testing.T) {
	mock := llm.NewMockLLMClient()
	router := NewRouter(mock, zap.NewNop())

	got := router.Classify(context.Background(), "按照地区统计销售额", "", "")

	assert.Equal(t, models.QueryTypeKPIGrouped, got.QueryType)
	assert.Equal(t, models.MethodKeyword, got.Method)
	assert.Zero(t, mock.GenerateResponseCalls)
}

func TestRouter_NilClientUsesKeywordResult(t *testing.T) {
	router := NewRouter(nil, zap.NewNop())

	got := router.Classify(context.Background(), "some vague question about stuff", "", "")
	assert.Equal(t, models.MethodKeyword, got.Method)
}

func TestRouter_ModelWinsOnHigherConfidence(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return `{"queryType": "trend_time", "confidence": 0.95, "reasoning": "asks about change over a period"}`, nil
	}
	router := NewRouter(mock, zap.NewNop())

	// A lone secondary hit ("count") scores 0.6, below the fallback threshold.
	got := router.Classify(context.Background(), "a rough count of things lately", "", "")

	assert.Equal(t, models.QueryTypeTrendTime, got.QueryType)
	assert.Equal(t, models.MethodModel, got.Method)
	assert.Equal(t, 0.95, got.Confidence)
	assert.Equal(t, 1, mock.GenerateResponseCalls)
}

func TestRouter_KeywordWinsTiesAndHigher(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return `{"queryType": "distribution", "confidence": 0.6}`, nil
	}
	router := NewRouter(mock, zap.NewNop())

	got := router.Classify(context.Background(), "a rough count of things lately", "", "")

	assert.Equal(t, models.MethodKeyword, got.Method)
	assert.Equal(t, models.QueryTypeKPISingle, got.QueryType)
}

func TestRouter_ModelFailureDegradesToKeyword(t *testing.T) {
	tests := []struct {
		name string
		fn   func(ctx context.Context, prompt, system string, temperature float64) (string, error)
	}{
		{
			name: "transport error",
			fn: func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
				return "", errors.New("connection refused")
			},
		},
		{
			name: "malformed json",
			fn: func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
				return "I think it is a trend question.", nil
			},
		},
		{
			name: "unknown type",
			fn: func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
				return `{"queryType": "forecast", "confidence": 0.99}`, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockLLMClient()
			mock.GenerateResponseFunc = tt.fn
			router := NewRouter(mock, zap.NewNop())

			got := router.Classify(context.Background(), "a rough count of things lately", "", "")

			// Keyword result (0.6) beats the degraded model result (0.3).
			assert.Equal(t, models.MethodKeyword, got.Method)
			assert.Equal(t, models.QueryTypeKPISingle, got.QueryType)
		})
	}
}

func TestRouter_SchemaDigestTruncatedInPrompt(t *testing.T) {
	var seenPrompt string
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		seenPrompt = prompt
		return `{"queryType": "unknown", "confidence": 0.1}`, nil
	}
	router := NewRouter(mock, zap.NewNop())

	longDigest := make([]byte, 0, 1200)
	for i := 0; i < 1200; i++ {
		longDigest = append(longDigest, 'x')
	}
	router.Classify(context.Background(), "a rough count of things lately", "", string(longDigest))

	assert.Contains(t, seenPrompt, "Available data:")
	assert.Less(t, len(seenPrompt), 700)
}
