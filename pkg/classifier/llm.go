package classifier

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/jsonutil"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/llm"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
)

const (
	// fallbackThreshold: keyword results at or above this confidence never
	// consult the model.
	fallbackThreshold = 0.7
	// llmFailureConfidence is reported when the model path fails; it is low
	// enough that any keyword result wins the comparison.
	llmFailureConfidence = 0.3
	// schemaDigestBudget caps how much of the schema digest goes into the
	// classification prompt.
	schemaDigestBudget = 500
	// classifyTemperature keeps the model deterministic-ish for routing.
	classifyTemperature = 0.1
)

const classifySystemPrompt = `You are a query-intent classifier for a business analytics tool.
Classify the user's question into exactly one of these types:
kpi_single, kpi_grouped, trend_time, distribution, topn, comparison, unknown.
Respond with a compact JSON object: {"queryType": "...", "confidence": 0.0-1.0, "reasoning": "..."}.
Respond with JSON only, no prose.`

// Router composes the keyword classifier with an optional model fallback.
// A nil client disables the fallback entirely. The circuit breaker skips the
// model while the provider is failing; classification then degrades to the
// keyword result, which is never an error.
type Router struct {
	client  llm.LLMClient
	breaker *llm.CircuitBreaker
	logger  *zap.Logger
}

// NewRouter creates a classification router. client may be nil.
func NewRouter(client llm.LLMClient, logger *zap.Logger) *Router {
	return &Router{
		client:  client,
		breaker: llm.NewCircuitBreaker(llm.DefaultCircuitBreakerConfig()),
		logger:  logger.Named("classifier"),
	}
}

// Classify returns the query-type classification for one input. The keyword
// result wins outright when its confidence reaches the fallback threshold or
// no model is configured; otherwise both methods run and the higher
// confidence wins, keyword taking ties.
func (r *Router) Classify(ctx context.Context, input, industry, schemaDigest string) models.QueryTypeClassification {
	kw := ClassifyByKeywords(input, industry)
	if kw.Confidence >= fallbackThreshold || r.client == nil {
		return kw
	}

	modelResult := r.classifyByModel(ctx, input, schemaDigest)
	if modelResult.Confidence > kw.Confidence {
		return modelResult
	}
	return kw
}

// modelClassification is the JSON shape the model is asked to produce.
// Raw fields tolerate models that return numbers as strings and vice versa.
type modelClassification struct {
	QueryType  json.RawMessage `json:"queryType"`
	Confidence json.RawMessage `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

// classifyByModel asks the configured model for a classification. Every
// failure mode (breaker open, transport, malformed JSON, unknown type)
// degrades to unknown at low confidence; this path never returns an error
// to the caller.
func (r *Router) classifyByModel(ctx context.Context, input, schemaDigest string) models.QueryTypeClassification {
	failed := models.QueryTypeClassification{
		QueryType:  models.QueryTypeUnknown,
		Confidence: llmFailureConfidence,
		Method:     models.MethodModel,
	}

	if ok, err := r.breaker.Allow(); !ok {
		r.logger.Debug("model fallback skipped", zap.Error(err))
		return failed
	}

	prompt := "Question: " + input
	if schemaDigest != "" {
		digest := []rune(schemaDigest)
		if len(digest) > schemaDigestBudget {
			digest = digest[:schemaDigestBudget]
		}
		prompt += "\n\nAvailable data:\n" + string(digest)
	}

	raw, err := r.client.GenerateResponse(ctx, prompt, classifySystemPrompt, classifyTemperature)
	if err != nil {
		r.breaker.RecordFailure()
		r.logger.Warn("model classification failed", zap.Error(err))
		return failed
	}
	r.breaker.RecordSuccess()

	parsed, err := llm.ParseJSONResponse[modelClassification](raw)
	if err != nil {
		r.logger.Warn("model returned unparseable classification", zap.Error(err))
		return failed
	}

	qt := models.QueryType(jsonutil.FlexibleStringValue(parsed.QueryType))
	if !knownQueryType(qt) {
		r.logger.Warn("model returned unknown query type", zap.String("query_type", string(qt)))
		return failed
	}

	confidence, ok := jsonutil.FlexibleFloatValue(parsed.Confidence)
	if !ok || confidence < 0 {
		confidence = llmFailureConfidence
	}
	if confidence > 1 {
		confidence = 1
	}

	result := models.QueryTypeClassification{
		QueryType:  qt,
		Confidence: confidence,
		Method:     models.MethodModel,
	}
	if qt == models.QueryTypeTopN {
		result.TopN = extractTopN(strings.ToLower(input))
	}
	return result
}

func knownQueryType(qt models.QueryType) bool {
	if qt == models.QueryTypeUnknown {
		return true
	}
	for _, known := range queryTypeOrder {
		if qt == known {
			return true
		}
	}
	return false
}
