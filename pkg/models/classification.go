package models

// QueryType is the closed set of analytic intents the router recognizes.
type QueryType string

const (
	QueryTypeKPISingle    QueryType = "kpi_single"
	QueryTypeKPIGrouped   QueryType = "kpi_grouped"
	QueryTypeTrendTime    QueryType = "trend_time"
	QueryTypeDistribution QueryType = "distribution"
	QueryTypeTopN         QueryType = "topn"
	QueryTypeComparison   QueryType = "comparison"
	QueryTypeUnknown      QueryType = "unknown"
)

// ClassificationMethod records which classifier produced a result.
type ClassificationMethod string

const (
	MethodKeyword ClassificationMethod = "keyword"
	MethodModel   ClassificationMethod = "model"
)

// QueryTypeClassification is the immutable result of classifying one
// natural-language query.
type QueryTypeClassification struct {
	QueryType       QueryType            `json:"query_type"`
	Confidence      float64              `json:"confidence"`
	MatchedKeywords []string             `json:"matched_keywords,omitempty"`
	Method          ClassificationMethod `json:"method"`
	TopN            int                  `json:"top_n,omitempty"`
}
