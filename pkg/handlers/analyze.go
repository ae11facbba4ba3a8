package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/apperrors"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/audit"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/middleware"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/segmentation"
)

// QueryClassifier resolves a natural-language query to its query type.
type QueryClassifier interface {
	Classify(ctx context.Context, input, industry, schemaDigest string) models.QueryTypeClassification
}

// Segmenter runs the RFM segmentation pipeline for one table.
type Segmenter interface {
	Segment(ctx context.Context, table string, opts segmentation.Options) (*segmentation.Result, error)
}

// AnalyzeHandler serves the classification and segmentation API.
type AnalyzeHandler struct {
	classifier QueryClassifier
	segmenter  Segmenter
	auditor    *audit.SecurityAuditor
	logger     *zap.Logger
}

func NewAnalyzeHandler(classifier QueryClassifier, segmenter Segmenter, auditor *audit.SecurityAuditor, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		classifier: classifier,
		segmenter:  segmenter,
		auditor:    auditor,
		logger:     logger.Named("analyze"),
	}
}

// RegisterRoutes registers the analysis routes on the given mux.
func (h *AnalyzeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/classify", h.Classify)
	mux.HandleFunc("POST /api/segments", h.Segments)
}

// ClassifyRequest is the body of POST /api/classify.
type ClassifyRequest struct {
	Query        string `json:"query"`
	Industry     string `json:"industry,omitempty"`
	SchemaDigest string `json:"schema_digest,omitempty"`
}

// Classify handles POST /api/classify.
func (h *AnalyzeHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if req.Query == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_query", "query is required")
		return
	}

	result := h.classifier.Classify(r.Context(), req.Query, req.Industry, req.SchemaDigest)
	h.logger.Debug("classified query",
		zap.String("query_type", string(result.QueryType)),
		zap.Float64("confidence", result.Confidence),
		zap.String("method", string(result.Method)))

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("failed to write classify response", zap.Error(err))
	}
}

// SegmentsRequest is the body of POST /api/segments.
type SegmentsRequest struct {
	Table       string `json:"table"`
	NumClusters int    `json:"num_clusters,omitempty"`
	SampleSize  int    `json:"sample_size,omitempty"`
	ComputeMode string `json:"compute_mode,omitempty"`
}

// Segments handles POST /api/segments.
func (h *AnalyzeHandler) Segments(w http.ResponseWriter, r *http.Request) {
	var req SegmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if req.Table == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_table", "table is required")
		return
	}

	start := time.Now()
	result, err := h.segmenter.Segment(r.Context(), req.Table, segmentation.Options{
		NumClusters: req.NumClusters,
		SampleSize:  req.SampleSize,
		ComputeMode: segmentation.ComputeMode(req.ComputeMode),
	})
	if err != nil {
		status, code := segmentErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("segmentation failed", zap.String("table", req.Table), zap.Error(err))
		} else {
			h.logger.Warn("segmentation rejected", zap.String("table", req.Table), zap.Error(err))
		}
		_ = ErrorResponse(w, status, code, err.Error())
		return
	}

	h.auditor.LogQueryExecution(middleware.RequestIDFromContext(r.Context()), req.Table, audit.QueryExecutionDetails{
		QueryKind:  "rfm_segmentation",
		DurationMS: time.Since(start).Milliseconds(),
		RowCount:   result.ClusteredCount,
	})

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("failed to write segments response", zap.Error(err))
	}
}

// segmentErrorStatus maps pipeline errors to HTTP status and error codes.
func segmentErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidColumn):
		return http.StatusBadRequest, "invalid_identifier"
	case errors.Is(err, apperrors.ErrMissingRequiredColumns):
		return http.StatusUnprocessableEntity, "missing_required_columns"
	case errors.Is(err, apperrors.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "insufficient_data"
	case errors.Is(err, apperrors.ErrInsufficientCustomers):
		return http.StatusUnprocessableEntity, "insufficient_customers"
	case errors.Is(err, apperrors.ErrWorkerTimeout):
		return http.StatusGatewayTimeout, "worker_timeout"
	case errors.Is(err, apperrors.ErrWorkerError):
		return http.StatusBadGateway, "worker_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
