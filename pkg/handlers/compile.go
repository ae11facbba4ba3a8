package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/apperrors"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/audit"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/digest"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/middleware"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
	enginesql "github.com/cohortiq-inc/cohortiq-engine/pkg/sql"
)

// CompileHandler compiles skill configurations into SQL fragments and
// prompt digests.
type CompileHandler struct {
	auditor *audit.SecurityAuditor
	limits  digest.Limits
	logger  *zap.Logger
}

func NewCompileHandler(auditor *audit.SecurityAuditor, limits digest.Limits, logger *zap.Logger) *CompileHandler {
	return &CompileHandler{
		auditor: auditor,
		limits:  limits,
		logger:  logger.Named("compile"),
	}
}

// RegisterRoutes registers the compile route on the given mux.
func (h *CompileHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/compile", h.Compile)
}

// CompileResponse carries the compiled fragments for one skill config.
type CompileResponse struct {
	WhereClause string   `json:"where_clause"`
	Metrics     []string `json:"metrics"`
	Digest      string   `json:"digest"`
}

// Compile handles POST /api/compile. The body is a SkillConfig; the
// response holds the compiled WHERE clause, the metric select-list
// expressions, and the prompt digest. Filter literals are screened for
// injection patterns; hits are audited but do not fail the request, since
// escaping already neutralized them.
func (h *CompileHandler) Compile(w http.ResponseWriter, r *http.Request) {
	var cfg models.SkillConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	screened := make([]models.FilterExpr, 0, len(cfg.Filters))
	screened = append(screened, cfg.Filters...)
	for _, m := range cfg.Metrics {
		screened = append(screened, m.Where...)
	}
	for _, finding := range enginesql.ScreenFilters(screened) {
		h.auditor.LogInjectionLiteral(requestID, cfg.TableName, audit.InjectionDetails{
			Column:      finding.Column,
			Value:       finding.Value,
			Fingerprint: finding.Fingerprint,
		})
	}

	where, err := enginesql.CompileFilters(cfg.Filters)
	if err != nil {
		h.writeCompileError(w, requestID, cfg.TableName, err)
		return
	}

	metrics, err := enginesql.CompileMetrics(cfg.Metrics, h.limits.MaxMetrics)
	if err != nil {
		h.writeCompileError(w, requestID, cfg.TableName, err)
		return
	}

	resp := CompileResponse{
		WhereClause: where,
		Metrics:     metrics,
		Digest:      digest.Build(cfg, h.limits),
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("failed to write compile response", zap.Error(err))
	}
}

func (h *CompileHandler) writeCompileError(w http.ResponseWriter, requestID uuid.UUID, table string, err error) {
	status, code := compileErrorStatus(err)
	if errors.Is(err, apperrors.ErrInvalidColumn) {
		h.auditor.LogIdentifierRejected(requestID, table, audit.IdentifierDetails{
			Identifier: err.Error(),
			Reason:     "failed identifier validation",
		})
	}
	h.logger.Warn("compile rejected", zap.String("table", table), zap.Error(err))
	_ = ErrorResponse(w, status, code, err.Error())
}

func compileErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidColumn):
		return http.StatusBadRequest, "invalid_identifier"
	case errors.Is(err, apperrors.ErrTypeMismatch):
		return http.StatusUnprocessableEntity, "type_mismatch"
	case errors.Is(err, apperrors.ErrUnsupportedOperator):
		return http.StatusUnprocessableEntity, "unsupported_operator"
	case errors.Is(err, apperrors.ErrMissingColumn):
		return http.StatusUnprocessableEntity, "missing_column"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
