// Package audit provides security audit logging for SIEM consumption.
// Events are emitted as structured JSON so they can be parsed and alerted on
// without scraping free-form log text.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityEventType categorizes security-relevant events for filtering.
type SecurityEventType string

const (
	// EventInjectionLiteral is logged when libinjection flags a filter or
	// metric literal. Escaping already neutralized the value, so this is a
	// signal, not a rejection.
	EventInjectionLiteral SecurityEventType = "sql_injection_literal"
	// EventIdentifierRejected is logged when a column or table name fails
	// identifier validation.
	EventIdentifierRejected SecurityEventType = "identifier_rejected"
	// EventQueryExecution is logged for executed generated queries. High
	// volume; filter by event type downstream.
	EventQueryExecution SecurityEventType = "query_execution"
)

// SecurityEvent is one auditable event with its context.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	RequestID uuid.UUID         `json:"request_id,omitempty"`
	Table     string            `json:"table,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails records one flagged literal.
type InjectionDetails struct {
	Column      string `json:"column"`
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"`
}

// IdentifierDetails records one rejected identifier.
type IdentifierDetails struct {
	Identifier string `json:"identifier"`
	Reason     string `json:"reason"`
}

// QueryExecutionDetails records one executed generated query.
type QueryExecutionDetails struct {
	QueryKind  string `json:"query_kind"`
	DurationMS int64  `json:"duration_ms"`
	RowCount   int    `json:"row_count"`
}

// SecurityAuditor logs security events under a dedicated logger namespace
// so SIEM pipelines can route on the logger name alone.
type SecurityAuditor struct {
	logger *zap.Logger
}

func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionLiteral records a libinjection hit in a compiled literal.
// Logged at WARN: the literal was escaped and the query is safe, but the
// input pattern is worth investigating.
func (a *SecurityAuditor) LogInjectionLiteral(requestID uuid.UUID, table string, details InjectionDetails) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventInjectionLiteral,
		RequestID: requestID,
		Table:     table,
		Details:   details,
		Severity:  "warning",
	}
	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("injection pattern in filter literal",
		zap.String("event_json", string(eventJSON)),
		zap.String("request_id", requestID.String()),
		zap.String("column", details.Column),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("severity", "warning"),
	)
}

// LogIdentifierRejected records a failed identifier validation. These are
// usually typos, occasionally probes.
func (a *SecurityAuditor) LogIdentifierRejected(requestID uuid.UUID, table string, details IdentifierDetails) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventIdentifierRejected,
		RequestID: requestID,
		Table:     table,
		Details:   details,
		Severity:  "warning",
	}
	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("identifier rejected",
		zap.String("event_json", string(eventJSON)),
		zap.String("request_id", requestID.String()),
		zap.String("identifier", details.Identifier),
		zap.String("severity", "warning"),
	)
}

// LogQueryExecution records one executed generated query at INFO.
func (a *SecurityAuditor) LogQueryExecution(requestID uuid.UUID, table string, details QueryExecutionDetails) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventQueryExecution,
		RequestID: requestID,
		Table:     table,
		Details:   details,
		Severity:  "info",
	}
	eventJSON, _ := json.Marshal(event)

	a.logger.Info("query executed",
		zap.String("event_json", string(eventJSON)),
		zap.String("request_id", requestID.String()),
		zap.String("query_kind", details.QueryKind),
		zap.Int64("duration_ms", details.DurationMS),
		zap.String("severity", "info"),
	)
}
