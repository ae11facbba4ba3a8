package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorType classifies LLM transport failures.
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is a structured LLM error. Retryable is advisory for callers; the
// classifier never retries and instead degrades to its keyword result.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := []string{string(e.Type)}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the failure is transient.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

var statusCodePattern = regexp.MustCompile(`\b([45]\d\d)\b`)

// ClassifyError categorizes a provider error into a structured Error.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	lower := strings.ToLower(err.Error())

	statusCode := 0
	if m := statusCodePattern.FindStringSubmatch(err.Error()); m != nil {
		statusCode, _ = strconv.Atoi(m[1])
	}

	classified := &Error{
		Type:       ErrorTypeUnknown,
		Message:    "request failed",
		Cause:      err,
		StatusCode: statusCode,
	}

	switch {
	case statusCode == 401 || statusCode == 403 || strings.Contains(lower, "api key") || strings.Contains(lower, "unauthorized"):
		classified.Type = ErrorTypeAuth
		classified.Message = "authentication failed"
	case statusCode == 429 || strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests"):
		classified.Type = ErrorTypeRateLimit
		classified.Message = "rate limited"
		classified.Retryable = true
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		classified.Type = ErrorTypeTimeout
		classified.Message = "request timed out"
		classified.Retryable = true
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "connection reset") || strings.Contains(lower, "broken pipe"):
		classified.Type = ErrorTypeConnection
		classified.Message = "endpoint unreachable"
		classified.Retryable = true
	case statusCode >= 500:
		classified.Type = ErrorTypeServer
		classified.Message = "provider error"
		classified.Retryable = true
	}

	return classified
}
