package types

import "fmt"

// Error code constants for agent-facing errors.
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInsufficientData    = "INSUFFICIENT_DATA"
	ErrCodePolicyDenied        = "POLICY_DENIED"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamError       = "UPSTREAM_ERROR"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// MCPError represents a structured error returned to AI agents.
type MCPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Tool    string `json:"tool"`
	Detail  string `json:"detail,omitempty"`

	cause error
}

func (e *MCPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", e.Code, e.Tool, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Tool, e.Message)
}

func (e *MCPError) Unwrap() error { return e.cause }

// WithCause records the underlying error so callers can still match it with errors.Is.
func (e *MCPError) WithCause(err error) *MCPError {
	e.cause = err
	return e
}
