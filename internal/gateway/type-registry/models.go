package typeregistry

import (
	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/validation"
	"shopping-agent-gateway/internal/models"
)

// Result is the outcome of classifying a response document.
type Result struct {
	Valid    bool
	Kind     models.ResponseType
	Code     apperrors.ErrorCode
	Field    string
	Error    string
	Errors   []validation.ValidationError
	Response models.AgentResponse
}

// ToolResult is the outcome of classifying a tool call document.
type ToolResult struct {
	Valid  bool
	Code   apperrors.ErrorCode
	Field  string
	Error  string
	Errors []validation.ValidationError
	Tool   *models.ToolCall
}

// Err converts a failed result into a StandardError.
func (r *Result) Err() error {
	if r.Valid {
		return nil
	}
	return toError(r.Code, r.Field, r.Error)
}

// Err converts a failed result into a StandardError.
func (r *ToolResult) Err() error {
	if r.Valid {
		return nil
	}
	return toError(r.Code, r.Field, r.Error)
}

func toError(code apperrors.ErrorCode, field, message string) error {
	if code == apperrors.ErrCodeUnsupportedOperation {
		return &apperrors.StandardError{Code: code, Message: message, Details: field}
	}
	return apperrors.NewValidationError(field, message)
}

// Contract is the executable side of the schema consistency check. Every value
// is derived from the tables above, never restated.
type Contract struct {
	Tools                   []string
	ToolEnvelopeRequired    []string
	ToolPayloadRequired     map[string][]string
	ResponseRequired        map[string][]string
	AddToCartQuantityMax    *float64
	QueryLimitMax           *float64
	ToolCallRequiresSummary bool
	QuestionsMaxItems       *int
}
