package toolgateway

import (
	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/models"
)

// Result is the outcome of validating a proposed tool call. SanitizedTool is
// always a fresh copy and is set only when IsValid.
type Result struct {
	IsValid       bool             `json:"isValid"`
	Errors        []string         `json:"errors,omitempty"`
	Warnings      []string         `json:"warnings,omitempty"`
	SanitizedTool *models.ToolCall `json:"sanitizedTool,omitempty"`

	Code  apperrors.ErrorCode `json:"-"`
	Field string              `json:"-"`
}

// Err converts a rejection into a StandardError.
func (r *Result) Err() error {
	if r.IsValid {
		return nil
	}
	msg := ""
	if len(r.Errors) > 0 {
		msg = r.Errors[0]
	}
	switch r.Code {
	case apperrors.ErrCodeUnsupportedOperation, apperrors.ErrCodeScopeViolation:
		return &apperrors.StandardError{Code: r.Code, Message: msg, Details: r.Field}
	}
	return apperrors.NewValidationError(r.Field, msg)
}
