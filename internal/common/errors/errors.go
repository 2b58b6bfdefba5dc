// Package errors provides the standardized error taxonomy of the agent gateway.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Shape or range violation in a generated document or inbound request.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// Safety policy verdict (BLOCK/WARN), reported with guidance.
	ErrCodePolicyViolation ErrorCode = "POLICY_VIOLATION"
	// Cross-tenant access attempt.
	ErrCodeScopeViolation ErrorCode = "SCOPE_VIOLATION"
	// Unknown tool, collection or response type.
	ErrCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
	// Store or collaborator round-trip failure.
	ErrCodeExecutionFailure ErrorCode = "EXECUTION_FAILURE"
	// Declarative and executable schema sources disagree. Startup only.
	ErrCodeSchemaDrift ErrorCode = "SCHEMA_DRIFT"
	// Response generator failed or returned something that is not a document.
	ErrCodeGenerationFailed ErrorCode = "GENERATION_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured gateway error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
}

// Is matches another *StandardError by code so errors.Is works against the
// exported sentinels below.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation           = &StandardError{Code: ErrCodeValidation}
	ErrPolicyViolation      = &StandardError{Code: ErrCodePolicyViolation}
	ErrScopeViolation       = &StandardError{Code: ErrCodeScopeViolation}
	ErrUnsupportedOperation = &StandardError{Code: ErrCodeUnsupportedOperation}
	ErrExecutionFailure     = &StandardError{Code: ErrCodeExecutionFailure}
	ErrSchemaDrift          = &StandardError{Code: ErrCodeSchemaDrift}
	ErrGenerationFailed     = &StandardError{Code: ErrCodeGenerationFailed}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError reports a shape or range violation on field.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   fmt.Sprintf("invalid field %q", field),
		Details:   details,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewPolicyViolationError reports a blocking safety verdict.
func NewPolicyViolationError(policies []string, reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodePolicyViolation,
		Message:   "request violates safety policy",
		Details:   reason,
		Metadata:  map[string]interface{}{"policies": policies},
		Timestamp: time.Now().UTC(),
	}
}

// NewScopeViolationError reports an attempt to read data outside the caller's scope.
func NewScopeViolationError(collection, field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeScopeViolation,
		Message:   fmt.Sprintf("query on %s may only target the caller's own %s", collection, field),
		Details:   fmt.Sprintf("collection: %s, field: %s", collection, field),
		Metadata:  map[string]interface{}{"collection": collection, "field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnsupportedOperationError reports an unknown name together with the allowed set.
func NewUnsupportedOperationError(kind, name string, allowed []string) *StandardError {
	sorted := append([]string(nil), allowed...)
	sort.Strings(sorted)
	return &StandardError{
		Code:      ErrCodeUnsupportedOperation,
		Message:   fmt.Sprintf("unsupported %s %q; allowed: %s", kind, name, strings.Join(sorted, ", ")),
		Details:   fmt.Sprintf("%s: %s", kind, name),
		Metadata:  map[string]interface{}{"allowed": sorted},
		Timestamp: time.Now().UTC(),
	}
}

// NewExecutionFailureError reports a store round-trip failure. The filter is
// never part of the message.
func NewExecutionFailureError(collection, purpose string, err error) *StandardError {
	details := fmt.Sprintf("collection: %s, purpose: %s", collection, purpose)
	if err != nil {
		details += ", error: " + err.Error()
	}
	return &StandardError{
		Code:      ErrCodeExecutionFailure,
		Message:   fmt.Sprintf("query on %s failed", collection),
		Details:   details,
		Metadata:  map[string]interface{}{"collection": collection, "purpose": purpose},
		Timestamp: time.Now().UTC(),
	}
}

// NewCollaboratorFailureError reports a failed hand-off to an external service.
func NewCollaboratorFailureError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExecutionFailure,
		Message:   fmt.Sprintf("collaborator %q failed", service),
		Details:   err.Error(),
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaDriftError aggregates every mismatch into one error.
func NewSchemaDriftError(mismatches []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaDrift,
		Message:   fmt.Sprintf("declarative and executable schemas disagree (%d mismatches)", len(mismatches)),
		Details:   strings.Join(mismatches, "; "),
		Metadata:  map[string]interface{}{"mismatches": mismatches},
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationFailedError wraps a response generator failure.
func NewGenerationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationFailed,
		Message:   "response generation failed",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf extracts the ErrorCode from anywhere in err's chain.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "unexpected error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidation:
		return "VALIDATION"
	case ErrCodePolicyViolation:
		return "POLICY"
	case ErrCodeScopeViolation:
		return "SECURITY"
	case ErrCodeUnsupportedOperation:
		return "UNSUPPORTED"
	case ErrCodeExecutionFailure:
		return "EXECUTION"
	case ErrCodeSchemaDrift:
		return "STARTUP"
	case ErrCodeGenerationFailed:
		return "AI"
	default:
		return "OTHER"
	}
}

// IsSecurityRelevant reports whether the code must be logged as a security event.
func IsSecurityRelevant(code ErrorCode) bool {
	return code == ErrCodeScopeViolation
}

// HTTPStatus maps an error code to the status written by the API layer.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeUnsupportedOperation:
		return http.StatusUnprocessableEntity
	case ErrCodePolicyViolation, ErrCodeScopeViolation:
		return http.StatusForbidden
	case ErrCodeExecutionFailure, ErrCodeGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
