// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorHandler turns gateway errors into HTTP responses with standardized logging.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

type errorBody struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
}

// HandleHTTPError normalizes err, logs it, and writes the JSON error body.
func (h *ErrorHandler) HandleHTTPError(w http.ResponseWriter, requestID string, err error) {
	stdErr := Normalize(err)
	h.logError(requestID, stdErr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(stdErr.Code))

	body := errorBody{
		Code:      stdErr.Code,
		Message:   stdErr.Message,
		RequestID: requestID,
	}
	// Internal details stay in the log.
	if stdErr.Code != ErrCodeInternal && stdErr.Code != ErrCodeExecutionFailure {
		body.Details = stdErr.Details
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (h *ErrorHandler) logError(requestID string, stdErr *StandardError) {
	fields := map[string]interface{}{
		"requestId":     requestID,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	if IsSecurityRelevant(stdErr.Code) {
		fields["security"] = true
		h.logger.Warn("request rejected", fields)
		return
	}
	h.logger.Error("request failed", fields)
}
