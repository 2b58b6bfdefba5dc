package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	warns  []map[string]interface{}
	errors []map[string]interface{}
}

func (l *recordingLogger) Warn(_ string, fields map[string]interface{}) {
	l.warns = append(l.warns, fields)
}

func (l *recordingLogger) Error(_ string, fields map[string]interface{}) {
	l.errors = append(l.errors, fields)
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("query gate: %w", NewScopeViolationError("orders", "userId"))

	assert.Equal(t, ErrCodeScopeViolation, CodeOf(wrapped))
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("boom")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestStandardError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewValidationError("payload.quantity", "must be <= 100"))

	assert.True(t, stderrors.Is(err, ErrValidation))
	assert.False(t, stderrors.Is(err, ErrScopeViolation))
}

func TestNewUnsupportedOperationError_NamesAllowedSet(t *testing.T) {
	err := NewUnsupportedOperationError("tool", "deleteAccount", []string{"toggleWishlist", "addToCart"})

	assert.Contains(t, err.Message, "deleteAccount")
	assert.Contains(t, err.Message, "addToCart, toggleWishlist")
}

func TestNewExecutionFailureError_KeepsContextWithoutFilter(t *testing.T) {
	err := NewExecutionFailureError("orders", "recent orders", stderrors.New("connection reset"))

	assert.Contains(t, err.Details, "collection: orders")
	assert.Contains(t, err.Details, "purpose: recent orders")
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(err.Code))
}

func TestNewSchemaDriftError_AggregatesAll(t *testing.T) {
	err := NewSchemaDriftError([]string{"a differs", "b differs"})

	assert.Contains(t, err.Error(), "2 mismatches")
	assert.Contains(t, err.Details, "a differs; b differs")
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeValidation:           "VALIDATION",
		ErrCodeScopeViolation:       "SECURITY",
		ErrCodeUnsupportedOperation: "UNSUPPORTED",
		ErrCodeSchemaDrift:          "STARTUP",
		ErrorCode("SOMETHING_ELSE"): "OTHER",
	}
	for code, want := range tests {
		assert.Equal(t, want, GetErrorCategory(code), string(code))
	}
}

func TestErrorHandler_HandleHTTPError(t *testing.T) {
	t.Run("scope violation is logged as security warning", func(t *testing.T) {
		log := &recordingLogger{}
		h := NewErrorHandler(log)
		rec := httptest.NewRecorder()

		h.HandleHTTPError(rec, "req-1", NewScopeViolationError("orders", "sellerId"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		require.Len(t, log.warns, 1)
		assert.Equal(t, true, log.warns[0]["security"])
		assert.Empty(t, log.errors)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "SCOPE_VIOLATION", body["code"])
		assert.Equal(t, "req-1", body["requestId"])
	})

	t.Run("plain errors are internal and hide details", func(t *testing.T) {
		log := &recordingLogger{}
		h := NewErrorHandler(log)
		rec := httptest.NewRecorder()

		h.HandleHTTPError(rec, "req-2", stderrors.New("mongo: password=hunter2"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "hunter2")
		require.Len(t, log.errors, 1)
	})
}
