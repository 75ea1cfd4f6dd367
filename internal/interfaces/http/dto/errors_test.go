package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInvalidTransition, http.StatusConflict},
		{ErrCodePreconditionFailed, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeIntegrationUnavailable, http.StatusBadGateway},
		{ErrCodeIntegrationRejected, http.StatusUnprocessableEntity},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflictingUpdate, http.StatusConflict},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeInternal, http.StatusInternalServerError},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	requestID := "req-123-456"
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Order not found", requestID)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Order not found", resp.Error.Message)
	assert.Equal(t, requestID, resp.Error.RequestID)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewDetailedErrorResponse(t *testing.T) {
	resp := NewDetailedErrorResponse(ErrCodeInvalidTransition, "Transition not allowed", "req-1", map[string]any{
		"current_state": "cart",
		"event":         "pay",
	})

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	errBody := decoded["error"].(map[string]any)
	assert.Equal(t, "INVALID_TRANSITION", errBody["code"])
	assert.Equal(t, "req-1", errBody["request_id"])
	assert.Equal(t, "cart", errBody["details"].(map[string]any)["current_state"])

	plain := NewDetailedErrorResponse(ErrCodeNotFound, "missing", "", nil)
	assert.Nil(t, plain.Error.Details)
}

func TestNewValidationErrorResponse(t *testing.T) {
	fields := []ValidationDetail{
		{Field: "quantity", Message: "Must be greater than zero"},
		{Field: "product_id", Message: "This field is required"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", fields)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	require.Len(t, resp.Error.Fields, 2)
	assert.Equal(t, "quantity", resp.Error.Fields[0].Field)
}

func TestErrorResponseTimestamp(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponse(ErrCodeInternal, "Server error")
	after := time.Now()

	assert.False(t, resp.Error.Timestamp.Before(before.UTC().Truncate(time.Second)))
	assert.False(t, resp.Error.Timestamp.After(after))
}

func TestNewSuccessResponseWithMetaPagination(t *testing.T) {
	tests := []struct {
		total         int64
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{100, 10, 10, 10},
		{101, 10, 11, 10},
		{0, 10, 0, 10},
		{9, 10, 1, 10},
		{100, 0, 5, 20},
		{100, -1, 5, 20},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, 1, tt.pageSize)
		assert.True(t, resp.Success)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
	}
}

func TestListRequestFilter(t *testing.T) {
	f := ListRequest{Page: 3, PageSize: 50}.Filter()
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 50, f.PageSize)
	assert.Equal(t, "created_at", f.OrderBy)
	assert.Equal(t, "desc", f.OrderDir)

	f = ListRequest{OrderDir: "asc"}.Filter()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 20, f.PageSize)
	assert.Equal(t, "asc", f.OrderDir)
}
