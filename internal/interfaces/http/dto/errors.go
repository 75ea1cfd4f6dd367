package dto

import (
	"net/http"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
)

// Domain error codes come from the shared taxonomy so that a DomainError
// code can be returned to clients as is.
const (
	ErrCodeInvalidTransition      = shared.CodeInvalidTransition
	ErrCodePreconditionFailed     = shared.CodePreconditionFailed
	ErrCodeValidation             = shared.CodeValidationFailed
	ErrCodeIntegrationUnavailable = shared.CodeIntegrationUnavailable
	ErrCodeIntegrationRejected    = shared.CodeIntegrationRejected
	ErrCodeNotFound               = shared.CodeNotFound
	ErrCodeConflictingUpdate      = shared.CodeConflictingUpdate
)

// Transport level error codes
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeInternal        = "INTERNAL"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInvalidTransition:      http.StatusConflict,
	ErrCodePreconditionFailed:     http.StatusBadRequest,
	ErrCodeValidation:             http.StatusBadRequest,
	ErrCodeIntegrationUnavailable: http.StatusBadGateway,
	ErrCodeIntegrationRejected:    http.StatusUnprocessableEntity,
	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeConflictingUpdate:      http.StatusConflict,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
