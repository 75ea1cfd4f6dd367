package shared

import "fmt"

// Error codes shared by every bounded context. The HTTP layer maps each code
// to a status in dto.ErrorCodeHTTPStatus.
const (
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodePreconditionFailed     = "PRECONDITION_FAILED"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeIntegrationUnavailable = "INTEGRATION_UNAVAILABLE"
	CodeIntegrationRejected    = "INTEGRATION_REJECTED"
	CodeNotFound               = "NOT_FOUND"
	CodeConflictingUpdate      = "CONFLICTING_UPDATE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrNotFound) holds for any not-found error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a not-found error naming the missing resource.
func NewNotFoundError(resource string, id any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %v not found", resource, id))
}

// NewPreconditionError creates a precondition failure.
func NewPreconditionError(message string) *DomainError {
	return NewDomainError(CodePreconditionFailed, message)
}

// NewValidationError creates an input validation failure.
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidationFailed, message)
}

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidTransition      = NewDomainError(CodeInvalidTransition, "Transition not allowed in current state")
	ErrPreconditionFailed     = NewDomainError(CodePreconditionFailed, "Operation precondition failed")
	ErrValidationFailed       = NewDomainError(CodeValidationFailed, "Invalid input provided")
	ErrIntegrationUnavailable = NewDomainError(CodeIntegrationUnavailable, "External system temporarily unavailable")
	ErrIntegrationRejected    = NewDomainError(CodeIntegrationRejected, "External system rejected the request")
	ErrConflictingUpdate      = NewDomainError(CodeConflictingUpdate, "Resource was modified by another process")
)
