package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
)

// System names an external collaborator.
type System string

const (
	SystemSignature System = "signature"
	SystemERP       System = "erp"
	SystemDispatch  System = "dispatch"
	SystemRenderer  System = "renderer"
	SystemStorage   System = "storage"
)

// Kind classifies an integration failure.
type Kind string

const (
	KindUnavailable Kind = "unavailable"
	KindRejected    Kind = "rejected"
)

// maxBodyBytes caps the upstream body kept on an Error.
const maxBodyBytes = 4096

// Error is returned by every adapter call that did not succeed.
type Error struct {
	System     System
	Step       string
	Kind       Kind
	StatusCode int
	// Body is the raw upstream response, kept for operators. It is logged,
	// never returned to end users.
	Body string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.System, e.Step, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the shared taxonomy sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case shared.ErrIntegrationUnavailable:
		return e.Kind == KindUnavailable
	case shared.ErrIntegrationRejected:
		return e.Kind == KindRejected
	}
	return false
}

// Retryable reports whether the caller may retry the call.
func (e *Error) Retryable() bool {
	return e.Kind == KindUnavailable
}

// DomainError converts the failure into the client-facing form. The
// upstream body is deliberately left out.
func (e *Error) DomainError() *shared.DomainError {
	code := shared.CodeIntegrationRejected
	verb := "rejected the request"
	if e.Kind == KindUnavailable {
		code = shared.CodeIntegrationUnavailable
		verb = "is temporarily unavailable"
	}
	de := shared.NewDomainError(code, fmt.Sprintf("%s service %s at step %s", e.System, verb, e.Step))
	de.Details = map[string]any{"system": string(e.System), "step": e.Step, "retryable": e.Retryable()}
	return de
}

// Unavailable wraps a transport level failure.
func Unavailable(system System, step string, err error) *Error {
	return &Error{System: system, Step: step, Kind: KindUnavailable, Err: err}
}

// Rejected builds a business rejection that did not come from an HTTP status.
func Rejected(system System, step, reason string) *Error {
	return &Error{System: system, Step: step, Kind: KindRejected, Err: errors.New(reason)}
}

// FromStatus classifies a non-2xx HTTP response.
func FromStatus(system System, step string, statusCode int, body []byte) *Error {
	if len(body) > maxBodyBytes {
		body = body[:maxBodyBytes]
	}
	kind := KindRejected
	if statusCode >= 500 || statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests {
		kind = KindUnavailable
	}
	return &Error{
		System:     system,
		Step:       step,
		Kind:       kind,
		StatusCode: statusCode,
		Body:       string(body),
		Err:        fmt.Errorf("HTTP %d", statusCode),
	}
}

// FromTransport classifies an error from the HTTP client or a broker call.
// Timeouts, cancellations and connection failures all count as Unavailable.
func FromTransport(system System, step string, err error) *Error {
	var ie *Error
	if errors.As(err, &ie) {
		return ie
	}
	return Unavailable(system, step, err)
}

// IsTimeout reports whether err came from an expired deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// IsRetryable reports whether err is an Unavailable integration failure.
func IsRetryable(err error) bool {
	var ie *Error
	return errors.As(err, &ie) && ie.Retryable()
}
