package order

import (
	"fmt"
	"strings"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
)

// NewInvalidTransitionError reports that ev cannot be fired from current.
// The details carry the current state, the event and the states it is
// allowed from.
func NewInvalidTransitionError(current Status, ev Event) *shared.DomainError {
	sources := AllowedSources(ev)
	allowed := make([]string, len(sources))
	for i, s := range sources {
		allowed[i] = s.String()
	}
	msg := fmt.Sprintf("cannot %s order in %s status", ev, current)
	if len(allowed) > 0 {
		msg += fmt.Sprintf(" (allowed from: %s)", strings.Join(allowed, ", "))
	}
	return &shared.DomainError{
		Code:    shared.CodeInvalidTransition,
		Message: msg,
		Details: map[string]any{
			"current_state":  current.String(),
			"event":          string(ev),
			"allowed_states": allowed,
		},
	}
}

var (
	ErrOrderNotFound = shared.NewDomainError(shared.CodeNotFound, "Order not found")
	ErrItemNotFound  = shared.NewDomainError(shared.CodeNotFound, "Order item not found")

	ErrCartLocked          = shared.NewPreconditionError("items can only be changed while the order is in the cart")
	ErrEmptyCart           = shared.NewPreconditionError("cannot check out an empty cart")
	ErrMissingBilling      = shared.NewPreconditionError("order has no billing identity")
	ErrMissingDelivery     = shared.NewPreconditionError("delivery address and city are required")
	ErrInvalidQuantity     = shared.NewValidationError("quantity must be greater than zero")
	ErrInvalidPosition     = shared.NewValidationError("latitude must be within [-90, 90] and longitude within [-180, 180]")
	ErrIncompleteDriver    = shared.NewValidationError("driver name, phone and plate are required")
	ErrMissingTicket       = shared.NewValidationError("idempotency ticket is required")
	ErrTicketMismatch      = shared.NewValidationError("idempotency ticket does not match the most recently issued ticket")
	ErrDocumentMismatch    = shared.NewValidationError("document id does not match the order's signature document")
	ErrEmptySignature      = shared.NewValidationError("signature is empty")
	ErrSignatureNotStarted = shared.NewPreconditionError("contract signature has not been requested")
	ErrTrackingUnavailable = shared.NewPreconditionError("live location is only accepted while a driver is on the order")
	ErrMissingInvoice      = shared.NewPreconditionError("invoice artifact reference is required")

	ErrCartExists    = shared.NewDomainError(shared.CodeConflictingUpdate, "user already has an open cart")
	ErrPaymentNotDue = shared.NewDomainError(shared.CodeInvalidTransition, "payment cannot be confirmed before the order reaches pending_payment")
)
