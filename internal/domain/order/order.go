package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Order is the aggregate root for a purchase from cart to completion.
//
// Fields are unexported: status, totals and driver data change only through
// the methods below, each of which validates the transition table first and
// leaves the order untouched on error.
type Order struct {
	shared.BaseAggregateRoot
	number            string
	userID            uuid.UUID
	trackingToken     string
	status            Status
	totalAmount       decimal.Decimal
	items             []OrderItem
	delivery          DeliveryInfo
	requisiteID       *uuid.UUID
	billing           *BillingSnapshot
	internalSignedAt  *time.Time
	driver            *DriverInfo
	driverAssignedAt  *time.Time
	position          *Position
	signature         SignatureProgress
	paymentVerified   bool
	paymentVerifiedAt *time.Time
	invoiceRef        string
}

// NewOrder creates an empty cart for the given user.
func NewOrder(userID uuid.UUID) (*Order, error) {
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("user id is required")
	}
	token, err := NewTrackingToken()
	if err != nil {
		return nil, err
	}
	root := shared.NewBaseAggregateRoot()
	return &Order{
		BaseAggregateRoot: root,
		number:            newOrderNumber(root.ID, root.CreatedAt),
		userID:            userID,
		trackingToken:     token,
		status:            StatusCart,
		totalAmount:       decimal.Zero,
		items:             make([]OrderItem, 0),
	}, nil
}

func (o *Order) Number() string { return o.number }
func (o *Order) UserID() uuid.UUID { return o.userID }
func (o *Order) TrackingToken() string { return o.trackingToken }
func (o *Order) Status() Status { return o.status }
func (o *Order) TotalAmount() decimal.Decimal { return o.totalAmount }
func (o *Order) Delivery() DeliveryInfo { return o.delivery }
func (o *Order) RequisiteID() *uuid.UUID { return o.requisiteID }
func (o *Order) InternalSignedAt() *time.Time { return o.internalSignedAt }
func (o *Order) Signature() SignatureProgress { return o.signature }
func (o *Order) PaymentVerified() bool { return o.paymentVerified }
func (o *Order) PaymentVerifiedAt() *time.Time { return o.paymentVerifiedAt }
func (o *Order) InvoiceRef() string { return o.invoiceRef }
func (o *Order) DriverAssignedAt() *time.Time { return o.driverAssignedAt }
func (o *Order) IsOwnedBy(userID uuid.UUID) bool { return o.userID == userID }

// Items returns a copy of the line items.
func (o *Order) Items() []OrderItem {
	out := make([]OrderItem, len(o.items))
	copy(out, o.items)
	return out
}

// Billing returns a copy of the billing snapshot, or nil before checkout.
func (o *Order) Billing() *BillingSnapshot {
	if o.billing == nil {
		return nil
	}
	b := *o.billing
	return &b
}

// Driver returns a copy of the assigned driver, or nil.
func (o *Order) Driver() *DriverInfo {
	if o.driver == nil {
		return nil
	}
	d := *o.driver
	return &d
}

// Position returns the last reported driver position, or nil.
func (o *Order) Position() *Position {
	if o.position == nil {
		return nil
	}
	p := *o.position
	return &p
}

// ============================================================================
// Cart
// ============================================================================

// AddItem adds qty of a product. Adding a product already in the cart
// increases its quantity and keeps the original price snapshot.
func (o *Order) AddItem(p ProductSnapshot, qty decimal.Decimal) (*OrderItem, error) {
	if o.status != StatusCart {
		return nil, ErrCartLocked
	}
	if !qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if p.ID == uuid.Nil {
		return nil, shared.NewValidationError("product id is required")
	}
	if p.Price.IsNegative() {
		return nil, shared.NewValidationError("product price cannot be negative")
	}

	for i := range o.items {
		if o.items[i].ProductID == p.ID {
			o.items[i].Quantity = o.items[i].Quantity.Add(qty)
			o.items[i].UpdatedAt = time.Now()
			o.items[i].refreshAmount()
			o.RecalculateTotal()
			item := o.items[i]
			return &item, nil
		}
	}

	item := newOrderItem(p, qty)
	o.items = append(o.items, item)
	o.RecalculateTotal()
	return &item, nil
}

// UpdateItemQuantity sets the quantity of an existing item.
func (o *Order) UpdateItemQuantity(itemID uuid.UUID, qty decimal.Decimal) error {
	if o.status != StatusCart {
		return ErrCartLocked
	}
	if !qty.IsPositive() {
		return ErrInvalidQuantity
	}
	for i := range o.items {
		if o.items[i].ID == itemID {
			o.items[i].Quantity = qty
			o.items[i].UpdatedAt = time.Now()
			o.items[i].refreshAmount()
			o.RecalculateTotal()
			return nil
		}
	}
	return ErrItemNotFound
}

// RemoveItem deletes an item from the cart.
func (o *Order) RemoveItem(itemID uuid.UUID) error {
	if o.status != StatusCart {
		return ErrCartLocked
	}
	for i := range o.items {
		if o.items[i].ID == itemID {
			o.items = append(o.items[:i], o.items[i+1:]...)
			o.RecalculateTotal()
			return nil
		}
	}
	return ErrItemNotFound
}

// RecalculateTotal recomputes total_amount from the items. Every item
// mutation calls it before returning.
func (o *Order) RecalculateTotal() {
	o.totalAmount = CalculateTotal(o.items)
	o.Touch()
}

// ============================================================================
// Transitions
// ============================================================================

// fire applies ev. Callers must finish all validation before calling it so
// that a rejected event mutates nothing.
func (o *Order) fire(ev Event) error {
	next, err := NextStatus(o.status, ev)
	if err != nil {
		return err
	}
	prev := o.status
	o.status = next
	o.Touch()
	o.AddDomainEvent(newStatusChangedEvent(o, prev, next, ev))
	return nil
}

// guard returns the transition error for ev without mutating anything.
func (o *Order) guard(ev Event) error {
	_, err := NextStatus(o.status, ev)
	return err
}

// Checkout moves a non-empty cart to director signature, capturing the
// delivery destination and the billing identity.
func (o *Order) Checkout(delivery DeliveryInfo, requisiteID uuid.UUID, billing BillingSnapshot) error {
	if err := o.guard(EventCheckout); err != nil {
		return err
	}
	if len(o.items) == 0 {
		return ErrEmptyCart
	}
	if strings.TrimSpace(delivery.Address) == "" || strings.TrimSpace(delivery.City) == "" {
		return ErrMissingDelivery
	}
	if requisiteID == uuid.Nil || strings.TrimSpace(billing.CompanyName) == "" {
		return ErrMissingBilling
	}

	o.RecalculateTotal()
	o.delivery = delivery
	id := requisiteID
	o.requisiteID = &id
	o.billing = &billing
	return o.fire(EventCheckout)
}

// SignInternally records the company director's signature.
func (o *Order) SignInternally(at time.Time) error {
	if err := o.guard(EventInternalSign); err != nil {
		return err
	}
	signedAt := at
	o.internalSignedAt = &signedAt
	return o.fire(EventInternalSign)
}

// CanRequestSignature checks that the contract may be sent for counterparty
// signature.
func (o *Order) CanRequestSignature() error {
	if err := o.guard(EventSign); err != nil {
		return err
	}
	if o.billing == nil {
		return ErrMissingBilling
	}
	return nil
}

// RecordBlobUploaded stores the provider blob id of the contract file.
func (o *Order) RecordBlobUploaded(blobID string, at time.Time) error {
	if err := o.CanRequestSignature(); err != nil {
		return err
	}
	o.signature.BlobID = blobID
	o.advanceHandshake(StepBlobUploaded, at)
	return nil
}

// RecordDocumentCreated stores the provider document id.
func (o *Order) RecordDocumentCreated(documentID string, at time.Time) error {
	if err := o.CanRequestSignature(); err != nil {
		return err
	}
	o.signature.DocumentID = documentID
	o.advanceHandshake(StepDocumentCreated, at)
	return nil
}

// RecordRouteCreated marks the counterparty route as created.
func (o *Order) RecordRouteCreated(at time.Time) error {
	if err := o.CanRequestSignature(); err != nil {
		return err
	}
	o.advanceHandshake(StepRouteCreated, at)
	return nil
}

// RecordTicketIssued stores the idempotency ticket for the next signature
// submission. A newer ticket replaces any earlier one.
func (o *Order) RecordTicketIssued(downloadLink, ticket string, at time.Time) error {
	if err := o.CanRequestSignature(); err != nil {
		return err
	}
	if ticket == "" {
		return ErrMissingTicket
	}
	o.signature.DownloadLink = downloadLink
	o.signature.Ticket = ticket
	o.signature.Status = SignatureAwaitingClient
	o.advanceHandshake(StepTicketIssued, at)
	return nil
}

func (o *Order) advanceHandshake(step HandshakeStep, at time.Time) {
	if !o.signature.Step.Reached(step) {
		o.signature.Step = step
	}
	ts := at
	o.signature.UpdatedAt = &ts
	o.Touch()
}

// ValidateSignatureSubmission checks a client signature submission against
// the recorded handshake. It never touches the network.
func (o *Order) ValidateSignatureSubmission(documentID, ticket string, signature []byte) error {
	if err := o.guard(EventSign); err != nil {
		return err
	}
	if ticket == "" {
		return ErrMissingTicket
	}
	if len(signature) == 0 {
		return ErrEmptySignature
	}
	if !o.signature.Step.Reached(StepTicketIssued) {
		return ErrSignatureNotStarted
	}
	if documentID != o.signature.DocumentID {
		return ErrDocumentMismatch
	}
	if ticket != o.signature.Ticket {
		return ErrTicketMismatch
	}
	return nil
}

// CompleteSignature marks the contract as signed by the counterparty and
// fires sign.
func (o *Order) CompleteSignature(at time.Time) error {
	if err := o.guard(EventSign); err != nil {
		return err
	}
	o.signature.Status = SignatureSentToClient
	ts := at
	o.signature.UpdatedAt = &ts
	return o.fire(EventSign)
}

// ReviewPayment moves the order to payment_review after the client reports
// payment.
func (o *Order) ReviewPayment() error {
	return o.fire(EventReviewPayment)
}

// Pay releases the order for driver search.
func (o *Order) Pay() error {
	return o.fire(EventPay)
}

// AssignDriver writes the driver fields and fires assign_driver together.
func (o *Order) AssignDriver(info DriverInfo, at time.Time) error {
	if err := o.guard(EventAssignDriver); err != nil {
		return err
	}
	if err := info.Validate(); err != nil {
		return err
	}
	d := info
	o.driver = &d
	ts := at
	o.driverAssignedAt = &ts
	return o.fire(EventAssignDriver)
}

// MarkDriverArrived records the driver at the pickup warehouse.
func (o *Order) MarkDriverArrived(at time.Time) error {
	if err := o.guard(EventDriverArrived); err != nil {
		return err
	}
	if o.driver != nil && o.driver.ArrivalTime == nil {
		ts := at
		o.driver.ArrivalTime = &ts
	}
	return o.fire(EventDriverArrived)
}

// StartTrip marks the shipment as on the road.
func (o *Order) StartTrip() error {
	return o.fire(EventStartTrip)
}

// Deliver marks the shipment as handed over.
func (o *Order) Deliver() error {
	return o.fire(EventDeliver)
}

// AttachDocuments records the invoice artifact and fires generate_documents.
func (o *Order) AttachDocuments(invoiceRef string) error {
	if err := o.guard(EventGenerateDocuments); err != nil {
		return err
	}
	if strings.TrimSpace(invoiceRef) == "" {
		return ErrMissingInvoice
	}
	o.invoiceRef = invoiceRef
	return o.fire(EventGenerateDocuments)
}

// Complete closes the order.
func (o *Order) Complete() error {
	return o.fire(EventComplete)
}

// ============================================================================
// Out-of-band updates
// ============================================================================

// UpdatePosition stores the live driver position.
func (o *Order) UpdatePosition(p Position) error {
	switch o.status {
	case StatusDriverAssigned, StatusAtWarehouse, StatusInTransit:
	default:
		return ErrTrackingUnavailable
	}
	if err := p.Validate(); err != nil {
		return err
	}
	pos := p
	o.position = &pos
	o.Touch()
	return nil
}

// ConfirmPayment applies an external payment verdict. It reports whether the
// order changed: a repeated confirmation and any negative verdict are no-ops.
// Orders that have not reached pending_payment reject every verdict.
func (o *Order) ConfirmPayment(verified bool, at time.Time) (bool, error) {
	if !o.status.IsAtLeast(StatusPendingPayment) {
		return false, ErrPaymentNotDue
	}
	if !verified || o.paymentVerified {
		return false, nil
	}
	o.paymentVerified = true
	ts := at
	o.paymentVerifiedAt = &ts
	o.Touch()
	o.AddDomainEvent(&PaymentVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentVerified, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Number:          o.number,
		VerifiedAt:      at,
	})
	return true, nil
}
