package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// State is the flat, persistable form of an Order. Repositories convert to
// and from it; nothing else should build an Order from a State.
type State struct {
	ID                uuid.UUID
	Number            string
	UserID            uuid.UUID
	TrackingToken     string
	Status            Status
	TotalAmount       decimal.Decimal
	Items             []OrderItem
	Delivery          DeliveryInfo
	RequisiteID       *uuid.UUID
	Billing           *BillingSnapshot
	InternalSignedAt  *time.Time
	Driver            *DriverInfo
	DriverAssignedAt  *time.Time
	Position          *Position
	Signature         SignatureProgress
	PaymentVerified   bool
	PaymentVerifiedAt *time.Time
	InvoiceRef        string
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// State exports the order for persistence.
func (o *Order) State() State {
	return State{
		ID:                o.ID,
		Number:            o.number,
		UserID:            o.userID,
		TrackingToken:     o.trackingToken,
		Status:            o.status,
		TotalAmount:       o.totalAmount,
		Items:             o.Items(),
		Delivery:          o.delivery,
		RequisiteID:       o.requisiteID,
		Billing:           o.Billing(),
		InternalSignedAt:  o.internalSignedAt,
		Driver:            o.Driver(),
		DriverAssignedAt:  o.driverAssignedAt,
		Position:          o.Position(),
		Signature:         o.signature,
		PaymentVerified:   o.paymentVerified,
		PaymentVerifiedAt: o.paymentVerifiedAt,
		InvoiceRef:        o.invoiceRef,
		Version:           o.Version,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

// Restore rebuilds an order loaded from storage. The stored total is
// replaced by the value computed from the items.
func Restore(s State) *Order {
	items := make([]OrderItem, len(s.Items))
	copy(items, s.Items)
	o := &Order{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: s.ID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt},
			Version:    s.Version,
		},
		number:            s.Number,
		userID:            s.UserID,
		trackingToken:     s.TrackingToken,
		status:            s.Status,
		items:             items,
		delivery:          s.Delivery,
		requisiteID:       s.RequisiteID,
		billing:           s.Billing,
		internalSignedAt:  s.InternalSignedAt,
		driver:            s.Driver,
		driverAssignedAt:  s.DriverAssignedAt,
		position:          s.Position,
		signature:         s.Signature,
		paymentVerified:   s.PaymentVerified,
		paymentVerifiedAt: s.PaymentVerifiedAt,
		invoiceRef:        s.InvoiceRef,
	}
	o.totalAmount = CalculateTotal(items)
	return o
}
