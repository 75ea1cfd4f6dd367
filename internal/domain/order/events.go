package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
)

// AggregateTypeOrder is the aggregate type for order events
const AggregateTypeOrder = "Order"

const (
	EventTypeStatusChanged   = "OrderStatusChanged"
	EventTypePaymentVerified = "OrderPaymentVerified"
)

// StatusChangedEvent is raised after every successful transition.
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID   `json:"order_id"`
	Number   string      `json:"number"`
	From     Status      `json:"from"`
	To       Status      `json:"to"`
	Trigger  Event       `json:"trigger"`
	Driver   *DriverInfo `json:"driver,omitempty"`
	Position *Position   `json:"position,omitempty"`
}

func newStatusChangedEvent(o *Order, from, to Status, trigger Event) *StatusChangedEvent {
	e := &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStatusChanged, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Number:          o.number,
		From:            from,
		To:              to,
		Trigger:         trigger,
	}
	if o.driver != nil {
		d := *o.driver
		e.Driver = &d
	}
	if o.position != nil {
		p := *o.position
		e.Position = &p
	}
	return e
}

// PaymentVerifiedEvent is raised the first time the ERP confirms payment.
type PaymentVerifiedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID `json:"order_id"`
	Number     string    `json:"number"`
	VerifiedAt time.Time `json:"verified_at"`
}
