package order

import "slices"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusCart                     Status = "cart"
	StatusPendingDirectorSignature Status = "pending_director_signature"
	StatusPendingSignature         Status = "pending_signature"
	StatusPendingPayment           Status = "pending_payment"
	StatusPaymentReview            Status = "payment_review"
	StatusSearchingDriver          Status = "searching_driver"
	StatusDriverAssigned           Status = "driver_assigned"
	StatusAtWarehouse              Status = "at_warehouse"
	StatusInTransit                Status = "in_transit"
	StatusDelivered                Status = "delivered"
	StatusDocumentsReady           Status = "documents_ready"
	StatusCompleted                Status = "completed"
)

// lifecycle lists statuses in forward order. payment_review sits between
// pending_payment and searching_driver.
var lifecycle = []Status{
	StatusCart,
	StatusPendingDirectorSignature,
	StatusPendingSignature,
	StatusPendingPayment,
	StatusPaymentReview,
	StatusSearchingDriver,
	StatusDriverAssigned,
	StatusAtWarehouse,
	StatusInTransit,
	StatusDelivered,
	StatusDocumentsReady,
	StatusCompleted,
}

// IsValid checks if the status is a known lifecycle state
func (s Status) IsValid() bool {
	return slices.Contains(lifecycle, s)
}

// IsTerminal reports whether no event leaves this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// rank returns the position of s in the lifecycle, or -1 for unknown values.
func (s Status) rank() int {
	return slices.Index(lifecycle, s)
}

// IsAtLeast reports whether s is other or any status after it.
func (s Status) IsAtLeast(other Status) bool {
	r := s.rank()
	return r >= 0 && r >= other.rank()
}

// AvailableEvents returns the events that may be fired from s.
func (s Status) AvailableEvents() []Event {
	var events []Event
	for _, ev := range allEvents {
		if _, ok := transitions[transitionKey{from: s, event: ev}]; ok {
			events = append(events, ev)
		}
	}
	return events
}

// Event names a guarded status change.
type Event string

const (
	EventCheckout          Event = "checkout"
	EventInternalSign      Event = "internal_sign"
	EventSign              Event = "sign"
	EventReviewPayment     Event = "review_payment"
	EventPay               Event = "pay"
	EventAssignDriver      Event = "assign_driver"
	EventDriverArrived     Event = "driver_arrived"
	EventStartTrip         Event = "start_trip"
	EventDeliver           Event = "deliver"
	EventGenerateDocuments Event = "generate_documents"
	EventComplete          Event = "complete"
)

var allEvents = []Event{
	EventCheckout,
	EventInternalSign,
	EventSign,
	EventReviewPayment,
	EventPay,
	EventAssignDriver,
	EventDriverArrived,
	EventStartTrip,
	EventDeliver,
	EventGenerateDocuments,
	EventComplete,
}

// IsValid checks if the event is known
func (e Event) IsValid() bool {
	return slices.Contains(allEvents, e)
}

type transitionKey struct {
	from  Status
	event Event
}

// transitions is the complete table of legal status changes. Any
// (status, event) pair missing here is rejected.
var transitions = map[transitionKey]Status{
	{StatusCart, EventCheckout}:                         StatusPendingDirectorSignature,
	{StatusPendingDirectorSignature, EventInternalSign}: StatusPendingSignature,
	{StatusPendingSignature, EventSign}:                 StatusPendingPayment,
	{StatusPendingPayment, EventReviewPayment}:          StatusPaymentReview,
	{StatusPendingPayment, EventPay}:                    StatusSearchingDriver,
	{StatusPaymentReview, EventPay}:                     StatusSearchingDriver,
	{StatusSearchingDriver, EventAssignDriver}:          StatusDriverAssigned,
	{StatusDriverAssigned, EventDriverArrived}:          StatusAtWarehouse,
	{StatusAtWarehouse, EventStartTrip}:                 StatusInTransit,
	{StatusInTransit, EventDeliver}:                     StatusDelivered,
	{StatusDelivered, EventGenerateDocuments}:           StatusDocumentsReady,
	{StatusDocumentsReady, EventComplete}:               StatusCompleted,
}

// NextStatus looks up the status reached by firing ev from current.
func NextStatus(current Status, ev Event) (Status, error) {
	next, ok := transitions[transitionKey{from: current, event: ev}]
	if !ok {
		return current, NewInvalidTransitionError(current, ev)
	}
	return next, nil
}

// CanFire reports whether ev is legal from current.
func CanFire(current Status, ev Event) bool {
	_, ok := transitions[transitionKey{from: current, event: ev}]
	return ok
}

// AllowedSources returns the statuses from which ev may be fired, in
// lifecycle order.
func AllowedSources(ev Event) []Status {
	var sources []Status
	for _, s := range lifecycle {
		if _, ok := transitions[transitionKey{from: s, event: ev}]; ok {
			sources = append(sources, s)
		}
	}
	return sources
}
