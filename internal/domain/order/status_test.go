package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  Status
		isValid bool
	}{
		{StatusCart, true},
		{StatusPendingDirectorSignature, true},
		{StatusPaymentReview, true},
		{StatusCompleted, true},
		{Status("cancelled"), false},
		{Status(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestNextStatus_TransitionTable(t *testing.T) {
	tests := []struct {
		from Status
		ev   Event
		to   Status
	}{
		{StatusCart, EventCheckout, StatusPendingDirectorSignature},
		{StatusPendingDirectorSignature, EventInternalSign, StatusPendingSignature},
		{StatusPendingSignature, EventSign, StatusPendingPayment},
		{StatusPendingPayment, EventReviewPayment, StatusPaymentReview},
		{StatusPendingPayment, EventPay, StatusSearchingDriver},
		{StatusPaymentReview, EventPay, StatusSearchingDriver},
		{StatusSearchingDriver, EventAssignDriver, StatusDriverAssigned},
		{StatusDriverAssigned, EventDriverArrived, StatusAtWarehouse},
		{StatusAtWarehouse, EventStartTrip, StatusInTransit},
		{StatusInTransit, EventDeliver, StatusDelivered},
		{StatusDelivered, EventGenerateDocuments, StatusDocumentsReady},
		{StatusDocumentsReady, EventComplete, StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.ev), func(t *testing.T) {
			next, err := NextStatus(tt.from, tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.to, next)
		})
	}
}

func TestNextStatus_RejectsUnlistedPairs(t *testing.T) {
	legal := 0
	for _, from := range lifecycle {
		for _, ev := range allEvents {
			next, err := NextStatus(from, ev)
			if CanFire(from, ev) {
				legal++
				assert.NoError(t, err)
				continue
			}
			require.Error(t, err, "%s/%s", from, ev)
			assert.Equal(t, from, next)
			assertInvalidTransition(t, err, from, ev)
		}
	}
	assert.Equal(t, len(transitions), legal)
}

func TestAllowedSources(t *testing.T) {
	assert.Equal(t, []Status{StatusPendingPayment, StatusPaymentReview}, AllowedSources(EventPay))
	assert.Equal(t, []Status{StatusCart}, AllowedSources(EventCheckout))
	assert.Empty(t, AllowedSources(Event("cancel")))
}

func TestStatus_AvailableEvents(t *testing.T) {
	assert.Equal(t, []Event{EventReviewPayment, EventPay}, StatusPendingPayment.AvailableEvents())
	assert.Empty(t, StatusCompleted.AvailableEvents())
	assert.True(t, StatusCompleted.IsTerminal())
}

func TestStatus_IsAtLeast(t *testing.T) {
	assert.True(t, StatusInTransit.IsAtLeast(StatusDriverAssigned))
	assert.True(t, StatusDriverAssigned.IsAtLeast(StatusDriverAssigned))
	assert.False(t, StatusSearchingDriver.IsAtLeast(StatusDriverAssigned))
	assert.False(t, Status("bogus").IsAtLeast(StatusCart))
}

func TestNewInvalidTransitionError_Details(t *testing.T) {
	err := NewInvalidTransitionError(StatusSearchingDriver, EventStartTrip)

	assert.Contains(t, err.Error(), "start_trip")
	assert.Contains(t, err.Error(), "searching_driver")
	assert.Equal(t, "searching_driver", err.Details["current_state"])
	assert.Equal(t, "start_trip", err.Details["event"])
	assert.Equal(t, []string{"at_warehouse"}, err.Details["allowed_states"])
}
