package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmPaymentExternally_DoubleDelivery(t *testing.T) {
	f := newFixture(t)
	o := f.seedAt(uuid.New(), order.StatusPaymentReview)
	req := PaymentWebhookRequest{OrderRef: o.ID.String(), Verified: true}

	first, err := f.svc.ConfirmPaymentExternally(context.Background(), "", req)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.False(t, first.Duplicate)

	second, err := f.svc.ConfirmPaymentExternally(context.Background(), "", req)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.True(t, second.Duplicate)

	stored := f.orders.get(t, o.ID)
	assert.True(t, stored.PaymentVerified())
	require.NotNil(t, stored.PaymentVerifiedAt())
	assert.Equal(t, f.now, *stored.PaymentVerifiedAt())
	assert.Equal(t, order.StatusPaymentReview, stored.Status(), "the payment flag does not move the order")
	assert.Equal(t, 1, f.orders.saves)
}

func TestConfirmPaymentExternally_ByNumber(t *testing.T) {
	f := newFixture(t)
	o := f.seedAt(uuid.New(), order.StatusPaymentReview, func(st *order.State) {
		st.Number = "ORD-20250314-ABCDEF12"
	})

	result, err := f.svc.ConfirmPaymentExternally(context.Background(), "", PaymentWebhookRequest{OrderRef: " ORD-20250314-ABCDEF12 ", Verified: true})
	require.NoError(t, err)
	assert.Equal(t, o.ID, result.OrderID)
	assert.True(t, result.Applied)
}

func TestConfirmPaymentExternally_NegativeVerdictNeverReverts(t *testing.T) {
	f := newFixture(t)
	verifiedAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	o := f.seedAt(uuid.New(), order.StatusSearchingDriver, func(st *order.State) {
		st.PaymentVerified = true
		st.PaymentVerifiedAt = &verifiedAt
	})

	result, err := f.svc.ConfirmPaymentExternally(context.Background(), "", PaymentWebhookRequest{OrderRef: o.ID.String(), Verified: false})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.False(t, result.Duplicate)
	assert.True(t, f.orders.get(t, o.ID).PaymentVerified())
}

func TestConfirmPaymentExternally_UnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ConfirmPaymentExternally(context.Background(), "", PaymentWebhookRequest{OrderRef: uuid.NewString(), Verified: true})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.svc.ConfirmPaymentExternally(context.Background(), "", PaymentWebhookRequest{OrderRef: "  ", Verified: true})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestConfirmPaymentExternally_RejectedBeforePendingPayment(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	f := newFixture(t, func(c *Collaborators) { c.Deliveries = store })

	for _, status := range []order.Status{order.StatusCart, order.StatusPendingDirectorSignature, order.StatusPendingSignature} {
		t.Run(string(status), func(t *testing.T) {
			o := f.seedAt(uuid.New(), status)
			deliveryID := "dlv-early-" + string(status)

			result, err := f.svc.ConfirmPaymentExternally(context.Background(), deliveryID, PaymentWebhookRequest{OrderRef: o.ID.String(), Verified: true})

			assert.Nil(t, result)
			assert.ErrorIs(t, err, shared.ErrInvalidTransition)
			stored := f.orders.get(t, o.ID)
			assert.False(t, stored.PaymentVerified())
			assert.Nil(t, stored.PaymentVerifiedAt())
			assert.Equal(t, status, stored.Status())

			done, err := store.IsProcessed(context.Background(), deliveryKeyPrefix+deliveryID)
			require.NoError(t, err)
			assert.False(t, done, "a rejected delivery must stay redeliverable")
		})
	}
	assert.Zero(t, f.orders.saves)
}

func TestConfirmPaymentExternally_DeliveryDedup(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	f := newFixture(t, func(c *Collaborators) { c.Deliveries = store })
	o := f.seedAt(uuid.New(), order.StatusPaymentReview)
	req := PaymentWebhookRequest{OrderRef: o.ID.String(), Verified: true}

	first, err := f.svc.ConfirmPaymentExternally(context.Background(), "dlv-1", req)
	require.NoError(t, err)
	assert.True(t, first.Applied)

	again, err := f.svc.ConfirmPaymentExternally(context.Background(), "dlv-1", req)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, "payment_review", again.Status)
	assert.Equal(t, 1, f.orders.saves)

	done, err := store.IsProcessed(context.Background(), deliveryKeyPrefix+"dlv-1")
	require.NoError(t, err)
	assert.True(t, done)
}

// failingStore reports every lookup as failed
type failingStore struct{}

func (failingStore) MarkProcessed(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func (failingStore) IsProcessed(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingStore) Close() error { return nil }

func TestConfirmPaymentExternally_StoreFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, func(c *Collaborators) { c.Deliveries = failingStore{} })
	o := f.seedAt(uuid.New(), order.StatusPaymentReview)

	result, err := f.svc.ConfirmPaymentExternally(context.Background(), "dlv-1", PaymentWebhookRequest{OrderRef: o.ID.String(), Verified: true})
	require.NoError(t, err)
	assert.True(t, result.Applied)
}

func TestConfirmSignatureExternally(t *testing.T) {
	withDocument := func(st *order.State) {
		st.Signature = order.SignatureProgress{
			Status:     order.SignatureSentToClient,
			Step:       order.StepTicketIssued,
			DocumentID: "doc-7",
			Ticket:     "ticket-7",
		}
	}

	t.Run("fires sign", func(t *testing.T) {
		f := newFixture(t)
		o := f.seedAt(uuid.New(), order.StatusPendingSignature, withDocument)

		result, err := f.svc.ConfirmSignatureExternally(context.Background(), "", SignatureWebhookRequest{DocumentID: "doc-7"})
		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.Equal(t, "pending_payment", result.Status)
		assert.Equal(t, order.StatusPendingPayment, f.orders.get(t, o.ID).Status())

		changes := f.events.statusChanges()
		require.Len(t, changes, 1)
		assert.Equal(t, order.EventSign, changes[0].Trigger)
	})

	t.Run("already signed is a duplicate", func(t *testing.T) {
		f := newFixture(t)
		f.seedAt(uuid.New(), order.StatusSearchingDriver, withDocument)

		result, err := f.svc.ConfirmSignatureExternally(context.Background(), "", SignatureWebhookRequest{DocumentID: "doc-7"})
		require.NoError(t, err)
		assert.True(t, result.Duplicate)
		assert.False(t, result.Applied)
		assert.Equal(t, "searching_driver", result.Status)
		assert.Empty(t, f.events.statusChanges())
	})

	t.Run("too early is rejected", func(t *testing.T) {
		f := newFixture(t)
		o := f.seedAt(uuid.New(), order.StatusPendingDirectorSignature, withDocument)

		_, err := f.svc.ConfirmSignatureExternally(context.Background(), "", SignatureWebhookRequest{DocumentID: "doc-7"})
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
		assert.Equal(t, order.StatusPendingDirectorSignature, f.orders.get(t, o.ID).Status())
	})

	t.Run("unknown document", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.ConfirmSignatureExternally(context.Background(), "", SignatureWebhookRequest{DocumentID: "doc-404"})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestTrack(t *testing.T) {
	f := newFixture(t)
	o := f.seedAt(uuid.New(), order.StatusInTransit, func(st *order.State) {
		st.TrackingToken = "public-token"
		st.Driver = &order.DriverInfo{Name: "Driver One", Phone: "+77010000001", Plate: "111AAA02"}
		st.Position = &order.Position{Latitude: 43.2, Longitude: 76.9}
	})

	resp, err := f.svc.Track(context.Background(), "public-token")
	require.NoError(t, err)
	assert.Equal(t, o.Number(), resp.Number)
	assert.Equal(t, "in_transit", resp.Status)
	assert.Equal(t, "Driver One", resp.DriverName)
	assert.Equal(t, "111AAA02", resp.Plate)
	require.NotNil(t, resp.Position)
	assert.Equal(t, 76.9, resp.Position.Longitude)

	_, err = f.svc.Track(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.svc.Track(context.Background(), "nope")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
