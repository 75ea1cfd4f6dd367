package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	orderapp "github.com/shadiyar7/repair-platform-sub000/internal/application/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) result(args mock.Arguments) (*orderapp.WebhookResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.WebhookResult), args.Error(1)
}

func (m *MockWebhookService) ConfirmPaymentExternally(ctx context.Context, deliveryID string, req orderapp.PaymentWebhookRequest) (*orderapp.WebhookResult, error) {
	return m.result(m.Called(ctx, deliveryID, req))
}

func (m *MockWebhookService) ConfirmSignatureExternally(ctx context.Context, deliveryID string, req orderapp.SignatureWebhookRequest) (*orderapp.WebhookResult, error) {
	return m.result(m.Called(ctx, deliveryID, req))
}

type MockTrackingService struct {
	mock.Mock
}

func (m *MockTrackingService) Track(ctx context.Context, token string) (*orderapp.TrackingResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.TrackingResponse), args.Error(1)
}

func webhookRequest(path, deliveryID, body string) *http.Request {
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if deliveryID != "" {
		req.Header.Set(DeliveryIDHeader, deliveryID)
	}
	return req
}

func TestWebhookHandler_PaymentConfirmed(t *testing.T) {
	orderID := uuid.New()
	svc := new(MockWebhookService)
	h := NewWebhookHandler(svc)
	engine := newTestEngine(nil, asCaller(uuid.New(), auth.RoleIntegration))
	engine.POST("/webhooks/payment", h.PaymentConfirmed)

	t.Run("applied", func(t *testing.T) {
		svc.On("ConfirmPaymentExternally", mock.Anything, "dlv-1", orderapp.PaymentWebhookRequest{OrderRef: "ORD-000001", Verified: true}).
			Return(&orderapp.WebhookResult{OrderID: orderID, Status: "searching_driver", Applied: true}, nil).Once()

		w := serveRequest(engine, webhookRequest("/webhooks/payment", " dlv-1 ", `{"order_id":"ORD-000001","payment_verified":true}`))

		require.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w).Data.(map[string]any)
		assert.Equal(t, true, data["applied"])
	})

	t.Run("redelivery answers 200 without applying", func(t *testing.T) {
		svc.On("ConfirmPaymentExternally", mock.Anything, "dlv-1", mock.Anything).
			Return(&orderapp.WebhookResult{OrderID: orderID, Status: "searching_driver", Duplicate: true}, nil).Once()

		w := serveRequest(engine, webhookRequest("/webhooks/payment", "dlv-1", `{"order_id":"ORD-000001","payment_verified":true}`))

		require.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w).Data.(map[string]any)
		assert.Equal(t, true, data["duplicate"])
		assert.Equal(t, false, data["applied"])
	})

	t.Run("missing order reference", func(t *testing.T) {
		w := serveRequest(engine, webhookRequest("/webhooks/payment", "", `{"payment_verified":true}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	svc.AssertExpectations(t)
}

func TestWebhookHandler_SignatureCompleted(t *testing.T) {
	svc := new(MockWebhookService)
	h := NewWebhookHandler(svc)
	engine := newTestEngine(nil, asCaller(uuid.New(), auth.RoleIntegration))
	engine.POST("/webhooks/signature", h.SignatureCompleted)

	svc.On("ConfirmSignatureExternally", mock.Anything, "", orderapp.SignatureWebhookRequest{DocumentID: "doc-9"}).
		Return(nil, order.NewInvalidTransitionError(order.StatusPendingDirectorSignature, order.EventSign))

	w := serveRequest(engine, webhookRequest("/webhooks/signature", "", `{"document_id":"doc-9"}`))

	assert.Equal(t, http.StatusConflict, w.Code)
	svc.AssertExpectations(t)
}

func TestTrackingHandler_Track(t *testing.T) {
	svc := new(MockTrackingService)
	h := NewTrackingHandler(svc)
	engine := newTestEngine(nil)
	engine.GET("/track/:token", h.Track)

	token := "q3V7m0x9Lr2kA8pT1sYw4nBd6fHj5cZe"
	svc.On("Track", mock.Anything, token).Return(&orderapp.TrackingResponse{
		Number:     "ORD-000001",
		Status:     "in_transit",
		City:       "Almaty",
		DriverName: "Arman",
		Position:   &orderapp.PositionResponse{Latitude: 43.2, Longitude: 76.9},
	}, nil)
	svc.On("Track", mock.Anything, strings.Repeat("z", 32)).Return(nil, order.ErrOrderNotFound)

	w := doJSON(engine, http.MethodGet, "/track/"+token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "phone")
	assert.NotContains(t, w.Body.String(), "tax_id")

	assert.Equal(t, http.StatusNotFound, doJSON(engine, http.MethodGet, "/track/"+strings.Repeat("z", 32), nil).Code)

	// Obviously malformed tokens are rejected without a lookup
	assert.Equal(t, http.StatusNotFound, doJSON(engine, http.MethodGet, "/track/short", nil).Code)
	svc.AssertNumberOfCalls(t, "Track", 2)
}
