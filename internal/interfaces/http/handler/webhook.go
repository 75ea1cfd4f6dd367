package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	orderapp "github.com/shadiyar7/repair-platform-sub000/internal/application/order"
)

// DeliveryIDHeader carries the sender's unique id of a webhook delivery.
// Redelivered callbacks repeat it.
const DeliveryIDHeader = "X-Delivery-ID"

// WebhookService applies inbound integration callbacks
type WebhookService interface {
	ConfirmPaymentExternally(ctx context.Context, deliveryID string, req orderapp.PaymentWebhookRequest) (*orderapp.WebhookResult, error)
	ConfirmSignatureExternally(ctx context.Context, deliveryID string, req orderapp.SignatureWebhookRequest) (*orderapp.WebhookResult, error)
}

// WebhookHandler handles callbacks from the ERP and the signature provider
type WebhookHandler struct {
	BaseHandler
	webhookService WebhookService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

// PaymentConfirmed godoc
// @ID           paymentWebhook
// @Summary      ERP payment verdict
// @Description  Marks the payment as verified. A negative verdict or a redelivery changes nothing and still answers 200.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Delivery-ID header string false "Delivery id used for deduplication"
// @Param        request body orderapp.PaymentWebhookRequest true "Payment verdict"
// @Success      200 {object} APIResponse[orderapp.WebhookResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /webhooks/payment [post]
func (h *WebhookHandler) PaymentConfirmed(c *gin.Context) {
	var req orderapp.PaymentWebhookRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.webhookService.ConfirmPaymentExternally(c.Request.Context(), deliveryID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// SignatureCompleted godoc
// @ID           signatureWebhook
// @Summary      Counterparty signed a document
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Delivery-ID header string false "Delivery id used for deduplication"
// @Param        request body orderapp.SignatureWebhookRequest true "Signed document"
// @Success      200 {object} APIResponse[orderapp.WebhookResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /webhooks/signature [post]
func (h *WebhookHandler) SignatureCompleted(c *gin.Context) {
	var req orderapp.SignatureWebhookRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.webhookService.ConfirmSignatureExternally(c.Request.Context(), deliveryID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

func deliveryID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(DeliveryIDHeader))
}
