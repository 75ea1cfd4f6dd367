package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shopspring/decimal"
)

// ==================== Cart DTOs ====================

// AddToCartRequest adds a catalog product to the caller's cart
type AddToCartRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
}

// UpdateItemQuantityRequest sets the quantity of a cart line
type UpdateItemQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
}

// ==================== Workflow DTOs ====================

// CheckoutRequest binds a billing identity and delivery destination
type CheckoutRequest struct {
	RequisiteID uuid.UUID `json:"requisite_id" binding:"required"`
	Address     string    `json:"address" binding:"required,min=1,max=500"`
	City        string    `json:"city" binding:"required,min=1,max=100"`
	Notes       string    `json:"notes" binding:"max=1000"`
}

// SubmitSignatureRequest carries a signature made by the client's local
// signing tool. Signature is the base64 encoded CMS blob.
type SubmitSignatureRequest struct {
	DocumentID        string `json:"document_id" binding:"required"`
	IdempotencyTicket string `json:"idempotency_ticket" binding:"required"`
	Signature         []byte `json:"signature" binding:"required"`
}

// AssignDriverRequest names the driver and vehicle
type AssignDriverRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=200"`
	Phone string `json:"phone" binding:"required,min=1,max=50"`
	Plate string `json:"plate" binding:"required,min=1,max=20"`
}

// LocationRequest is a live driver position
type LocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

// PaymentWebhookRequest is the ERP payment verdict. OrderRef is the order
// number known to the ERP, or the order id.
type PaymentWebhookRequest struct {
	OrderRef string `json:"order_id" binding:"required"`
	Verified bool   `json:"payment_verified"`
}

// SignatureWebhookRequest reports that the counterparty signed a document
type SignatureWebhookRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
}

// ==================== Responses ====================

// OrderItemResponse is one order line
type OrderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// DriverResponse is the assigned driver
type DriverResponse struct {
	Name        string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	Plate       string     `json:"plate"`
	ArrivalTime *time.Time `json:"arrival_time,omitempty"`
}

// PositionResponse is the last reported driver position
type PositionResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BillingResponse is the billing snapshot taken at checkout
type BillingResponse struct {
	CompanyName  string `json:"company_name"`
	TaxID        string `json:"tax_id"`
	LegalAddress string `json:"legal_address"`
	DirectorName string `json:"director_name,omitempty"`
	IBAN         string `json:"iban,omitempty"`
}

// SignatureResponse is the signature sub-status
type SignatureResponse struct {
	Status     string     `json:"status,omitempty"`
	Step       string     `json:"step,omitempty"`
	DocumentID string     `json:"document_id,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// OrderResponse is the full order view for its owner and staff
type OrderResponse struct {
	ID                uuid.UUID           `json:"id"`
	Number            string              `json:"number"`
	UserID            uuid.UUID           `json:"user_id"`
	Status            string              `json:"status"`
	AvailableEvents   []string            `json:"available_events"`
	TotalAmount       decimal.Decimal     `json:"total_amount"`
	Items             []OrderItemResponse `json:"items"`
	Address           string              `json:"address,omitempty"`
	City              string              `json:"city,omitempty"`
	Notes             string              `json:"notes,omitempty"`
	RequisiteID       *uuid.UUID          `json:"requisite_id,omitempty"`
	Billing           *BillingResponse    `json:"billing,omitempty"`
	InternalSignedAt  *time.Time          `json:"internal_signed_at,omitempty"`
	Signature         SignatureResponse   `json:"signature"`
	PaymentVerified   bool                `json:"payment_verified"`
	PaymentVerifiedAt *time.Time          `json:"payment_verified_at,omitempty"`
	Driver            *DriverResponse     `json:"driver,omitempty"`
	Position          *PositionResponse   `json:"position,omitempty"`
	InvoiceRef        string              `json:"invoice_ref,omitempty"`
	TrackingToken     string              `json:"tracking_token"`
	Version           int                 `json:"version"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// ContentToSignResponse is returned by a completed signature request. The
// client signs Content and echoes DocumentID and IdempotencyTicket back.
type ContentToSignResponse struct {
	OrderID           uuid.UUID `json:"order_id"`
	DocumentID        string    `json:"document_id"`
	IdempotencyTicket string    `json:"idempotency_ticket"`
	Content           string    `json:"content"` // base64
}

// TrackingResponse is the reduced public view behind a tracking link
type TrackingResponse struct {
	Number     string            `json:"number"`
	Status     string            `json:"status"`
	City       string            `json:"city"`
	DriverName string            `json:"driver_name,omitempty"`
	Plate      string            `json:"plate,omitempty"`
	Position   *PositionResponse `json:"position,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// WebhookResult tells the caller whether the callback changed anything
type WebhookResult struct {
	OrderID   uuid.UUID `json:"order_id"`
	Status    string    `json:"status"`
	Applied   bool      `json:"applied"`
	Duplicate bool      `json:"duplicate"`
}

// ToOrderResponse converts a domain order to its response
func ToOrderResponse(o *order.Order) OrderResponse {
	items := o.Items()
	resp := OrderResponse{
		ID:                o.ID,
		Number:            o.Number(),
		UserID:            o.UserID(),
		Status:            o.Status().String(),
		TotalAmount:       o.TotalAmount(),
		Items:             make([]OrderItemResponse, len(items)),
		Address:           o.Delivery().Address,
		City:              o.Delivery().City,
		Notes:             o.Delivery().Notes,
		RequisiteID:       o.RequisiteID(),
		InternalSignedAt:  o.InternalSignedAt(),
		PaymentVerified:   o.PaymentVerified(),
		PaymentVerifiedAt: o.PaymentVerifiedAt(),
		InvoiceRef:        o.InvoiceRef(),
		TrackingToken:     o.TrackingToken(),
		Version:           o.Version,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	for _, ev := range o.Status().AvailableEvents() {
		resp.AvailableEvents = append(resp.AvailableEvents, string(ev))
	}
	for i, item := range items {
		resp.Items[i] = OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.EffectivePrice(),
			Amount:    item.Amount,
		}
	}
	if b := o.Billing(); b != nil {
		resp.Billing = &BillingResponse{
			CompanyName:  b.CompanyName,
			TaxID:        b.TaxID,
			LegalAddress: b.LegalAddress,
			DirectorName: b.DirectorName,
			IBAN:         b.IBAN,
		}
	}
	sig := o.Signature()
	resp.Signature = SignatureResponse{
		Status:     string(sig.Status),
		Step:       string(sig.Step),
		DocumentID: sig.DocumentID,
		UpdatedAt:  sig.UpdatedAt,
	}
	if d := o.Driver(); d != nil {
		resp.Driver = &DriverResponse{Name: d.Name, Phone: d.Phone, Plate: d.Plate, ArrivalTime: d.ArrivalTime}
	}
	if p := o.Position(); p != nil {
		resp.Position = &PositionResponse{Latitude: p.Latitude, Longitude: p.Longitude}
	}
	return resp
}

// ToTrackingResponse builds the public tracking view. Phone numbers and
// billing data are left out.
func ToTrackingResponse(o *order.Order) TrackingResponse {
	resp := TrackingResponse{
		Number:    o.Number(),
		Status:    o.Status().String(),
		City:      o.Delivery().City,
		UpdatedAt: o.UpdatedAt,
	}
	if d := o.Driver(); d != nil {
		resp.DriverName = d.Name
		resp.Plate = d.Plate
	}
	if p := o.Position(); p != nil {
		resp.Position = &PositionResponse{Latitude: p.Latitude, Longitude: p.Longitude}
	}
	return resp
}
