package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/inventory"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Signature provider
// ============================================================================

// DocumentMetadata describes a contract registered with the provider.
type DocumentMetadata struct {
	Title      string
	Number     string
	Date       time.Time
	ExternalID string
}

// Route sends a document from the company signer to the counterparty.
type Route struct {
	SignerID            string
	CounterpartyID      string
	CounterpartyContact string
}

// ContentToSign is returned by the provider before a signature is made.
// The ticket must be echoed back on SaveSignature.
type ContentToSign struct {
	DownloadLink      string
	IdempotencyTicket string
}

// SaveSignatureRequest attaches an uploaded signature to a document.
type SaveSignatureRequest struct {
	DocumentID        string
	SignerID          string
	BlobID            string
	IdempotencyTicket string
}

// SignatureProvider is the e-signature service.
type SignatureProvider interface {
	UploadBlob(ctx context.Context, data []byte) (blobID string, err error)
	CreateDocument(ctx context.Context, meta DocumentMetadata, blobID string) (documentID string, err error)
	CreateRoute(ctx context.Context, documentID string, route Route) error
	RequestContentToSign(ctx context.Context, documentID, signerID string) (*ContentToSign, error)
	DownloadContent(ctx context.Context, link string) ([]byte, error)
	UploadSignature(ctx context.Context, signature []byte) (blobID string, err error)
	SaveSignature(ctx context.Context, req SaveSignatureRequest) error
}

// ============================================================================
// ERP
// ============================================================================

// PaymentTriggerItem is one order line sent to the ERP.
type PaymentTriggerItem struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// PaymentTrigger asks the ERP to start payment verification for an order.
type PaymentTrigger struct {
	OrderID     uuid.UUID            `json:"order_id"`
	Number      string               `json:"number"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	CompanyName string               `json:"company_name"`
	TaxID       string               `json:"tax_id"`
	Items       []PaymentTriggerItem `json:"items"`
	ReportedAt  time.Time            `json:"reported_at"`
}

// ERPGateway is the 1C/ERP system.
type ERPGateway interface {
	PullStockSnapshot(ctx context.Context, warehouseExternalID string) ([]inventory.StockLine, error)
	PushPaymentTrigger(ctx context.Context, trigger PaymentTrigger) error
}

// ============================================================================
// Dispatch
// ============================================================================

// Location is a pickup or drop-off point.
type Location struct {
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// DriverSearchRequest asks dispatch to find a driver.
type DriverSearchRequest struct {
	OrderID     uuid.UUID `json:"order_id"`
	Number      string    `json:"number"`
	Pickup      Location  `json:"pickup"`
	Dropoff     Location  `json:"dropoff"`
	RequestedAt time.Time `json:"requested_at"`
}

// StatusReport tells dispatch about a committed driver-phase transition.
type StatusReport struct {
	OrderID    uuid.UUID         `json:"order_id"`
	Number     string            `json:"number"`
	Status     order.Status      `json:"status"`
	Driver     *order.DriverInfo `json:"driver,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Dispatcher is the logistics and driver assignment system.
type Dispatcher interface {
	RequestDriverSearch(ctx context.Context, req DriverSearchRequest) error
	ReportStatus(ctx context.Context, report StatusReport) error
	UpdateLiveLocation(ctx context.Context, orderID uuid.UUID, lat, lng float64) error
}

// ============================================================================
// Documents
// ============================================================================

// DocumentKind selects a template.
type DocumentKind string

const (
	DocumentContract DocumentKind = "contract"
	DocumentInvoice  DocumentKind = "invoice"
)

// DocumentLine is one rendered order line.
type DocumentLine struct {
	SKU       string
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
}

// Document is the data a contract or invoice is rendered from.
type Document struct {
	Kind     DocumentKind
	Number   string
	Date     time.Time
	Billing  order.BillingSnapshot
	Delivery order.DeliveryInfo
	Lines    []DocumentLine
	Total    decimal.Decimal
}

// RenderedDocument is the output of a DocumentRenderer.
type RenderedDocument struct {
	Data        []byte
	ContentType string
	Extension   string
}

// DocumentRenderer turns order data into a printable file.
type DocumentRenderer interface {
	Render(ctx context.Context, doc Document) (*RenderedDocument, error)
}

// ArtifactStorage stores generated documents.
type ArtifactStorage interface {
	// Put stores data under key and returns a reference for later retrieval.
	Put(ctx context.Context, key string, data []byte, contentType string) (ref string, err error)
}
