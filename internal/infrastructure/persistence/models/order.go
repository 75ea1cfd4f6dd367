package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root.
// Billing, driver and signature values are flattened into prefixed columns.
type OrderModel struct {
	AggregateModel
	Number        string           `gorm:"type:varchar(40);not null;uniqueIndex"`
	UserID        uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_orders_one_cart_per_user,where:status = 'cart'"`
	TrackingToken string           `gorm:"type:varchar(64);not null;uniqueIndex"`
	Status        order.Status     `gorm:"type:varchar(40);not null;index"`
	TotalAmount   decimal.Decimal  `gorm:"type:numeric(18,2);not null;default:0"`
	Items         []OrderItemModel `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`

	DeliveryAddress string     `gorm:"type:text"`
	DeliveryCity    string     `gorm:"type:varchar(120)"`
	DeliveryNotes   string     `gorm:"type:text"`
	RequisiteID     *uuid.UUID `gorm:"type:uuid"`

	BillingCompanyName   string `gorm:"type:varchar(255)"`
	BillingTaxID         string `gorm:"type:varchar(20)"`
	BillingLegalAddress  string `gorm:"type:text"`
	BillingActualAddress string `gorm:"type:text"`
	BillingDirectorName  string `gorm:"type:varchar(255)"`
	BillingBankName      string `gorm:"type:varchar(255)"`
	BillingIBAN          string `gorm:"column:billing_iban;type:varchar(34)"`
	BillingSWIFT         string `gorm:"column:billing_swift;type:varchar(11)"`
	InternalSignedAt     *time.Time

	DriverName        string `gorm:"type:varchar(255)"`
	DriverPhone       string `gorm:"type:varchar(40)"`
	DriverPlate       string `gorm:"type:varchar(20)"`
	DriverArrivalTime *time.Time
	DriverAssignedAt  *time.Time
	Latitude          *float64
	Longitude         *float64

	SignatureStep         order.HandshakeStep   `gorm:"type:varchar(40)"`
	SignatureStatus       order.SignatureStatus `gorm:"type:varchar(40)"`
	SignatureBlobID       string                `gorm:"type:varchar(255)"`
	SignatureDocumentID   string                `gorm:"type:varchar(255);index"`
	SignatureDownloadLink string                `gorm:"type:text"`
	SignatureTicket       string                `gorm:"type:varchar(255)"`
	SignatureUpdatedAt    *time.Time

	PaymentVerified   bool `gorm:"not null;default:false"`
	PaymentVerifiedAt *time.Time
	InvoiceRef        string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain rebuilds the domain order.
func (m *OrderModel) ToDomain() *order.Order {
	s := order.State{
		ID:            m.ID,
		Number:        m.Number,
		UserID:        m.UserID,
		TrackingToken: m.TrackingToken,
		Status:        m.Status,
		TotalAmount:   m.TotalAmount,
		Items:         make([]order.OrderItem, len(m.Items)),
		Delivery: order.DeliveryInfo{
			Address: m.DeliveryAddress,
			City:    m.DeliveryCity,
			Notes:   m.DeliveryNotes,
		},
		RequisiteID:      m.RequisiteID,
		InternalSignedAt: m.InternalSignedAt,
		DriverAssignedAt: m.DriverAssignedAt,
		Signature: order.SignatureProgress{
			Step:         m.SignatureStep,
			Status:       m.SignatureStatus,
			BlobID:       m.SignatureBlobID,
			DocumentID:   m.SignatureDocumentID,
			DownloadLink: m.SignatureDownloadLink,
			Ticket:       m.SignatureTicket,
			UpdatedAt:    m.SignatureUpdatedAt,
		},
		PaymentVerified:   m.PaymentVerified,
		PaymentVerifiedAt: m.PaymentVerifiedAt,
		InvoiceRef:        m.InvoiceRef,
		Version:           m.Version,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	for i := range m.Items {
		s.Items[i] = m.Items[i].ToDomain()
	}
	if m.BillingCompanyName != "" {
		s.Billing = &order.BillingSnapshot{
			CompanyName:   m.BillingCompanyName,
			TaxID:         m.BillingTaxID,
			LegalAddress:  m.BillingLegalAddress,
			ActualAddress: m.BillingActualAddress,
			DirectorName:  m.BillingDirectorName,
			BankName:      m.BillingBankName,
			IBAN:          m.BillingIBAN,
			SWIFT:         m.BillingSWIFT,
		}
	}
	if m.DriverName != "" {
		s.Driver = &order.DriverInfo{
			Name:        m.DriverName,
			Phone:       m.DriverPhone,
			Plate:       m.DriverPlate,
			ArrivalTime: m.DriverArrivalTime,
		}
	}
	if m.Latitude != nil && m.Longitude != nil {
		s.Position = &order.Position{Latitude: *m.Latitude, Longitude: *m.Longitude}
	}
	return order.Restore(s)
}

// OrderModelFromDomain creates a persistence model from a domain order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	s := o.State()
	m := &OrderModel{
		AggregateModel: AggregateModel{
			BaseModel: BaseModel{ID: s.ID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt},
			Version:   s.Version,
		},
		Number:                s.Number,
		UserID:                s.UserID,
		TrackingToken:         s.TrackingToken,
		Status:                s.Status,
		TotalAmount:           s.TotalAmount,
		DeliveryAddress:       s.Delivery.Address,
		DeliveryCity:          s.Delivery.City,
		DeliveryNotes:         s.Delivery.Notes,
		RequisiteID:           s.RequisiteID,
		InternalSignedAt:      s.InternalSignedAt,
		DriverAssignedAt:      s.DriverAssignedAt,
		SignatureStep:         s.Signature.Step,
		SignatureStatus:       s.Signature.Status,
		SignatureBlobID:       s.Signature.BlobID,
		SignatureDocumentID:   s.Signature.DocumentID,
		SignatureDownloadLink: s.Signature.DownloadLink,
		SignatureTicket:       s.Signature.Ticket,
		SignatureUpdatedAt:    s.Signature.UpdatedAt,
		PaymentVerified:       s.PaymentVerified,
		PaymentVerifiedAt:     s.PaymentVerifiedAt,
		InvoiceRef:            s.InvoiceRef,
		Items:                 make([]OrderItemModel, len(s.Items)),
	}
	for i := range s.Items {
		m.Items[i] = OrderItemModelFromDomain(s.ID, s.Items[i])
	}
	if b := s.Billing; b != nil {
		m.BillingCompanyName = b.CompanyName
		m.BillingTaxID = b.TaxID
		m.BillingLegalAddress = b.LegalAddress
		m.BillingActualAddress = b.ActualAddress
		m.BillingDirectorName = b.DirectorName
		m.BillingBankName = b.BankName
		m.BillingIBAN = b.IBAN
		m.BillingSWIFT = b.SWIFT
	}
	if d := s.Driver; d != nil {
		m.DriverName = d.Name
		m.DriverPhone = d.Phone
		m.DriverPlate = d.Plate
		m.DriverArrivalTime = d.ArrivalTime
	}
	if p := s.Position; p != nil {
		lat, lng := p.Latitude, p.Longitude
		m.Latitude = &lat
		m.Longitude = &lng
	}
	return m
}

// UpdateColumns returns every mutable column for a versioned update.
func (m *OrderModel) UpdateColumns() map[string]any {
	return map[string]any{
		"status":                  m.Status,
		"total_amount":            m.TotalAmount,
		"delivery_address":        m.DeliveryAddress,
		"delivery_city":           m.DeliveryCity,
		"delivery_notes":          m.DeliveryNotes,
		"requisite_id":            m.RequisiteID,
		"billing_company_name":    m.BillingCompanyName,
		"billing_tax_id":          m.BillingTaxID,
		"billing_legal_address":   m.BillingLegalAddress,
		"billing_actual_address":  m.BillingActualAddress,
		"billing_director_name":   m.BillingDirectorName,
		"billing_bank_name":       m.BillingBankName,
		"billing_iban":            m.BillingIBAN,
		"billing_swift":           m.BillingSWIFT,
		"internal_signed_at":      m.InternalSignedAt,
		"driver_name":             m.DriverName,
		"driver_phone":            m.DriverPhone,
		"driver_plate":            m.DriverPlate,
		"driver_arrival_time":     m.DriverArrivalTime,
		"driver_assigned_at":      m.DriverAssignedAt,
		"latitude":                m.Latitude,
		"longitude":               m.Longitude,
		"signature_step":          m.SignatureStep,
		"signature_status":        m.SignatureStatus,
		"signature_blob_id":       m.SignatureBlobID,
		"signature_document_id":   m.SignatureDocumentID,
		"signature_download_link": m.SignatureDownloadLink,
		"signature_ticket":        m.SignatureTicket,
		"signature_updated_at":    m.SignatureUpdatedAt,
		"payment_verified":        m.PaymentVerified,
		"payment_verified_at":     m.PaymentVerifiedAt,
		"invoice_ref":             m.InvoiceRef,
	}
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID           `gorm:"type:uuid;not null"`
	SKU          string              `gorm:"column:sku;type:varchar(64);not null"`
	Name         string              `gorm:"type:varchar(255);not null"`
	Quantity     decimal.Decimal     `gorm:"type:numeric(18,4);not null"`
	UnitPrice    decimal.NullDecimal `gorm:"type:numeric(18,2)"`
	CatalogPrice decimal.Decimal     `gorm:"type:numeric(18,2);not null;default:0"`
	Amount       decimal.Decimal     `gorm:"type:numeric(18,2);not null;default:0"`
	CreatedAt    time.Time           `gorm:"not null"`
	UpdatedAt    time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the row to a domain item.
func (m *OrderItemModel) ToDomain() order.OrderItem {
	item := order.OrderItem{
		ID:           m.ID,
		ProductID:    m.ProductID,
		SKU:          m.SKU,
		Name:         m.Name,
		Quantity:     m.Quantity,
		CatalogPrice: m.CatalogPrice,
		Amount:       m.Amount,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.UnitPrice.Valid {
		price := m.UnitPrice.Decimal
		item.UnitPrice = &price
	}
	return item
}

// OrderItemModelFromDomain creates a row for an item of orderID.
func OrderItemModelFromDomain(orderID uuid.UUID, item order.OrderItem) OrderItemModel {
	m := OrderItemModel{
		ID:           item.ID,
		OrderID:      orderID,
		ProductID:    item.ProductID,
		SKU:          item.SKU,
		Name:         item.Name,
		Quantity:     item.Quantity,
		CatalogPrice: item.CatalogPrice,
		Amount:       item.Amount,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
	if item.UnitPrice != nil {
		m.UnitPrice = decimal.NewNullDecimal(*item.UnitPrice)
	}
	return m
}
