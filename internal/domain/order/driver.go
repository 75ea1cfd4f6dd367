package order

import (
	"strings"
	"time"
)

// DriverInfo identifies the driver and vehicle assigned to an order.
type DriverInfo struct {
	Name        string
	Phone       string
	Plate       string
	ArrivalTime *time.Time
}

// Validate checks that the mandatory driver fields are present
func (d DriverInfo) Validate() error {
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Phone) == "" || strings.TrimSpace(d.Plate) == "" {
		return ErrIncompleteDriver
	}
	return nil
}

// Position is a WGS84 coordinate.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Validate checks coordinate ranges
func (p Position) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return ErrInvalidPosition
	}
	return nil
}

// DeliveryInfo is the destination captured at checkout.
type DeliveryInfo struct {
	Address string
	City    string
	Notes   string
}

// BillingSnapshot is a copy of the company requisite at checkout time.
// Later edits to the requisite do not alter it.
type BillingSnapshot struct {
	CompanyName   string
	TaxID         string
	LegalAddress  string
	ActualAddress string
	DirectorName  string
	BankName      string
	IBAN          string
	SWIFT         string
}
