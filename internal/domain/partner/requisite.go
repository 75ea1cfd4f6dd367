package partner

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
)

var (
	taxIDPattern = regexp.MustCompile(`^\d{12}$`)
	ibanPattern  = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{10,30}$`)
	swiftPattern = regexp.MustCompile(`^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
)

// CompanyRequisite is a saved billing identity. A user may hold several;
// checkout snapshots one of them into the order.
type CompanyRequisite struct {
	shared.BaseEntity
	UserID        uuid.UUID
	CompanyName   string
	TaxID         string // BIN/IIN, 12 digits
	LegalAddress  string
	ActualAddress string
	DirectorName  string
	BankName      string
	IBAN          string
	SWIFT         string
}

// NewCompanyRequisite creates a requisite and validates it.
func NewCompanyRequisite(userID uuid.UUID, companyName, taxID, legalAddress string) (*CompanyRequisite, error) {
	r := &CompanyRequisite{
		BaseEntity:   shared.NewBaseEntity(),
		UserID:       userID,
		CompanyName:  strings.TrimSpace(companyName),
		TaxID:        strings.TrimSpace(taxID),
		LegalAddress: strings.TrimSpace(legalAddress),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks mandatory fields and bank identifier formats.
func (r *CompanyRequisite) Validate() error {
	if r.UserID == uuid.Nil {
		return shared.NewValidationError("requisite owner is required")
	}
	if r.CompanyName == "" {
		return shared.NewValidationError("company name is required")
	}
	if !taxIDPattern.MatchString(r.TaxID) {
		return shared.NewValidationError("tax id must be 12 digits")
	}
	if r.LegalAddress == "" {
		return shared.NewValidationError("legal address is required")
	}
	if r.IBAN != "" && !ibanPattern.MatchString(r.IBAN) {
		return shared.NewValidationError("invalid IBAN")
	}
	if r.SWIFT != "" && !swiftPattern.MatchString(r.SWIFT) {
		return shared.NewValidationError("invalid SWIFT code")
	}
	return nil
}

// SetBankDetails sets bank name, IBAN and SWIFT, upper-casing the codes.
func (r *CompanyRequisite) SetBankDetails(bankName, iban, swift string) error {
	prev := *r
	r.BankName = strings.TrimSpace(bankName)
	r.IBAN = strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	r.SWIFT = strings.ToUpper(strings.TrimSpace(swift))
	if err := r.Validate(); err != nil {
		*r = prev
		return err
	}
	r.Touch()
	return nil
}

// RequisiteRepository defines the interface for requisite persistence
type RequisiteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CompanyRequisite, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]CompanyRequisite, error)
	Save(ctx context.Context, r *CompanyRequisite) error
}
