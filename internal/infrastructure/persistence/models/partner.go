package models

import (
	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/partner"
)

// CompanyRequisiteModel is the persistence model for a billing identity.
type CompanyRequisiteModel struct {
	BaseModel
	UserID        uuid.UUID `gorm:"type:uuid;not null;index"`
	CompanyName   string    `gorm:"type:varchar(255);not null"`
	TaxID         string    `gorm:"type:varchar(20);not null"`
	LegalAddress  string    `gorm:"type:text;not null"`
	ActualAddress string    `gorm:"type:text"`
	DirectorName  string    `gorm:"type:varchar(255)"`
	BankName      string    `gorm:"type:varchar(255)"`
	IBAN          string    `gorm:"column:iban;type:varchar(34)"`
	SWIFT         string    `gorm:"column:swift;type:varchar(11)"`
}

// TableName returns the table name for GORM
func (CompanyRequisiteModel) TableName() string {
	return "company_requisites"
}

// ToDomain converts the row to a domain requisite.
func (m *CompanyRequisiteModel) ToDomain() *partner.CompanyRequisite {
	return &partner.CompanyRequisite{
		BaseEntity:    m.BaseModel.ToDomain(),
		UserID:        m.UserID,
		CompanyName:   m.CompanyName,
		TaxID:         m.TaxID,
		LegalAddress:  m.LegalAddress,
		ActualAddress: m.ActualAddress,
		DirectorName:  m.DirectorName,
		BankName:      m.BankName,
		IBAN:          m.IBAN,
		SWIFT:         m.SWIFT,
	}
}

// CompanyRequisiteModelFromDomain creates a row from a domain requisite.
func CompanyRequisiteModelFromDomain(r *partner.CompanyRequisite) *CompanyRequisiteModel {
	m := &CompanyRequisiteModel{
		UserID:        r.UserID,
		CompanyName:   r.CompanyName,
		TaxID:         r.TaxID,
		LegalAddress:  r.LegalAddress,
		ActualAddress: r.ActualAddress,
		DirectorName:  r.DirectorName,
		BankName:      r.BankName,
		IBAN:          r.IBAN,
		SWIFT:         r.SWIFT,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}
