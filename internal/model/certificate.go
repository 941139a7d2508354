package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpenEnd is the date_end sentinel of the current (open) status row.
var OpenEnd = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// CertificateStatusID is the settlement state of a certificate.
type CertificateStatusID int

const (
	StatusNone CertificateStatusID = iota
	StatusReadyToPay
	StatusPartiallyPaid
	StatusUnidentifiedPaid
	StatusIdentifiedPaid
	StatusCompletedPaid
)

func (s CertificateStatusID) String() string {
	switch s {
	case StatusReadyToPay:
		return "READY_TO_PAY"
	case StatusPartiallyPaid:
		return "PARTIALLY_PAID"
	case StatusUnidentifiedPaid:
		return "UNIDENTIFIED_PAID"
	case StatusIdentifiedPaid:
		return "IDENTIFIED_PAID"
	case StatusCompletedPaid:
		return "COMPLETED_PAID"
	default:
		return "NONE"
	}
}

// IsPaid reports whether the status means the full billed amount is closed.
func (s CertificateStatusID) IsPaid() bool {
	return s == StatusUnidentifiedPaid || s == StatusIdentifiedPaid || s == StatusCompletedPaid
}

// Certificate is a signed-off act of completed work carrying an amount owed.
type Certificate struct {
	Code      string          `gorm:"column:certificate_code;type:varchar(32);primaryKey"`
	BudgetID  int64           `gorm:"not null;index"`
	Num       int             `gorm:"column:certificate_num;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	SignedAt  *time.Time
	CreatedAt time.Time
}

func (Certificate) TableName() string { return "certificates" }

// Budget is the contract a certificate belongs to.
type Budget struct {
	ID           int64 `gorm:"column:budget_id;primaryKey"`
	ObjectID     int64 `gorm:"index"`
	ContractDate *time.Time
	// LastPaidCert points at the certificate_num of the latest fully paid certificate
	LastPaidCert *int
}

func (Budget) TableName() string { return "budgets" }

// CertificateStatus is one time-ranged row of a certificate's status track.
// The open row has DateEnd == OpenEnd; a partial unique index keeps it single.
type CertificateStatus struct {
	ID              uint64              `gorm:"primaryKey"`
	CertificateCode string              `gorm:"type:varchar(32);not null;index:idx_certificate_statuses_code_end,priority:1"`
	StatusID        CertificateStatusID `gorm:"not null"`
	DateStart       time.Time           `gorm:"not null"`
	DateEnd         time.Time           `gorm:"not null;index:idx_certificate_statuses_code_end,priority:2"`
	UserID          int64               `gorm:"not null"`
}

func (CertificateStatus) TableName() string { return "certificate_statuses" }
