package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment types stored in Transaction.PaymentType.
const (
	PaymentTypeBilling    = "billing"
	PaymentTypeDebt       = "debt"
	PaymentTypePrepayment = "prepayment"
	PaymentTypeCash       = "cash"
	PaymentTypeAcquiring  = "acquiring"
)

// Transaction type codes.
const (
	TypePrepayment         = "PREPAYMENT"
	TypeCertificatePayment = "CERTIFICATE_PAYMENT"
	TypeContractorOffer    = "CONTRACTOR_OFFER"
)

// Entity kinds a transaction can pay for.
const (
	EntityAct    = "act"
	EntityObject = "object"
	EntityOrder  = "order"
)

// Transaction is one payment attempt or intent.
// Lifecycle: created inactive → activated when the provider order is registered →
// closed once on provider confirmation. Cancelling sets CancelledAt and clears IsActive.
// After closing only Receipt and ReceiptID change.
type Transaction struct {
	ID                  string          `gorm:"column:transaction_id;type:varchar(64);primaryKey"`
	PaymentType         string          `gorm:"type:varchar(64);not null;index"`
	TransactionTypeCode string          `gorm:"type:varchar(64);not null;index"`
	EntityType          string          `gorm:"type:varchar(16)"`
	EntityCode          string          `gorm:"type:varchar(64);index"`
	ObjectID            *int64          `gorm:"index"`
	Amount              decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Fee                 decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	IsActive            bool            `gorm:"not null"`
	IsClosed            bool            `gorm:"not null"`
	IsIdentify          bool            `gorm:"not null"`
	PrepaymentFlag      bool            `gorm:"not null"`
	Provider            string          `gorm:"type:varchar(20)"`
	AcquiringOrderID    *string         `gorm:"type:varchar(64);index"`
	DocumentURL         string          `gorm:"type:varchar(1024)"`
	OrderURL            *string         `gorm:"type:varchar(1024)"`
	ReceiptID           *string         `gorm:"type:varchar(64)"`
	// Receipt holds the OFD url reported back by the receipt provider
	Receipt     *string
	FranchiseID int64
	CreatedBy   int64
	CreatedAt   time.Time
	ClosedAt    *time.Time
	CancelledAt *time.Time
}

func (Transaction) TableName() string { return "transactions" }

// Settles reports whether the row takes part in certificate settlement sums.
func (t *Transaction) Settles() bool {
	return t.IsActive && t.IsClosed &&
		t.TransactionTypeCode == TypeCertificatePayment &&
		t.PaymentType != PaymentTypeBilling && t.PaymentType != PaymentTypeDebt
}

// Expired reports whether the payment link outlived ttl at now.
func (t *Transaction) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.CreatedAt) > ttl
}
