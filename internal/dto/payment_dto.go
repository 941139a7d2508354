package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// TransactionFilter is bound from query string of GET /v1/payments.
type TransactionFilter struct {
	EntityCode string `form:"entity_code"`
	ObjectID   *int64 `form:"object_id"`
	Status     string `form:"status,default=all"` // open | closed | cancelled | all
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type TransactionListResponse struct {
	Data  []TransactionResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreatePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"       validate:"required,gt=0"`
	PaymentType string          `json:"payment_type" validate:"required,max=64"`
	EntityType  string          `json:"entity_type"  validate:"required,oneof=act object order"`
	EntityCode  string          `json:"entity_code"  validate:"required,max=64"`
	ObjectID    *int64          `json:"object_id"    validate:"omitempty,min=1"`
	// Provider defaults to DEFAULT_PROVIDER when empty
	Provider string `json:"provider" validate:"omitempty,oneof=yookassa sber"`
	// TransactionTypeCode is derived from EntityType when empty
	TransactionTypeCode string `json:"transaction_type_code" validate:"omitempty,oneof=PREPAYMENT CERTIFICATE_PAYMENT CONTRACTOR_OFFER"`
	PrepaymentFlag      bool   `json:"prepayment_flag"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TransactionResponse struct {
	TransactionID       string          `json:"transaction_id"`
	Amount              decimal.Decimal `json:"amount"`
	Fee                 decimal.Decimal `json:"fee"`
	PaymentType         string          `json:"payment_type"`
	TransactionTypeCode string          `json:"transaction_type_code"`
	EntityType          string          `json:"entity_type"`
	EntityCode          string          `json:"entity_code"`
	ObjectID            *int64          `json:"object_id"`
	Provider            string          `json:"provider"`
	FranchiseID         int64           `json:"franchise_id"`
	IsActive            bool            `json:"is_active"`
	IsClosed            bool            `json:"is_closed"`
	IsIdentify          bool            `json:"is_identify"`
	DocumentURL         string          `json:"document_url"`
	OrderURL            *string         `json:"order_url"`
	Receipt             *string         `json:"receipt"`
	CreatedAt           string          `json:"created_at"`
	ClosedAt            *string         `json:"closed_at"`
	CancelledAt         *string         `json:"cancelled_at"`
}

type PaymentLinkResponse struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	URL           string `json:"url"`
}

// Landing statuses.
const (
	LandingReadyForPay = "ready_for_pay"
	LandingLinkDead    = "link_dead"
	LandingAlreadyPaid = "already_paid"
)

type LandingResponse struct {
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"`
	Title         string          `json:"title,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	URL           *string         `json:"url,omitempty"`
}

// OrderStatusResponse: status 0 pending, 2 paid, 6 cancelled, -1 anything else.
type OrderStatusResponse struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	Provider      string `json:"provider"`
	Status        int    `json:"status"`
}
