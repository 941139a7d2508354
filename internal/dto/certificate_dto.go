package dto

import "github.com/shopspring/decimal"

type CertificateStatusResponse struct {
	CertificateCode string `json:"certificate_code"`
	StatusID        int    `json:"status_id"`
	Status          string `json:"status"`
	DateStart       string `json:"date_start"`
	DateEnd         string `json:"date_end"`
	UserID          int64  `json:"user_id"`
}

// CertificateSummaryResponse is the current status plus the reconciled amounts.
type CertificateSummaryResponse struct {
	CertificateCode string                     `json:"certificate_code"`
	CertificateNum  int                        `json:"certificate_num"`
	Current         *CertificateStatusResponse `json:"current"`
	Billing         decimal.Decimal            `json:"billing_amount"`
	Closed          decimal.Decimal            `json:"closed_amount"`
	Identified      decimal.Decimal            `json:"identified_amount"`
	Prepayment      decimal.Decimal            `json:"prepayment_amount"`
}

type RecomputeResponse struct {
	CertificateCode string `json:"certificate_code"`
	Status          string `json:"status"`
	Changed         bool   `json:"changed"`
	LastPay         bool   `json:"last_pay"`
}
