package service

import (
	"payhub/internal/apierror"
	"payhub/internal/model"

	"github.com/shopspring/decimal"
)

// Amounts are the settlement sums of one certificate.
type Amounts struct {
	Billing    decimal.Decimal
	Closed     decimal.Decimal
	Identified decimal.Decimal
	Prepayment decimal.Decimal
}

// ClosesBilling reports whether the closed sum has reached the billed amount,
// i.e. the last transaction of the batch has been settled.
func (a Amounts) ClosesBilling() bool {
	return a.Closed.Equal(a.Billing)
}

// Reconcile sums the certificate's ledger rows. Inactive rows never count.
// More than one active billing row is a data-integrity fault.
func Reconcile(rows []model.Transaction) (Amounts, error) {
	a := Amounts{
		Billing:    decimal.Zero,
		Closed:     decimal.Zero,
		Identified: decimal.Zero,
		Prepayment: decimal.Zero,
	}

	billingRows := 0
	for i := range rows {
		t := &rows[i]
		if !t.IsActive {
			continue
		}
		if t.PaymentType == model.PaymentTypeBilling {
			billingRows++
			if billingRows > 1 {
				return Amounts{}, apierror.Consistency("certificate %s has more than one active billing transaction", t.EntityCode)
			}
			a.Billing = t.Amount
			continue
		}
		if !t.Settles() {
			continue
		}
		a.Closed = a.Closed.Add(t.Amount)
		if t.IsIdentify {
			a.Identified = a.Identified.Add(t.Amount)
		}
		if t.PaymentType == model.PaymentTypePrepayment {
			a.Prepayment = a.Prepayment.Add(t.Amount)
		}
	}
	return a, nil
}

// IsFirstSettlement reports whether transactionID is the only settled
// payment of the certificate.
func IsFirstSettlement(rows []model.Transaction, transactionID string) bool {
	found := false
	for i := range rows {
		t := &rows[i]
		if !t.Settles() {
			continue
		}
		if t.ID != transactionID {
			return false
		}
		found = true
	}
	return found
}
