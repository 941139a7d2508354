package receipt

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Creator is one of the receipt-construction variants below. The set is closed:
// the unexported method keeps other packages from adding variants.
type Creator interface {
	Payload() (*Payload, error)
	ErrorMessage() string
	SuccessMessage() string
	isCreator()
}

var (
	errNoAmount   = errors.New("receipt amount must be positive")
	errNoContact  = errors.New("customer has neither phone nor email")
	errNoOrderID  = errors.New("transaction id is required")
	errNoMerchant = errors.New("merchant is required")
)

func validate(orderID, merchant string, amount decimal.Decimal, c Customer) error {
	switch {
	case orderID == "":
		return errNoOrderID
	case merchant == "":
		return errNoMerchant
	case !amount.IsPositive():
		return errNoAmount
	case c.Phone == "" && c.Email == "":
		return errNoContact
	}
	return nil
}

// ── Franchise receipt ─────────────────────────────────────────────────────────

// FranchiseReceipt is an advance receipt issued by the merchant as agent of the
// object's franchise.
type FranchiseReceipt struct {
	TransactionID string
	ObjectID      int64
	Amount        decimal.Decimal
	Merchant      string
	Customer      Customer
	Franchise     Supplier
	WithAgent     bool
	Refund        bool
}

func (FranchiseReceipt) isCreator() {}

func (r FranchiseReceipt) Payload() (*Payload, error) {
	if err := validate(r.TransactionID, r.Merchant, r.Amount, r.Customer); err != nil {
		return nil, err
	}
	supplier := r.Franchise
	op := OperationSell
	if r.Refund {
		op = OperationSellRefund
	}
	return &Payload{
		Merchant:  r.Merchant,
		OrderID:   r.TransactionID,
		Operation: op,
		Customer:  r.Customer,
		Lines: []Line{{
			Name:     fmt.Sprintf("Advance under contract %d", r.ObjectID),
			Price:    r.Amount,
			Quantity: 1,
			Supplier: &supplier,
		}},
		WithAgent: r.WithAgent,
	}, nil
}

func (r FranchiseReceipt) ErrorMessage() string {
	return fmt.Sprintf("failed to create receipt for transaction %s", r.TransactionID)
}

func (r FranchiseReceipt) SuccessMessage() string {
	return fmt.Sprintf("receipt for transaction %s created", r.TransactionID)
}

// ── Contractor receipt ────────────────────────────────────────────────────────

// ContractorReceipt is issued for payments of a contractor offer; the contractor
// is always the agent principal.
type ContractorReceipt struct {
	TransactionID string
	OfferCode     string
	Amount        decimal.Decimal
	Merchant      string
	Customer      Customer
	Contractor    Supplier
}

func (ContractorReceipt) isCreator() {}

func (r ContractorReceipt) Payload() (*Payload, error) {
	if err := validate(r.TransactionID, r.Merchant, r.Amount, r.Customer); err != nil {
		return nil, err
	}
	if r.Contractor.INN == "" {
		return nil, errors.New("contractor INN is required")
	}
	contractor := r.Contractor
	return &Payload{
		Merchant:  r.Merchant,
		OrderID:   r.TransactionID,
		Operation: OperationSell,
		Customer:  r.Customer,
		Lines: []Line{{
			Name:     fmt.Sprintf("Payment under contractor offer %s", r.OfferCode),
			Price:    r.Amount,
			Quantity: 1,
			Supplier: &contractor,
		}},
		WithAgent: true,
	}, nil
}

func (r ContractorReceipt) ErrorMessage() string {
	return fmt.Sprintf("failed to create contractor receipt for offer %s (transaction %s)", r.OfferCode, r.TransactionID)
}

func (r ContractorReceipt) SuccessMessage() string {
	return fmt.Sprintf("contractor receipt for offer %s created", r.OfferCode)
}

// ── Cash receipt ──────────────────────────────────────────────────────────────

// CashReceipt covers nominal objects: the merchant sells in its own name, no
// franchise supplier on the line.
type CashReceipt struct {
	TransactionID string
	ObjectID      int64
	Amount        decimal.Decimal
	Merchant      string
	Customer      Customer
	Prepayment    bool
	WithAgent     bool
}

func (CashReceipt) isCreator() {}

func (r CashReceipt) Payload() (*Payload, error) {
	if err := validate(r.TransactionID, r.Merchant, r.Amount, r.Customer); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("Payment under contract %d", r.ObjectID)
	if r.Prepayment {
		name = fmt.Sprintf("Advance under contract %d", r.ObjectID)
	}
	return &Payload{
		Merchant:  r.Merchant,
		OrderID:   r.TransactionID,
		Operation: OperationSell,
		Customer:  r.Customer,
		Lines:     []Line{{Name: name, Price: r.Amount, Quantity: 1}},
		WithAgent: r.WithAgent,
	}, nil
}

func (r CashReceipt) ErrorMessage() string {
	return fmt.Sprintf("failed to create cash receipt for transaction %s", r.TransactionID)
}

func (r CashReceipt) SuccessMessage() string {
	return fmt.Sprintf("cash receipt for transaction %s created", r.TransactionID)
}
