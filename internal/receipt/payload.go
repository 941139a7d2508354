// Package receipt builds fiscal receipt requests and submits them to the
// receipt provider without ever failing the caller.
package receipt

import "github.com/shopspring/decimal"

// Operation is the fiscal operation of a receipt.
type Operation int

const (
	OperationSell Operation = iota + 1
	OperationSellRefund
)

type Customer struct {
	Name  string
	Phone string
	Email string
}

// Supplier is the agent principal printed on the line when the merchant sells
// on behalf of a franchise.
type Supplier struct {
	INN   string
	Name  string
	Phone string
}

type Line struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
	Supplier *Supplier
}

// Payload is the provider-neutral receipt request.
type Payload struct {
	Merchant  string // merchant whose receipt-provider credentials are used
	OrderID   string // our transaction id, echoed back in the provider callback
	Operation Operation
	Customer  Customer
	Lines     []Line
	WithAgent bool
}

// Total sums price × quantity over all lines.
func (p *Payload) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.Lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
