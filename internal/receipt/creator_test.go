package receipt

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFranchiseReceipt_Payload(t *testing.T) {
	r := FranchiseReceipt{
		TransactionID: "t1",
		ObjectID:      11,
		Amount:        decimal.NewFromInt(400),
		Merchant:      "franchise_spb",
		Customer:      Customer{Email: "client@example.com"},
		Franchise:     Supplier{INN: "7801234567", Name: "SPB Renovation"},
		WithAgent:     true,
	}

	p, err := r.Payload()
	require.NoError(t, err)
	assert.Equal(t, OperationSell, p.Operation)
	assert.True(t, p.WithAgent)
	require.Len(t, p.Lines, 1)
	assert.Equal(t, "Advance under contract 11", p.Lines[0].Name)
	require.NotNil(t, p.Lines[0].Supplier)
	assert.Equal(t, "7801234567", p.Lines[0].Supplier.INN)

	r.Refund = true
	p, err = r.Payload()
	require.NoError(t, err)
	assert.Equal(t, OperationSellRefund, p.Operation)
}

func TestContractorReceipt_RequiresINN(t *testing.T) {
	r := ContractorReceipt{
		TransactionID: "t2",
		OfferCode:     "OFF-7",
		Amount:        decimal.NewFromInt(900),
		Merchant:      "domeo_mart",
		Customer:      Customer{Phone: "79990000000"},
	}
	_, err := r.Payload()
	assert.Error(t, err)

	r.Contractor = Supplier{INN: "500100732259", Name: "Contractor"}
	p, err := r.Payload()
	require.NoError(t, err)
	assert.True(t, p.WithAgent)
	assert.Contains(t, p.Lines[0].Name, "OFF-7")
}

func TestCashReceipt_Validation(t *testing.T) {
	base := cashReceipt()

	noContact := base
	noContact.Customer = Customer{Name: "Petrov Ivan"}
	_, err := noContact.Payload()
	assert.ErrorIs(t, err, errNoContact)

	zero := base
	zero.Amount = decimal.Zero
	_, err = zero.Payload()
	assert.ErrorIs(t, err, errNoAmount)

	prepay := base
	prepay.Prepayment = true
	p, err := prepay.Payload()
	require.NoError(t, err)
	assert.Equal(t, "Advance under contract 20", p.Lines[0].Name)
	assert.Nil(t, p.Lines[0].Supplier)
}
