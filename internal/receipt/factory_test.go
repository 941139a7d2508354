package receipt

import (
	"context"
	"testing"

	"payhub/internal/config"
	"payhub/internal/model"
	"payhub/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubAttribution answers only what the factory asks; other methods panic.
type stubAttribution struct {
	repository.AttributionRepository
	objects map[int64]*model.EstimateObject
	clients map[int64]*model.Client
}

func (s *stubAttribution) FindObject(_ context.Context, id int64) (*model.EstimateObject, error) {
	if o, ok := s.objects[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAttribution) ClientByObject(_ context.Context, id int64) (*model.Client, error) {
	if c, ok := s.clients[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAttribution) FindFranchise(_ context.Context, id int64) (*model.Franchise, error) {
	return &model.Franchise{ID: id, Name: "SPB Renovation", INN: "7801234567"}, nil
}

type stubCashLookup struct {
	repository.TransactionRepository
	hasCash bool
}

func (s *stubCashLookup) HasCashActPayments(context.Context, int64, string) (bool, error) {
	return s.hasCash, nil
}

func newTestFactory(hasCash bool) *Factory {
	attr := &stubAttribution{
		objects: map[int64]*model.EstimateObject{
			11: {ObjectID: 11},
			20: {ObjectID: 20, IsNominal: true},
			30: {ObjectID: 30},
		},
		clients: map[int64]*model.Client{
			11: {FirstName: "Ivan", SecondName: "Petrov", Phone: "+7 (999) 000-00-00"},
			20: {FirstName: "Anna", Email: "anna@example.com"},
			30: {FirstName: "LLC", Email: "llc@example.com", IsLegal: true},
		},
	}
	merchants := config.Merchants{{Name: "domeo_mart", FranchiseID: 1}, {Name: "franchise_spb", FranchiseID: 42}}
	return NewFactory(attr, &stubCashLookup{hasCash: hasCash}, merchants, "domeo_mart")
}

func objectID(id int64) *int64 { return &id }

func TestFactory_ForTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("franchise object", func(t *testing.T) {
		c, err := newTestFactory(false).ForTransaction(ctx, &model.Transaction{
			ID: "t1", ObjectID: objectID(11), FranchiseID: 42, Amount: decimal.NewFromInt(400),
			TransactionTypeCode: model.TypeCertificatePayment,
		})
		require.NoError(t, err)
		r, ok := c.(FranchiseReceipt)
		require.True(t, ok)
		assert.Equal(t, "franchise_spb", r.Merchant)
		assert.Equal(t, "79990000000", r.Customer.Phone)
		assert.Equal(t, "Petrov Ivan", r.Customer.Name)
		assert.False(t, r.WithAgent)
	})

	t.Run("nominal object sells as agent", func(t *testing.T) {
		c, err := newTestFactory(false).ForTransaction(ctx, &model.Transaction{
			ID: "t2", ObjectID: objectID(20), Amount: decimal.NewFromInt(1500),
			TransactionTypeCode: model.TypePrepayment,
		})
		require.NoError(t, err)
		r, ok := c.(CashReceipt)
		require.True(t, ok)
		assert.Equal(t, "domeo_mart", r.Merchant)
		assert.True(t, r.WithAgent)
		assert.True(t, r.Prepayment)
	})

	t.Run("nominal object already paid in cash", func(t *testing.T) {
		c, err := newTestFactory(true).ForTransaction(ctx, &model.Transaction{
			ID: "t3", ObjectID: objectID(20), Amount: decimal.NewFromInt(1500),
		})
		require.NoError(t, err)
		assert.False(t, c.(CashReceipt).WithAgent)
	})

	t.Run("contractor offer", func(t *testing.T) {
		c, err := newTestFactory(false).ForTransaction(ctx, &model.Transaction{
			ID: "t4", ObjectID: objectID(11), FranchiseID: 42, EntityCode: "OFF-7",
			Amount: decimal.NewFromInt(900), TransactionTypeCode: model.TypeContractorOffer,
		})
		require.NoError(t, err)
		r, ok := c.(ContractorReceipt)
		require.True(t, ok)
		assert.Equal(t, "7801234567", r.Contractor.INN)
	})

	t.Run("legal client", func(t *testing.T) {
		_, err := newTestFactory(false).ForTransaction(ctx, &model.Transaction{ID: "t5", ObjectID: objectID(30)})
		assert.ErrorIs(t, err, ErrLegalClient)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := newTestFactory(false).ForTransaction(ctx, &model.Transaction{ID: "t6"})
		assert.ErrorIs(t, err, ErrNoObject)
	})
}

func TestFactory_ForCategory(t *testing.T) {
	f := newTestFactory(false)
	tx := &model.Transaction{ID: "t1", ObjectID: objectID(11), FranchiseID: 42, Amount: decimal.NewFromInt(400)}

	c, err := f.ForCategory(context.Background(), tx, CategoryCashPrepayment)
	require.NoError(t, err)
	assert.True(t, c.(CashReceipt).Prepayment)

	_, err = f.ForCategory(context.Background(), tx, "gift")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestFactory_MerchantName(t *testing.T) {
	f := newTestFactory(false)
	assert.Equal(t, "franchise_spb", f.MerchantName(42))
	assert.Equal(t, "domeo_mart", f.MerchantName(7))
}
