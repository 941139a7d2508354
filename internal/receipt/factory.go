package receipt

import (
	"context"
	"errors"
	"fmt"

	"payhub/internal/config"
	"payhub/internal/model"
	"payhub/internal/repository"
)

// Manual receipt categories.
const (
	CategoryFranchise      = "franchise"
	CategoryContractor     = "contractor"
	CategoryCashPrepayment = "cash_prepayment"
)

var (
	// ErrLegalClient: fiscal receipts are not issued to legal entities.
	ErrLegalClient     = errors.New("receipts are not issued to legal entities")
	ErrNoObject        = errors.New("transaction is not bound to an object")
	ErrUnknownCategory = errors.New("unknown receipt category")
)

// Factory picks and fills the Creator variant for a transaction.
type Factory struct {
	attribution     repository.AttributionRepository
	transactions    repository.TransactionRepository
	merchants       config.Merchants
	defaultMerchant string
}

func NewFactory(
	attribution repository.AttributionRepository,
	transactions repository.TransactionRepository,
	merchants config.Merchants,
	defaultMerchant string,
) *Factory {
	return &Factory{
		attribution:     attribution,
		transactions:    transactions,
		merchants:       merchants,
		defaultMerchant: defaultMerchant,
	}
}

// ForTransaction selects the variant from the transaction itself:
// contractor offer → contractor, nominal object → cash, otherwise franchise.
func (f *Factory) ForTransaction(ctx context.Context, t *model.Transaction) (Creator, error) {
	category := CategoryFranchise
	if t.TransactionTypeCode == model.TypeContractorOffer {
		category = CategoryContractor
	} else if t.ObjectID != nil {
		obj, err := f.attribution.FindObject(ctx, *t.ObjectID)
		if err != nil {
			return nil, fmt.Errorf("receipt: load object %d: %w", *t.ObjectID, err)
		}
		if obj.IsNominal {
			category = ""
		}
	}
	return f.build(ctx, t, category)
}

// ForCategory builds the variant an operator asked for explicitly.
func (f *Factory) ForCategory(ctx context.Context, t *model.Transaction, category string) (Creator, error) {
	switch category {
	case CategoryFranchise, CategoryContractor, CategoryCashPrepayment:
		return f.build(ctx, t, category)
	default:
		return nil, ErrUnknownCategory
	}
}

// build: an empty category means a plain cash receipt for a nominal object.
func (f *Factory) build(ctx context.Context, t *model.Transaction, category string) (Creator, error) {
	if t.ObjectID == nil {
		return nil, ErrNoObject
	}
	objectID := *t.ObjectID

	client, err := f.attribution.ClientByObject(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("receipt: load client of object %d: %w", objectID, err)
	}
	if client.IsLegal {
		return nil, ErrLegalClient
	}
	customer := Customer{Name: client.FullName(), Phone: client.DigitsPhone(), Email: client.Email}
	merchant := f.MerchantName(t.FranchiseID)

	withAgent, err := f.withAgent(ctx, objectID, t.EntityCode)
	if err != nil {
		return nil, err
	}

	switch category {
	case CategoryContractor:
		contractor, err := f.supplier(ctx, t.FranchiseID)
		if err != nil {
			return nil, err
		}
		return ContractorReceipt{
			TransactionID: t.ID,
			OfferCode:     t.EntityCode,
			Amount:        t.Amount,
			Merchant:      merchant,
			Customer:      customer,
			Contractor:    contractor,
		}, nil
	case CategoryFranchise:
		franchise, err := f.supplier(ctx, t.FranchiseID)
		if err != nil {
			return nil, err
		}
		return FranchiseReceipt{
			TransactionID: t.ID,
			ObjectID:      objectID,
			Amount:        t.Amount,
			Merchant:      merchant,
			Customer:      customer,
			Franchise:     franchise,
			WithAgent:     withAgent,
		}, nil
	default:
		return CashReceipt{
			TransactionID: t.ID,
			ObjectID:      objectID,
			Amount:        t.Amount,
			Merchant:      merchant,
			Customer:      customer,
			Prepayment:    category == CategoryCashPrepayment || t.TransactionTypeCode == model.TypePrepayment || t.PrepaymentFlag,
			WithAgent:     withAgent,
		}, nil
	}
}

// withAgent: nominal objects are sold as agent unless the act was already paid in cash.
func (f *Factory) withAgent(ctx context.Context, objectID int64, code string) (bool, error) {
	obj, err := f.attribution.FindObject(ctx, objectID)
	if err != nil {
		return false, fmt.Errorf("receipt: load object %d: %w", objectID, err)
	}
	if !obj.IsNominal {
		return false, nil
	}
	hasCash, err := f.transactions.HasCashActPayments(ctx, objectID, code)
	if err != nil {
		return false, err
	}
	return !hasCash, nil
}

func (f *Factory) supplier(ctx context.Context, franchiseID int64) (Supplier, error) {
	fr, err := f.attribution.FindFranchise(ctx, franchiseID)
	if err != nil {
		return Supplier{}, fmt.Errorf("receipt: load franchise %d: %w", franchiseID, err)
	}
	return Supplier{INN: fr.INN, Name: fr.Name, Phone: fr.Phone}, nil
}

// MerchantName maps a franchise to the configured merchant acting for it.
func (f *Factory) MerchantName(franchiseID int64) string {
	if m, ok := f.merchants.ByFranchise(franchiseID); ok {
		return m.Name
	}
	return f.defaultMerchant
}
