package service

import (
	"context"
	"errors"

	"payhub/internal/apierror"
	"payhub/internal/dto"
	"payhub/internal/model"
	"payhub/internal/receipt"
	"payhub/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ReceiptFactory is satisfied by *receipt.Factory.
type ReceiptFactory interface {
	ForCategory(ctx context.Context, t *model.Transaction, category string) (receipt.Creator, error)
}

// ReceiptIssuer is satisfied by *receipt.Gateway.
type ReceiptIssuer interface {
	CreateReceipt(ctx context.Context, c receipt.Creator) (string, bool)
}

type ReceiptService interface {
	// Issue creates a receipt of the requested category for a transaction.
	Issue(ctx context.Context, req dto.ManualReceiptRequest) (*dto.ReceiptResponse, error)
	// AttachReceiptURL stores the OFD url the receipt provider reports back.
	AttachReceiptURL(ctx context.Context, transactionID string, cb dto.LifePayCallback) error
}

type receiptService struct {
	transactions repository.TransactionRepository
	factory      ReceiptFactory
	issuer       ReceiptIssuer
}

func NewReceiptService(transactions repository.TransactionRepository, factory ReceiptFactory, issuer ReceiptIssuer) ReceiptService {
	return &receiptService{transactions: transactions, factory: factory, issuer: issuer}
}

func (s *receiptService) Issue(ctx context.Context, req dto.ManualReceiptRequest) (*dto.ReceiptResponse, error) {
	t, err := s.transactions.FindByID(ctx, req.TransactionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("transaction %s not found", req.TransactionID)
	}
	if err != nil {
		return nil, err
	}
	if t.CancelledAt != nil {
		return nil, apierror.Conflict("transaction %s is cancelled", t.ID)
	}

	creator, err := s.factory.ForCategory(ctx, t, req.Category)
	switch {
	case errors.Is(err, receipt.ErrLegalClient):
		return nil, apierror.Conflict("receipts are not issued to legal entities")
	case errors.Is(err, receipt.ErrUnknownCategory), errors.Is(err, receipt.ErrNoObject):
		return nil, apierror.Validation("%s", err.Error())
	case err != nil:
		return nil, err
	}

	id, ok := s.issuer.CreateReceipt(ctx, creator)
	if !ok {
		return nil, apierror.Provider(nil, "receipt for transaction %s was not issued", t.ID)
	}
	if err := s.transactions.SetReceiptID(ctx, t.ID, id); err != nil {
		return nil, err
	}
	return &dto.ReceiptResponse{TransactionID: t.ID, ReceiptID: id}, nil
}

func (s *receiptService) AttachReceiptURL(ctx context.Context, transactionID string, cb dto.LifePayCallback) error {
	if cb.ErrorCode != 0 {
		log.Warn().
			Str("transaction_id", transactionID).
			Int("error_code", cb.ErrorCode).
			Str("message", cb.Message).
			Msg("receipt: provider reported a failed receipt")
		return nil
	}
	if cb.OFDURL == "" {
		return apierror.Validation("receipt callback without ofd_url")
	}
	found, err := s.transactions.SetReceiptURL(ctx, transactionID, cb.OFDURL)
	if err != nil {
		return err
	}
	if !found {
		return apierror.NotFound("transaction %s not found", transactionID)
	}
	log.Info().Str("transaction_id", transactionID).Str("receipt_id", cb.UUID).Msg("receipt: OFD url attached")
	return nil
}
