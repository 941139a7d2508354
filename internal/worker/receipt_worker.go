package worker

// receipt_worker.go
// Issues the fiscal receipt of a newly closed transaction through the receipt
// gateway and stores the provider's receipt id on the transaction.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"payhub/internal/model"
	"payhub/internal/receipt"
	"payhub/internal/repository"

	"github.com/rs/zerolog/log"
)

// CreatorFactory picks the receipt variant for a transaction (satisfied by *receipt.Factory).
type CreatorFactory interface {
	ForTransaction(ctx context.Context, t *model.Transaction) (receipt.Creator, error)
}

// ReceiptIssuer submits a receipt (satisfied by *receipt.Gateway).
type ReceiptIssuer interface {
	CreateReceipt(ctx context.Context, c receipt.Creator) (string, bool)
}

// ReceiptWorker processes jobs from QueueReceipts.
type ReceiptWorker struct {
	transactions repository.TransactionRepository
	factory      CreatorFactory
	issuer       ReceiptIssuer
}

func NewReceiptWorker(transactions repository.TransactionRepository, factory CreatorFactory, issuer ReceiptIssuer) *ReceiptWorker {
	return &ReceiptWorker{transactions: transactions, factory: factory, issuer: issuer}
}

// Process issues at most one receipt per transaction. Legal-entity clients
// get none; every other failure lands in the DLQ.
func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("receipt_worker: invalid payload")
		return fmt.Errorf("invalid payload: %w", err)
	}

	t, err := w.transactions.FindByID(ctx, payload.TransactionID)
	if err != nil {
		log.Error().Err(err).Str("transaction_id", payload.TransactionID).Msg("receipt_worker: transaction not found")
		return fmt.Errorf("load transaction %s: %w", payload.TransactionID, err)
	}
	if !t.IsClosed {
		log.Warn().Str("transaction_id", t.ID).Msg("receipt_worker: transaction is not closed, skipping")
		return nil
	}
	if t.ReceiptID != nil && *t.ReceiptID != "" {
		log.Info().Str("transaction_id", t.ID).Str("receipt_id", *t.ReceiptID).Msg("receipt_worker: receipt already issued")
		return nil
	}

	creator, err := w.factory.ForTransaction(ctx, t)
	if errors.Is(err, receipt.ErrLegalClient) {
		log.Info().Str("transaction_id", t.ID).Msg("receipt_worker: legal entity client, no receipt")
		return nil
	}
	if err != nil {
		log.Error().Err(err).Str("transaction_id", t.ID).Msg("receipt_worker: cannot build receipt")
		return err
	}

	id, ok := w.issuer.CreateReceipt(ctx, creator)
	if !ok {
		return fmt.Errorf("receipt for transaction %s not issued", t.ID)
	}
	if err := w.transactions.SetReceiptID(ctx, t.ID, id); err != nil {
		log.Error().Err(err).Str("transaction_id", t.ID).Str("receipt_id", id).Msg("receipt_worker: failed to store receipt id")
		return err
	}
	return nil
}
