package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"payhub/internal/apierror"
	"payhub/internal/config"
	"payhub/internal/infra"
	"payhub/internal/model"
	"payhub/internal/repository"
	"payhub/internal/worker"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookActorID is the user id recorded on status rows written by provider notifications.
const WebhookActorID int64 = 0

const maxTransactionIDLen = 64

// PaymentEvent is a decoded provider notification.
type PaymentEvent struct {
	Provider      string
	EventID       string
	Event         string
	TransactionID string
	OrderID       string
	Merchant      string
	Payload       json.RawMessage
}

// Outcome tells the webhook handler what happened to an event.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeDuplicate
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "ignored"
	}
}

// SettlementResult describes the effect of an event or a recompute.
type SettlementResult struct {
	Outcome         Outcome
	CertificateCode string
	Status          model.CertificateStatusID
	Changed         bool
	LastPay         bool
}

type SettlementService interface {
	// ApplyPayment settles the transaction named by a provider event and
	// re-derives the status of the certificate it pays for.
	ApplyPayment(ctx context.Context, ev PaymentEvent) (*SettlementResult, error)
	// Recompute re-derives a certificate's status from the ledger.
	Recompute(ctx context.Context, code string, actorID int64) (*SettlementResult, error)
}

type settlementService struct {
	db           *gorm.DB
	transactions repository.TransactionRepository
	certificates repository.CertificateRepository
	statuses     repository.StatusRepository
	events       repository.WebhookEventRepository
	attribution  AttributionService
	commissions  config.Commissions
	dispatcher   Dispatcher
	now          func() time.Time
}

func NewSettlementService(
	db *gorm.DB,
	transactions repository.TransactionRepository,
	certificates repository.CertificateRepository,
	statuses repository.StatusRepository,
	events repository.WebhookEventRepository,
	attribution AttributionService,
	commissions config.Commissions,
	dispatcher Dispatcher,
) SettlementService {
	return &settlementService{
		db:           db,
		transactions: transactions,
		certificates: certificates,
		statuses:     statuses,
		events:       events,
		attribution:  attribution,
		commissions:  commissions,
		dispatcher:   dispatcher,
		now:          time.Now,
	}
}

// ── ApplyPayment ──────────────────────────────────────────────────────────────
//   1. Validate the transaction id
//   2. Record the event; an already processed one is a duplicate
//   3. Non-success events are recorded and ignored
//   4. BEGIN TX: lock transaction, close it, lock certificate, reconcile,
//      classify, transition, advance budget pointer
//   5. COMMIT, mark the event processed
//   6. (async) receipt job, and a notification on the closing payment

func (s *settlementService) ApplyPayment(ctx context.Context, ev PaymentEvent) (*SettlementResult, error) {
	id := strings.TrimSpace(ev.TransactionID)
	if id == "" || len(id) > maxTransactionIDLen {
		return nil, apierror.Validation("invalid transaction id %q", ev.TransactionID)
	}
	ev.TransactionID = id

	payload := datatypes.JSON(ev.Payload)
	if len(payload) == 0 {
		payload = datatypes.JSON("{}")
	}
	rec := &model.WebhookEvent{
		Provider:        ev.Provider,
		ProviderEventID: ev.EventID,
		EventType:       ev.Event,
		TransactionID:   ev.TransactionID,
		Payload:         payload,
	}
	created, err := s.events.Record(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !created && rec.ProcessedAt != nil {
		log.Info().
			Str("provider", ev.Provider).
			Str("event_id", ev.EventID).
			Str("transaction_id", ev.TransactionID).
			Msg("settlement: duplicate event")
		return &SettlementResult{Outcome: OutcomeDuplicate}, nil
	}

	if ev.Event != infra.EventPaymentSucceeded {
		s.markProcessed(ctx, rec.ID)
		return &SettlementResult{Outcome: OutcomeIgnored}, nil
	}

	res := &SettlementResult{Outcome: OutcomeIgnored}
	var closed *model.Transaction
	var amounts Amounts
	var certNum int

	txErr := runTx(ctx, s.db, func(tx *gorm.DB) error {
		t, err := s.transactions.FindForUpdate(ctx, tx, ev.TransactionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Str("transaction_id", ev.TransactionID).Msg("settlement: unknown transaction")
			return nil
		}
		if err != nil {
			return err
		}
		if !t.IsActive || t.CancelledAt != nil {
			log.Warn().Str("transaction_id", t.ID).Msg("settlement: transaction is not active")
			return nil
		}
		if t.IsClosed {
			res.Outcome = OutcomeDuplicate
			return nil
		}

		closedAt := s.now()
		fee := s.commissions.AcquiringFee(t.Provider, t.Amount)
		if err := s.transactions.MarkClosed(ctx, tx, t.ID, fee, closedAt); err != nil {
			return err
		}
		t.IsClosed, t.IsIdentify, t.Fee, t.ClosedAt = true, true, fee, &closedAt
		closed = t
		res.Outcome = OutcomeApplied
		res.CertificateCode = t.EntityCode

		if t.TransactionTypeCode != model.TypeCertificatePayment || t.EntityCode == "" {
			return nil
		}
		cert, err := s.lockCertificate(ctx, tx, t.EntityCode)
		if err != nil {
			return err
		}
		certNum = cert.Num
		// read the clock under the certificate lock so status rows start in commit order
		amounts, err = s.settle(ctx, tx, cert, t.ID, WebhookActorID, s.now(), res)
		return err
	})

	if txErr != nil {
		if apierror.Is(txErr, apierror.KindConsistency) {
			log.Error().Err(txErr).
				Str("certificate_code", res.CertificateCode).
				Str("transaction_id", ev.TransactionID).
				Msg("settlement: consistency fault, transition aborted")
		}
		if err := s.events.MarkFailed(ctx, rec.ID, txErr.Error()); err != nil {
			log.Error().Err(err).Uint64("event_id", rec.ID).Msg("settlement: failed to store processing error")
		}
		return nil, txErr
	}
	s.markProcessed(ctx, rec.ID)

	if closed != nil {
		s.afterCommit(ctx, closed.ID, certNum, amounts, res)
	}
	return res, nil
}

// ── Recompute ─────────────────────────────────────────────────────────────────

func (s *settlementService) Recompute(ctx context.Context, code string, actorID int64) (*SettlementResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apierror.Validation("certificate code is required")
	}

	res := &SettlementResult{Outcome: OutcomeApplied, CertificateCode: code}
	var amounts Amounts
	var certNum int
	var trsID string

	err := runTx(ctx, s.db, func(tx *gorm.DB) error {
		cert, err := s.lockCertificate(ctx, tx, code)
		if err != nil {
			return err
		}
		certNum = cert.Num

		latest, err := s.transactions.LatestClosedForCertificate(ctx, tx, code)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		default:
			trsID = latest.ID
		}

		amounts, err = s.settle(ctx, tx, cert, trsID, actorID, s.now(), res)
		return err
	})
	if err != nil {
		if apierror.Is(err, apierror.KindConsistency) {
			log.Error().Err(err).
				Str("certificate_code", code).
				Str("transaction_id", trsID).
				Msg("settlement: consistency fault during recompute")
		}
		return nil, err
	}

	if res.Changed && res.LastPay {
		s.notify(ctx, trsID, certNum, amounts, res)
	}
	return res, nil
}

func (s *settlementService) lockCertificate(ctx context.Context, tx *gorm.DB, code string) (*model.Certificate, error) {
	cert, err := s.certificates.LockByCode(ctx, tx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.Consistency("certificate %s not found", code)
	}
	return cert, err
}

// settle reconciles, classifies and commits the status of cert. The caller
// holds the certificate row lock.
func (s *settlementService) settle(
	ctx context.Context,
	tx *gorm.DB,
	cert *model.Certificate,
	transactionID string,
	actorID int64,
	now time.Time,
	res *SettlementResult,
) (Amounts, error) {
	rows, err := s.transactions.ListByCertificate(ctx, tx, cert.Code)
	if err != nil {
		return Amounts{}, err
	}
	amounts, err := Reconcile(rows)
	if err != nil {
		return Amounts{}, err
	}

	in := ClassifierInput{Amounts: amounts, FirstSettlement: IsFirstSettlement(rows, transactionID)}
	if NeedsAttribution(amounts) {
		if transactionID == "" {
			return Amounts{}, apierror.Consistency("certificate %s is paid but has no closed transaction", cert.Code)
		}
		facts, err := s.attribution.ClassifierFacts(ctx, tx, transactionID)
		if err != nil {
			return Amounts{}, err
		}
		in.FranchiseType = facts.FranchiseType
		in.HasFranchiseParticipant = facts.ParticipantID != nil
	}

	if amounts.Closed.GreaterThan(amounts.Billing) && amounts.Billing.IsPositive() {
		log.Warn().
			Str("certificate_code", cert.Code).
			Str("billing", amounts.Billing.StringFixed(2)).
			Str("closed", amounts.Closed.StringFixed(2)).
			Msg("settlement: certificate is overpaid")
	}

	d := Classify(in)
	res.CertificateCode = cert.Code
	res.Status = d.Status
	res.LastPay = d.LastPay
	if d.Status == model.StatusNone {
		return amounts, nil
	}

	changed, err := s.statuses.Transition(ctx, tx, cert.Code, d.Status, actorID, now)
	if err != nil {
		return Amounts{}, err
	}
	res.Changed = changed

	if d.Status.IsPaid() {
		if err := s.certificates.SetLastPaidCert(ctx, tx, cert.BudgetID, cert.Num); err != nil {
			return Amounts{}, err
		}
	}

	log.Info().
		Str("certificate_code", cert.Code).
		Str("transaction_id", transactionID).
		Str("status", d.Status.String()).
		Bool("changed", changed).
		Msg("settlement: certificate classified")
	return amounts, nil
}

func (s *settlementService) afterCommit(ctx context.Context, transactionID string, certNum int, amounts Amounts, res *SettlementResult) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.EnqueueReceipt(ctx, worker.ReceiptJobPayload{TransactionID: transactionID}); err != nil {
		log.Warn().Err(err).Str("transaction_id", transactionID).Msg("settlement: failed to enqueue receipt job")
	}
	if res.LastPay {
		s.notify(ctx, transactionID, certNum, amounts, res)
	}
}

func (s *settlementService) notify(ctx context.Context, transactionID string, certNum int, amounts Amounts, res *SettlementResult) {
	if s.dispatcher == nil {
		return
	}
	job := worker.NotifyJobPayload{
		CertificateCode: res.CertificateCode,
		CertificateNum:  certNum,
		TransactionID:   transactionID,
		Status:          res.Status.String(),
		Billing:         amounts.Billing,
		Closed:          amounts.Closed,
		Identified:      amounts.Identified,
		Prepayment:      amounts.Prepayment,
	}
	if err := s.dispatcher.EnqueueNotification(ctx, job); err != nil {
		log.Warn().Err(err).Str("certificate_code", res.CertificateCode).Msg("settlement: failed to enqueue notification")
	}
}

func (s *settlementService) markProcessed(ctx context.Context, id uint64) {
	if err := s.events.MarkProcessed(ctx, id, s.now()); err != nil {
		log.Error().Err(err).Uint64("event_id", id).Msg("settlement: failed to mark event processed")
	}
}
