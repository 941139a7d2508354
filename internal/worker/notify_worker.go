package worker

// notify_worker.go
// Processes QueueNotify: renders the settlement statement PDF, mails it to the
// accounting inbox and publishes a certificate.settled event. Every step is
// best-effort; only a missing certificate fails the job.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payhub/internal/infra"
	"payhub/internal/repository"

	"github.com/rs/zerolog/log"
)

// StatementMailer is satisfied by *infra.Mailer.
type StatementMailer interface {
	Configured() bool
	SendStatement(to string, s *infra.Statement, pdfPath string) error
}

// EventPublisher is satisfied by *infra.EventPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, ev infra.SettlementEvent) error
}

// NotifyWorker processes settlement notifications.
type NotifyWorker struct {
	transactions repository.TransactionRepository
	mailer       StatementMailer
	publisher    EventPublisher
	storagePath  string
	notifyEmail  string
	now          func() time.Time
}

func NewNotifyWorker(
	transactions repository.TransactionRepository,
	mailer StatementMailer,
	publisher EventPublisher,
	storagePath string,
	notifyEmail string,
) *NotifyWorker {
	return &NotifyWorker{
		transactions: transactions,
		mailer:       mailer,
		publisher:    publisher,
		storagePath:  storagePath,
		notifyEmail:  notifyEmail,
		now:          time.Now,
	}
}

func (w *NotifyWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload NotifyJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("notify_worker: invalid payload")
		return fmt.Errorf("invalid payload: %w", err)
	}
	if payload.CertificateCode == "" {
		return fmt.Errorf("notify job without certificate code")
	}

	rows, err := w.transactions.ListByCertificate(ctx, nil, payload.CertificateCode)
	if err != nil {
		log.Error().Err(err).Str("certificate_code", payload.CertificateCode).Msg("notify_worker: failed to load transactions")
		return err
	}

	stmt := &infra.Statement{
		CertificateCode: payload.CertificateCode,
		CertificateNum:  payload.CertificateNum,
		Status:          payload.Status,
		Billing:         payload.Billing,
		Closed:          payload.Closed,
		Identified:      payload.Identified,
		Prepayment:      payload.Prepayment,
		GeneratedAt:     w.now(),
	}
	for i := range rows {
		t := &rows[i]
		if !t.Settles() {
			continue
		}
		stmt.Lines = append(stmt.Lines, infra.StatementLine{
			TransactionID: t.ID,
			PaymentType:   t.PaymentType,
			Provider:      t.Provider,
			Amount:        t.Amount,
			Identified:    t.IsIdentify,
			ClosedAt:      t.ClosedAt,
		})
	}

	if w.mailer != nil && w.mailer.Configured() && w.notifyEmail != "" {
		w.mail(stmt)
	}

	if w.publisher != nil {
		ev := infra.SettlementEvent{
			Type:            infra.EventCertificateSettled,
			CertificateCode: payload.CertificateCode,
			CertificateNum:  payload.CertificateNum,
			Status:          payload.Status,
			TransactionID:   payload.TransactionID,
			OccurredAt:      stmt.GeneratedAt,
		}
		if err := w.publisher.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Str("certificate_code", payload.CertificateCode).Msg("notify_worker: failed to publish event")
		}
	}
	return nil
}

func (w *NotifyWorker) mail(stmt *infra.Statement) {
	pdfPath, err := infra.GenerateStatementPDF(stmt, w.storagePath)
	if err != nil {
		log.Warn().Err(err).Str("certificate_code", stmt.CertificateCode).Msg("notify_worker: PDF generation failed")
		pdfPath = ""
	}
	if err := w.mailer.SendStatement(w.notifyEmail, stmt, pdfPath); err != nil {
		log.Error().Err(err).Str("to", w.notifyEmail).Msg("notify_worker: failed to send email")
		return
	}
	log.Info().Str("certificate_code", stmt.CertificateCode).Msg("notify_worker: statement sent")
}
