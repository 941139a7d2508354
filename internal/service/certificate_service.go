package service

import (
	"context"
	"errors"
	"io"
	"time"

	"payhub/internal/apierror"
	"payhub/internal/dto"
	"payhub/internal/infra"
	"payhub/internal/model"
	"payhub/internal/repository"

	"gorm.io/gorm"
)

// CertificateService is the read side of certificate settlement.
type CertificateService interface {
	Summary(ctx context.Context, code string) (*dto.CertificateSummaryResponse, error)
	// Current returns the open status row; NotFound when none was ever written.
	Current(ctx context.Context, code string) (*dto.CertificateStatusResponse, error)
	History(ctx context.Context, code string) ([]dto.CertificateStatusResponse, error)
	// Export writes the certificate's transactions as an xlsx workbook.
	Export(ctx context.Context, code string, w io.Writer) error
}

type certificateService struct {
	certificates repository.CertificateRepository
	statuses     repository.StatusRepository
	transactions repository.TransactionRepository
}

func NewCertificateService(
	certificates repository.CertificateRepository,
	statuses repository.StatusRepository,
	transactions repository.TransactionRepository,
) CertificateService {
	return &certificateService{certificates: certificates, statuses: statuses, transactions: transactions}
}

func (s *certificateService) Summary(ctx context.Context, code string) (*dto.CertificateSummaryResponse, error) {
	cert, err := s.find(ctx, code)
	if err != nil {
		return nil, err
	}
	rows, err := s.transactions.ListByCertificate(ctx, nil, code)
	if err != nil {
		return nil, err
	}
	amounts, err := Reconcile(rows)
	if err != nil {
		return nil, err
	}
	cur, err := s.statuses.Current(ctx, nil, code)
	if err != nil {
		return nil, err
	}

	resp := &dto.CertificateSummaryResponse{
		CertificateCode: cert.Code,
		CertificateNum:  cert.Num,
		Billing:         amounts.Billing,
		Closed:          amounts.Closed,
		Identified:      amounts.Identified,
		Prepayment:      amounts.Prepayment,
	}
	if cur != nil {
		r := statusToResponse(cur)
		resp.Current = &r
	}
	return resp, nil
}

func (s *certificateService) Current(ctx context.Context, code string) (*dto.CertificateStatusResponse, error) {
	cur, err := s.statuses.Current(ctx, nil, code)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, apierror.NotFound("certificate %s has no status", code)
	}
	r := statusToResponse(cur)
	return &r, nil
}

func (s *certificateService) History(ctx context.Context, code string) ([]dto.CertificateStatusResponse, error) {
	rows, err := s.statuses.History(ctx, code)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.CertificateStatusResponse, len(rows))
	for i := range rows {
		resp[i] = statusToResponse(&rows[i])
	}
	return resp, nil
}

func (s *certificateService) Export(ctx context.Context, code string, w io.Writer) error {
	if _, err := s.find(ctx, code); err != nil {
		return err
	}
	rows, err := s.transactions.ListByCertificate(ctx, nil, code)
	if err != nil {
		return err
	}
	return infra.WriteTransactionsXLSX(w, code, rows)
}

func (s *certificateService) find(ctx context.Context, code string) (*model.Certificate, error) {
	if code == "" {
		return nil, apierror.Validation("certificate code is required")
	}
	cert, err := s.certificates.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("certificate %s not found", code)
	}
	return cert, err
}

func statusToResponse(s *model.CertificateStatus) dto.CertificateStatusResponse {
	return dto.CertificateStatusResponse{
		CertificateCode: s.CertificateCode,
		StatusID:        int(s.StatusID),
		Status:          s.StatusID.String(),
		DateStart:       s.DateStart.Format(time.RFC3339),
		DateEnd:         s.DateEnd.Format(time.RFC3339),
		UserID:          s.UserID,
	}
}
