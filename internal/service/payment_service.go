package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"payhub/internal/apierror"
	"payhub/internal/dto"
	"payhub/internal/infra"
	"payhub/internal/model"
	"payhub/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Operator identifies who acts on a request.
type Operator struct {
	ID          int64
	FranchiseID *int64
}

type PaymentService interface {
	Create(ctx context.Context, op Operator, req dto.CreatePaymentRequest) (*dto.TransactionResponse, error)
	// RegisterLink registers the provider order of a transaction and returns
	// its payment url. A transaction already registered returns the same url.
	RegisterLink(ctx context.Context, transactionID string) (*dto.PaymentLinkResponse, error)
	Landing(ctx context.Context, transactionID string) (*dto.LandingResponse, error)
	OrderStatus(ctx context.Context, transactionID string) (*dto.OrderStatusResponse, error)
	Deactivate(ctx context.Context, transactionID string) error
	Get(ctx context.Context, transactionID string) (*dto.TransactionResponse, error)
	List(ctx context.Context, filter dto.TransactionFilter) (*dto.TransactionListResponse, error)
}

// PaymentOptions are the payment-link settings from config.
type PaymentOptions struct {
	PaymentURL      string
	ReturnURL       string
	LinkTTL         time.Duration
	DefaultProvider string
}

type paymentService struct {
	transactions repository.TransactionRepository
	certificates repository.CertificateRepository
	objects      repository.AttributionRepository
	attribution  AttributionService
	providers    infra.Providers
	opts         PaymentOptions
	now          func() time.Time
}

func NewPaymentService(
	transactions repository.TransactionRepository,
	certificates repository.CertificateRepository,
	objects repository.AttributionRepository,
	attribution AttributionService,
	providers infra.Providers,
	opts PaymentOptions,
) PaymentService {
	return &paymentService{
		transactions: transactions,
		certificates: certificates,
		objects:      objects,
		attribution:  attribution,
		providers:    providers,
		opts:         opts,
		now:          time.Now,
	}
}

// ── Create ────────────────────────────────────────────────────────────────────

func (s *paymentService) Create(ctx context.Context, op Operator, req dto.CreatePaymentRequest) (*dto.TransactionResponse, error) {
	provider := req.Provider
	if provider == "" {
		provider = s.opts.DefaultProvider
	}
	if _, err := s.providers.Get(provider); err != nil {
		return nil, apierror.Validation("%s", err.Error())
	}

	typeCode := req.TransactionTypeCode
	if typeCode == "" {
		typeCode = typeCodeForEntity(req.EntityType)
	}

	objectID, err := s.objectOf(ctx, req)
	if err != nil {
		return nil, err
	}

	franchiseID, err := s.franchiseOf(ctx, objectID, op)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	t := &model.Transaction{
		ID:                  id,
		PaymentType:         req.PaymentType,
		TransactionTypeCode: typeCode,
		EntityType:          req.EntityType,
		EntityCode:          req.EntityCode,
		ObjectID:            objectID,
		Amount:              req.Amount,
		PrepaymentFlag:      req.PrepaymentFlag,
		Provider:            provider,
		DocumentURL:         fmt.Sprintf("%s/order/%s", s.opts.PaymentURL, id),
		FranchiseID:         franchiseID,
		CreatedBy:           op.ID,
		CreatedAt:           s.now(),
	}
	if err := s.transactions.Create(ctx, nil, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	log.Info().
		Str("transaction_id", t.ID).
		Str("entity_code", t.EntityCode).
		Str("provider", provider).
		Str("amount", t.Amount.StringFixed(2)).
		Msg("payment: transaction created")
	return transactionToResponse(t), nil
}

func typeCodeForEntity(entityType string) string {
	switch entityType {
	case model.EntityAct:
		return model.TypeCertificatePayment
	case model.EntityOrder:
		return model.TypeContractorOffer
	default:
		return model.TypePrepayment
	}
}

// objectOf: acts resolve their object through the certificate's budget,
// advances carry the object id as entity code.
func (s *paymentService) objectOf(ctx context.Context, req dto.CreatePaymentRequest) (*int64, error) {
	if req.ObjectID != nil {
		return req.ObjectID, nil
	}
	switch req.EntityType {
	case model.EntityAct:
		id, err := s.objects.ObjectByCertificate(ctx, req.EntityCode)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("certificate %s not found", req.EntityCode)
		}
		if err != nil {
			return nil, err
		}
		return &id, nil
	case model.EntityObject:
		id, err := strconv.ParseInt(req.EntityCode, 10, 64)
		if err != nil {
			return nil, apierror.Validation("entity_code %q is not an object id", req.EntityCode)
		}
		return &id, nil
	default:
		return nil, nil
	}
}

// franchiseOf prefers the object's franchise and falls back to the operator's.
func (s *paymentService) franchiseOf(ctx context.Context, objectID *int64, op Operator) (int64, error) {
	if objectID != nil {
		fid, err := s.attribution.ResolveMerchant(ctx, *objectID)
		switch {
		case err == nil && fid != nil:
			return *fid, nil
		case err != nil && !apierror.Is(err, apierror.KindAttribution):
			return 0, err
		}
	}
	if op.FranchiseID != nil {
		return *op.FranchiseID, nil
	}
	return 0, nil
}

// ── RegisterLink ──────────────────────────────────────────────────────────────

func (s *paymentService) RegisterLink(ctx context.Context, transactionID string) (*dto.PaymentLinkResponse, error) {
	t, err := s.find(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	switch {
	case t.IsClosed:
		return nil, apierror.Conflict("transaction %s is already paid", t.ID)
	case t.CancelledAt != nil:
		return nil, apierror.Conflict("transaction %s is cancelled", t.ID)
	case t.Expired(s.now(), s.opts.LinkTTL):
		return nil, apierror.Conflict("payment link of transaction %s has expired", t.ID)
	}
	if t.AcquiringOrderID != nil && t.OrderURL != nil {
		return &dto.PaymentLinkResponse{TransactionID: t.ID, OrderID: *t.AcquiringOrderID, URL: *t.OrderURL}, nil
	}

	description, franchiseID, err := s.describe(ctx, t)
	if err != nil {
		return nil, err
	}
	merchant, err := s.attribution.Merchant(franchiseID)
	if err != nil {
		return nil, err
	}
	provider, err := s.providers.Get(t.Provider)
	if err != nil {
		return nil, apierror.Validation("%s", err.Error())
	}

	order, err := provider.RegisterOrder(ctx, infra.OrderRequest{
		Merchant:      merchant,
		TransactionID: t.ID,
		Amount:        t.Amount,
		Description:   description,
		ReturnURL:     s.opts.ReturnURL,
	})
	if err != nil {
		log.Error().Err(err).
			Str("transaction_id", t.ID).
			Str("provider", t.Provider).
			Str("merchant", merchant.Name).
			Msg("payment: order registration failed")
		return nil, apierror.Provider(err, "failed to register order")
	}

	if err := s.transactions.SetOrder(ctx, t.ID, order.ID, order.URL); err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}
	log.Info().
		Str("transaction_id", t.ID).
		Str("order_id", order.ID).
		Str("merchant", merchant.Name).
		Msg("payment: order registered")
	return &dto.PaymentLinkResponse{TransactionID: t.ID, OrderID: order.ID, URL: order.URL}, nil
}

// describe builds the order description and resolves the owning franchise.
// Nominal objects and orders have no franchise (nil).
func (s *paymentService) describe(ctx context.Context, t *model.Transaction) (string, *int64, error) {
	switch t.EntityType {
	case model.EntityAct:
		franchiseID, err := s.attribution.ResolveByCertificate(ctx, t.EntityCode)
		if err != nil {
			return "", nil, err
		}
		cert, err := s.certificates.FindByCode(ctx, t.EntityCode)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apierror.NotFound("certificate %s not found", t.EntityCode)
		}
		if err != nil {
			return "", nil, err
		}
		desc := fmt.Sprintf("Payment for act No. %d", cert.Num)
		if cert.SignedAt != nil {
			desc += " of " + cert.SignedAt.Format("02.01.2006")
		}
		if budget, err := s.certificates.FindBudget(ctx, cert.BudgetID); err == nil {
			desc += fmt.Sprintf(" under contract %d", budget.ObjectID)
			if budget.ContractDate != nil {
				desc += " of " + budget.ContractDate.Format("02.01.2006")
			}
			if client, err := s.objects.ClientByObject(ctx, budget.ObjectID); err == nil && client.FullName() != "" {
				desc += ", " + client.FullName()
			}
		}
		return desc, franchiseID, nil
	case model.EntityObject:
		if t.ObjectID == nil {
			return "", nil, apierror.Validation("transaction %s has no object", t.ID)
		}
		franchiseID, err := s.attribution.ResolveMerchant(ctx, *t.ObjectID)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Advance under contract %d", *t.ObjectID), franchiseID, nil
	default:
		return "Payment for renovation works", nil, nil
	}
}

// ── Landing ───────────────────────────────────────────────────────────────────

func (s *paymentService) Landing(ctx context.Context, transactionID string) (*dto.LandingResponse, error) {
	t, err := s.find(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	resp := &dto.LandingResponse{TransactionID: t.ID}

	switch {
	case t.CancelledAt != nil:
		resp.Status = dto.LandingLinkDead
	case t.IsClosed:
		resp.Status = dto.LandingAlreadyPaid
		resp.Title = s.title(ctx, t)
	case t.Expired(s.now(), s.opts.LinkTTL):
		resp.Status = dto.LandingLinkDead
		if err := s.transactions.Cancel(ctx, t.ID, s.now()); err != nil {
			return nil, fmt.Errorf("cancel expired transaction: %w", err)
		}
		log.Info().Str("transaction_id", t.ID).Msg("payment: link expired, transaction cancelled")
	default:
		resp.Status = dto.LandingReadyForPay
		resp.Title = s.title(ctx, t)
		resp.Amount = t.Amount
		resp.URL = t.OrderURL
	}
	return resp, nil
}

func (s *paymentService) title(ctx context.Context, t *model.Transaction) string {
	if t.TransactionTypeCode == model.TypeCertificatePayment {
		if cert, err := s.certificates.FindByCode(ctx, t.EntityCode); err == nil {
			return fmt.Sprintf("act No. %d", cert.Num)
		}
	}
	return "advance under contract " + t.EntityCode
}

// ── OrderStatus / Deactivate / List ───────────────────────────────────────────

func (s *paymentService) OrderStatus(ctx context.Context, transactionID string) (*dto.OrderStatusResponse, error) {
	t, err := s.find(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if t.AcquiringOrderID == nil {
		return nil, apierror.Conflict("transaction %s has no registered order", t.ID)
	}

	_, franchiseID, err := s.describe(ctx, t)
	if err != nil {
		return nil, err
	}
	merchant, err := s.attribution.Merchant(franchiseID)
	if err != nil {
		return nil, err
	}
	provider, err := s.providers.Get(t.Provider)
	if err != nil {
		return nil, apierror.Validation("%s", err.Error())
	}

	st, err := provider.GetOrderStatus(ctx, merchant, *t.AcquiringOrderID)
	if err != nil {
		return nil, apierror.Provider(err, "failed to get order status")
	}
	return &dto.OrderStatusResponse{
		TransactionID: t.ID,
		OrderID:       st.OrderID,
		Provider:      t.Provider,
		Status:        st.Status,
	}, nil
}

func (s *paymentService) Deactivate(ctx context.Context, transactionID string) error {
	t, err := s.find(ctx, transactionID)
	if err != nil {
		return err
	}
	if t.IsClosed {
		return apierror.Conflict("transaction %s is already paid", t.ID)
	}
	if t.CancelledAt != nil {
		return nil
	}
	if err := s.transactions.Cancel(ctx, t.ID, s.now()); err != nil {
		return fmt.Errorf("cancel transaction: %w", err)
	}
	log.Info().Str("transaction_id", t.ID).Msg("payment: transaction deactivated")
	return nil
}

func (s *paymentService) Get(ctx context.Context, transactionID string) (*dto.TransactionResponse, error) {
	t, err := s.find(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return transactionToResponse(t), nil
}

func (s *paymentService) List(ctx context.Context, filter dto.TransactionFilter) (*dto.TransactionListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	rows, total, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.TransactionResponse, 0, len(rows))
	for i := range rows {
		data = append(data, *transactionToResponse(&rows[i]))
	}
	return &dto.TransactionListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *paymentService) find(ctx context.Context, transactionID string) (*model.Transaction, error) {
	if transactionID == "" || len(transactionID) > maxTransactionIDLen {
		return nil, apierror.Validation("invalid transaction id %q", transactionID)
	}
	t, err := s.transactions.FindByID(ctx, transactionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("transaction %s not found", transactionID)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func transactionToResponse(t *model.Transaction) *dto.TransactionResponse {
	return &dto.TransactionResponse{
		TransactionID:       t.ID,
		Amount:              t.Amount,
		Fee:                 t.Fee,
		PaymentType:         t.PaymentType,
		TransactionTypeCode: t.TransactionTypeCode,
		EntityType:          t.EntityType,
		EntityCode:          t.EntityCode,
		ObjectID:            t.ObjectID,
		Provider:            t.Provider,
		FranchiseID:         t.FranchiseID,
		IsActive:            t.IsActive,
		IsClosed:            t.IsClosed,
		IsIdentify:          t.IsIdentify,
		DocumentURL:         t.DocumentURL,
		OrderURL:            t.OrderURL,
		Receipt:             t.Receipt,
		CreatedAt:           t.CreatedAt.Format(time.RFC3339),
		ClosedAt:            formatTime(t.ClosedAt),
		CancelledAt:         formatTime(t.CancelledAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
