package service

import (
	"context"
	"sort"
	"time"

	"payhub/internal/dto"
	"payhub/internal/model"
	"payhub/internal/repository"
	"payhub/internal/worker"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory TransactionRepository stub ──────────────────────────────────────

type stubTransactionRepo struct {
	rows map[string]*model.Transaction
	seq  int
}

func newStubTransactionRepo(rows ...model.Transaction) *stubTransactionRepo {
	r := &stubTransactionRepo{rows: make(map[string]*model.Transaction)}
	for i := range rows {
		r.put(rows[i])
	}
	return r
}

func (r *stubTransactionRepo) put(t model.Transaction) {
	r.seq++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Date(2026, 1, 1, 0, 0, r.seq, 0, time.UTC)
	}
	r.rows[t.ID] = &t
}

func (r *stubTransactionRepo) Create(_ context.Context, _ *gorm.DB, t *model.Transaction) error {
	r.put(*t)
	return nil
}

func (r *stubTransactionRepo) FindByID(_ context.Context, id string) (*model.Transaction, error) {
	t, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *stubTransactionRepo) FindByOrderID(_ context.Context, orderID string) (*model.Transaction, error) {
	for _, t := range r.rows {
		if t.AcquiringOrderID != nil && *t.AcquiringOrderID == orderID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubTransactionRepo) FindForUpdate(ctx context.Context, _ *gorm.DB, id string) (*model.Transaction, error) {
	return r.FindByID(ctx, id)
}

func (r *stubTransactionRepo) sorted() []model.Transaction {
	out := make([]model.Transaction, 0, len(r.rows))
	for _, t := range r.rows {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *stubTransactionRepo) ListByCertificate(_ context.Context, _ *gorm.DB, code string) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, t := range r.sorted() {
		if t.EntityCode == code && t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *stubTransactionRepo) LatestClosedForCertificate(_ context.Context, _ *gorm.DB, code string) (*model.Transaction, error) {
	var latest *model.Transaction
	for _, t := range r.sorted() {
		if t.EntityCode != code || !t.Settles() {
			continue
		}
		if latest == nil || (t.ClosedAt != nil && latest.ClosedAt != nil && t.ClosedAt.After(*latest.ClosedAt)) {
			cp := t
			latest = &cp
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (r *stubTransactionRepo) MarkClosed(_ context.Context, _ *gorm.DB, id string, fee decimal.Decimal, at time.Time) error {
	t, ok := r.rows[id]
	if !ok || t.IsClosed {
		return gorm.ErrRecordNotFound
	}
	t.IsClosed, t.IsIdentify, t.Fee, t.ClosedAt = true, true, fee, &at
	return nil
}

func (r *stubTransactionRepo) SetOrder(_ context.Context, id, orderID, orderURL string) error {
	t, ok := r.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.AcquiringOrderID, t.OrderURL, t.IsActive = &orderID, &orderURL, true
	return nil
}

func (r *stubTransactionRepo) Cancel(_ context.Context, id string, at time.Time) error {
	if t, ok := r.rows[id]; ok && !t.IsClosed {
		t.IsActive, t.CancelledAt = false, &at
	}
	return nil
}

func (r *stubTransactionRepo) SetReceiptID(_ context.Context, id, receiptID string) error {
	if t, ok := r.rows[id]; ok {
		t.ReceiptID = &receiptID
	}
	return nil
}

func (r *stubTransactionRepo) SetReceiptURL(_ context.Context, id, url string) (bool, error) {
	t, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	t.Receipt = &url
	return true, nil
}

func (r *stubTransactionRepo) HasCashActPayments(_ context.Context, _ int64, _ string) (bool, error) {
	return false, nil
}

func (r *stubTransactionRepo) List(_ context.Context, _ dto.TransactionFilter) ([]model.Transaction, int64, error) {
	out := r.sorted()
	return out, int64(len(out)), nil
}

func (r *stubTransactionRepo) DB() *gorm.DB { return nil }

// ── In-memory CertificateRepository stub ──────────────────────────────────────

type stubCertificateRepo struct {
	certs        map[string]*model.Certificate
	budgets      map[int64]model.Budget
	lastPaidCert map[int64]int
}

func newStubCertificateRepo(certs ...model.Certificate) *stubCertificateRepo {
	r := &stubCertificateRepo{
		certs:        make(map[string]*model.Certificate),
		budgets:      make(map[int64]model.Budget),
		lastPaidCert: make(map[int64]int),
	}
	for i := range certs {
		c := certs[i]
		r.certs[c.Code] = &c
	}
	return r
}

func (r *stubCertificateRepo) FindByCode(_ context.Context, code string) (*model.Certificate, error) {
	c, ok := r.certs[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCertificateRepo) LockByCode(ctx context.Context, _ *gorm.DB, code string) (*model.Certificate, error) {
	return r.FindByCode(ctx, code)
}

func (r *stubCertificateRepo) SetLastPaidCert(_ context.Context, _ *gorm.DB, budgetID int64, num int) error {
	r.lastPaidCert[budgetID] = num
	return nil
}

func (r *stubCertificateRepo) FindBudget(_ context.Context, budgetID int64) (*model.Budget, error) {
	b, ok := r.budgets[budgetID]
	if !ok {
		b = model.Budget{ID: budgetID}
	}
	if n, ok := r.lastPaidCert[budgetID]; ok {
		b.LastPaidCert = &n
	}
	return &b, nil
}

// ── In-memory StatusRepository stub ───────────────────────────────────────────

type stubStatusRepo struct {
	rows []model.CertificateStatus
}

func (r *stubStatusRepo) Transition(_ context.Context, _ *gorm.DB, code string, status model.CertificateStatusID, actorID int64, now time.Time) (bool, error) {
	for i := range r.rows {
		row := &r.rows[i]
		if row.CertificateCode != code || !row.DateEnd.Equal(model.OpenEnd) {
			continue
		}
		if row.StatusID == status {
			return false, nil
		}
		row.DateEnd = now
	}
	r.rows = append(r.rows, model.CertificateStatus{
		ID:              uint64(len(r.rows) + 1),
		CertificateCode: code,
		StatusID:        status,
		DateStart:       now,
		DateEnd:         model.OpenEnd,
		UserID:          actorID,
	})
	return true, nil
}

func (r *stubStatusRepo) Current(_ context.Context, _ *gorm.DB, code string) (*model.CertificateStatus, error) {
	for i := range r.rows {
		if r.rows[i].CertificateCode == code && r.rows[i].DateEnd.Equal(model.OpenEnd) {
			cp := r.rows[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *stubStatusRepo) History(_ context.Context, code string) ([]model.CertificateStatus, error) {
	var out []model.CertificateStatus
	for _, row := range r.rows {
		if row.CertificateCode == code {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *stubStatusRepo) open(code string) []model.CertificateStatus {
	var out []model.CertificateStatus
	for _, row := range r.rows {
		if row.CertificateCode == code && row.DateEnd.Equal(model.OpenEnd) {
			out = append(out, row)
		}
	}
	return out
}

// ── In-memory WebhookEventRepository stub ─────────────────────────────────────

type stubWebhookEventRepo struct {
	events []*model.WebhookEvent
}

func (r *stubWebhookEventRepo) Record(_ context.Context, e *model.WebhookEvent) (bool, error) {
	for _, stored := range r.events {
		if stored.Provider == e.Provider && stored.ProviderEventID == e.ProviderEventID {
			*e = *stored
			return false, nil
		}
	}
	e.ID = uint64(len(r.events) + 1)
	cp := *e
	r.events = append(r.events, &cp)
	return true, nil
}

func (r *stubWebhookEventRepo) MarkProcessed(_ context.Context, id uint64, at time.Time) error {
	for _, e := range r.events {
		if e.ID == id {
			e.ProcessedAt = &at
			e.ProcessingError = ""
		}
	}
	return nil
}

func (r *stubWebhookEventRepo) MarkFailed(_ context.Context, id uint64, reason string) error {
	for _, e := range r.events {
		if e.ID == id {
			e.ProcessingError = reason
		}
	}
	return nil
}

func (r *stubWebhookEventRepo) ListUnprocessed(_ context.Context, limit int) ([]model.WebhookEvent, error) {
	var out []model.WebhookEvent
	for _, e := range r.events {
		if e.ProcessedAt == nil && len(out) < limit {
			out = append(out, *e)
		}
	}
	return out, nil
}

// ── In-memory AttributionRepository stub ──────────────────────────────────────

type stubAttributionRepo struct {
	objects     map[int64]*model.EstimateObject
	franchises  map[int64]*int64 // object → franchise
	certObjects map[string]int64
	facts       map[string][]repository.FranchiseFacts
	clients     map[int64]*model.Client

	franchiseByObjectCalls int
}

func newStubAttributionRepo() *stubAttributionRepo {
	return &stubAttributionRepo{
		objects:     make(map[int64]*model.EstimateObject),
		franchises:  make(map[int64]*int64),
		certObjects: make(map[string]int64),
		facts:       make(map[string][]repository.FranchiseFacts),
		clients:     make(map[int64]*model.Client),
	}
}

func (r *stubAttributionRepo) FindObject(_ context.Context, objectID int64) (*model.EstimateObject, error) {
	o, ok := r.objects[objectID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return o, nil
}

func (r *stubAttributionRepo) FranchiseByObject(_ context.Context, objectID int64) (*int64, error) {
	r.franchiseByObjectCalls++
	id, ok := r.franchises[objectID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return id, nil
}

func (r *stubAttributionRepo) ObjectByCertificate(_ context.Context, code string) (int64, error) {
	objectID, ok := r.certObjects[code]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return objectID, nil
}

func (r *stubAttributionRepo) FindFranchise(_ context.Context, franchiseID int64) (*model.Franchise, error) {
	return &model.Franchise{ID: franchiseID, Name: "Franchise", IsActive: true}, nil
}

func (r *stubAttributionRepo) ClientByObject(_ context.Context, objectID int64) (*model.Client, error) {
	c, ok := r.clients[objectID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *stubAttributionRepo) ClassifierFacts(_ context.Context, _ *gorm.DB, transactionID string) ([]repository.FranchiseFacts, error) {
	return r.facts[transactionID], nil
}

// ── Dispatcher stub ───────────────────────────────────────────────────────────

type stubDispatcher struct {
	receipts      []worker.ReceiptJobPayload
	notifications []worker.NotifyJobPayload
}

func (d *stubDispatcher) EnqueueReceipt(_ context.Context, p worker.ReceiptJobPayload) error {
	d.receipts = append(d.receipts, p)
	return nil
}

func (d *stubDispatcher) EnqueueNotification(_ context.Context, p worker.NotifyJobPayload) error {
	d.notifications = append(d.notifications, p)
	return nil
}

// compile-time interface checks
var (
	_ repository.TransactionRepository  = (*stubTransactionRepo)(nil)
	_ repository.CertificateRepository  = (*stubCertificateRepo)(nil)
	_ repository.StatusRepository       = (*stubStatusRepo)(nil)
	_ repository.WebhookEventRepository = (*stubWebhookEventRepo)(nil)
	_ repository.AttributionRepository  = (*stubAttributionRepo)(nil)
	_ Dispatcher                        = (*stubDispatcher)(nil)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }
