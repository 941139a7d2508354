package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"payhub/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB returns a private in-memory sqlite database with the payment schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Transaction{},
		&model.CertificateStatus{},
		&model.WebhookEvent{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestStatusRepository_Transition(t *testing.T) {
	db := openTestDB(t)
	repo := NewStatusRepository(db)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	changed, err := repo.Transition(ctx, nil, "C1", model.StatusReadyToPay, 0, t0)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Transition(ctx, nil, "C1", model.StatusReadyToPay, 0, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed, "same status must not append a row")

	changed, err = repo.Transition(ctx, nil, "C1", model.StatusPartiallyPaid, 7, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)

	history, err := repo.History(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.StatusReadyToPay, history[0].StatusID)
	assert.True(t, history[0].DateEnd.Equal(t0.Add(time.Hour)))
	assert.Equal(t, model.StatusPartiallyPaid, history[1].StatusID)
	assert.Equal(t, int64(7), history[1].UserID)

	cur, err := repo.Current(ctx, nil, "C1")
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, model.StatusPartiallyPaid, cur.StatusID)

	none, err := repo.Current(ctx, nil, "C2")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = repo.Transition(ctx, nil, "C1", model.StatusNone, 0, t0)
	assert.Error(t, err)
}

func TestStatusRepository_TransitionsAtSameInstant(t *testing.T) {
	db := openTestDB(t)
	repo := NewStatusRepository(db)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, status := range []model.CertificateStatusID{
		model.StatusReadyToPay,
		model.StatusPartiallyPaid,
		model.StatusCompletedPaid,
	} {
		changed, err := repo.Transition(ctx, nil, "C1", status, 0, t0)
		require.NoError(t, err)
		assert.True(t, changed)
	}

	history, err := repo.History(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].DateEnd.Equal(t0))
	assert.True(t, history[1].DateEnd.Equal(t0), "closed rows may share an end timestamp")
	assert.True(t, history[2].DateEnd.Equal(model.OpenEnd))
}

func TestWebhookEventRepository_RecordDeduplicates(t *testing.T) {
	db := openTestDB(t)
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	event := func() *model.WebhookEvent {
		return &model.WebhookEvent{
			Provider:        "yookassa",
			ProviderEventID: "ord-1:payment.succeeded",
			EventType:       "payment.succeeded",
			TransactionID:   "t1",
			Payload:         datatypes.JSON(`{"event":"payment.succeeded"}`),
		}
	}

	first := event()
	created, err := repo.Record(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotZero(t, first.ID)

	require.NoError(t, repo.MarkFailed(ctx, first.ID, "attribution missing"))

	again := event()
	created, err = repo.Record(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "attribution missing", again.ProcessingError)
	assert.Nil(t, again.ProcessedAt)

	pending, err := repo.ListUnprocessed(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, repo.MarkProcessed(ctx, first.ID, time.Now()))
	pending, err = repo.ListUnprocessed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTransactionRepository_CloseOnce(t *testing.T) {
	db := openTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, nil, &model.Transaction{
		ID:                  "t1",
		PaymentType:         model.PaymentTypeAcquiring,
		TransactionTypeCode: model.TypeCertificatePayment,
		EntityType:          model.EntityAct,
		EntityCode:          "C1",
		Amount:              decimal.NewFromInt(400),
		Fee:                 decimal.Zero,
		CreatedAt:           now,
	}))
	require.NoError(t, repo.SetOrder(ctx, "t1", "ord-1", "https://pay.example/ord-1"))

	byOrder, err := repo.FindByOrderID(ctx, "ord-1")
	require.NoError(t, err)
	assert.True(t, byOrder.IsActive)

	require.NoError(t, repo.MarkClosed(ctx, nil, "t1", decimal.NewFromInt(8), now.Add(time.Minute)))
	err = repo.MarkClosed(ctx, nil, "t1", decimal.NewFromInt(8), now.Add(2*time.Minute))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	closed, err := repo.FindByID(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, closed.IsClosed)
	assert.True(t, closed.IsIdentify)
	assert.True(t, decimal.NewFromInt(8).Equal(closed.Fee))

	latest, err := repo.LatestClosedForCertificate(ctx, nil, "C1")
	require.NoError(t, err)
	assert.Equal(t, "t1", latest.ID)

	// a closed transaction cannot be cancelled
	require.NoError(t, repo.Cancel(ctx, "t1", now))
	rows, err := repo.ListByCertificate(ctx, nil, "C1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	found, err := repo.SetReceiptURL(ctx, "t1", "https://ofd.example/r/1")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = repo.SetReceiptURL(ctx, "nope", "https://ofd.example/r/2")
	require.NoError(t, err)
	assert.False(t, found)
}
