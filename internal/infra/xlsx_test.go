package infra

import (
	"bytes"
	"testing"
	"time"

	"payhub/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteTransactionsXLSX(t *testing.T) {
	closedAt := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	receiptURL := "https://ofd.example/r/1"
	rows := []model.Transaction{
		{
			ID: "t1", PaymentType: model.PaymentTypeAcquiring, TransactionTypeCode: model.TypeCertificatePayment,
			Amount: decimal.NewFromInt(400), Fee: decimal.RequireFromString("11.2"), Provider: ProviderYooKassa,
			IsActive: true, IsClosed: true, IsIdentify: true,
			CreatedAt: closedAt.Add(-time.Hour), ClosedAt: &closedAt, Receipt: &receiptURL,
		},
		{ID: "t2", PaymentType: model.PaymentTypeBilling, Amount: decimal.NewFromInt(1000), CreatedAt: closedAt},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsXLSX(&buf, "C1", rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	code, err := f.GetCellValue("Transactions", "B1")
	require.NoError(t, err)
	assert.Equal(t, "C1", code)

	header, _ := f.GetCellValue("Transactions", "A3")
	assert.Equal(t, "Transaction", header)

	id, _ := f.GetCellValue("Transactions", "A4")
	assert.Equal(t, "t1", id)
	closed, _ := f.GetCellValue("Transactions", "K4")
	assert.Equal(t, "01.03.2026 12:30", closed)
	ofd, _ := f.GetCellValue("Transactions", "L4")
	assert.Equal(t, receiptURL, ofd)

	second, _ := f.GetCellValue("Transactions", "A5")
	assert.Equal(t, "t2", second)
	assert.Equal(t, []string{"Transactions"}, f.GetSheetList())
}
