package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStatementPDF(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "statements")
	closedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	path, err := GenerateStatementPDF(&Statement{
		CertificateCode: "C1",
		CertificateNum:  3,
		Status:          "COMPLETED_PAID",
		Billing:         decimal.NewFromInt(1000),
		Closed:          decimal.NewFromInt(1000),
		Identified:      decimal.NewFromInt(1000),
		Prepayment:      decimal.Zero,
		Lines: []StatementLine{
			{TransactionID: "t1", PaymentType: "acquiring", Provider: "yookassa", Amount: decimal.NewFromInt(1000), Identified: true, ClosedAt: &closedAt},
		},
		GeneratedAt: closedAt,
	}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "statement_C1.pdf"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(b[:4]))
}
