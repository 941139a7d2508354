package infra

// pdf.go: settlement statement generation using go-pdf/fpdf.
// One A4 page per certificate:
//   - Header with certificate code, number and final status
//   - Billed / closed / identified / prepayment totals
//   - Table of the settling transactions
//
// The output file is saved to storagePath/statement_{code}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

type StatementLine struct {
	TransactionID string
	PaymentType   string
	Provider      string
	Amount        decimal.Decimal
	Identified    bool
	ClosedAt      *time.Time
}

// Statement is the settlement summary of a fully paid certificate.
type Statement struct {
	CertificateCode string
	CertificateNum  int
	Status          string
	Billing         decimal.Decimal
	Closed          decimal.Decimal
	Identified      decimal.Decimal
	Prepayment      decimal.Decimal
	Lines           []StatementLine
	GeneratedAt     time.Time
}

// GenerateStatementPDF writes the statement and returns the path of the file.
func GenerateStatementPDF(s *Statement, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	filePath := filepath.Join(storagePath, fmt.Sprintf("statement_%s.pdf", s.CertificateCode))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, "Settlement statement", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Certificate %s (No. %d)", s.CertificateCode, s.CertificateNum), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 6, "Status: "+s.Status, "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 6, "Generated: "+s.GeneratedAt.Format("02.01.2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// ── Totals ───────────────────────────────────────────────────────────────
	totals := []struct {
		label string
		value decimal.Decimal
	}{
		{"Billed", s.Billing},
		{"Closed", s.Closed},
		{"Identified", s.Identified},
		{"Prepayment", s.Prepayment},
	}
	for _, t := range totals {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(contentW*0.3, 6, t.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW*0.3, 6, t.value.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// ── Transactions ─────────────────────────────────────────────────────────
	widths := []float64{contentW * 0.36, contentW * 0.16, contentW * 0.14, contentW * 0.14, contentW * 0.2}
	headers := []string{"Transaction", "Type", "Provider", "Amount", "Closed"}
	pdf.SetFont("Helvetica", "B", 8)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, l := range s.Lines {
		closed := ""
		if l.ClosedAt != nil {
			closed = l.ClosedAt.Format("02.01.2006 15:04")
		}
		pdf.CellFormat(widths[0], 5, l.TransactionID, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 5, l.PaymentType, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 5, l.Provider, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 5, l.Amount.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 5, closed, "", 1, "L", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
