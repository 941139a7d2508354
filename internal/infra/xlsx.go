package infra

import (
	"fmt"
	"io"

	"payhub/internal/model"

	"github.com/xuri/excelize/v2"
)

var transactionColumns = []string{
	"Transaction", "Payment type", "Type", "Amount", "Fee", "Provider",
	"Active", "Closed", "Identified", "Created", "Closed at", "Receipt",
}

// WriteTransactionsXLSX renders the transactions of one certificate as a workbook.
func WriteTransactionsXLSX(w io.Writer, code string, rows []model.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Transactions"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("xlsx: new sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(sheet, "A1", "Certificate")
	_ = f.SetCellValue(sheet, "B1", code)

	for i, h := range transactionColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, t := range rows {
		row := i + 4
		amount, _ := t.Amount.Float64()
		fee, _ := t.Fee.Float64()
		values := []any{
			t.ID, t.PaymentType, t.TransactionTypeCode, amount, fee, t.Provider,
			t.IsActive, t.IsClosed, t.IsIdentify, t.CreatedAt.Format("02.01.2006 15:04"),
			"", "",
		}
		if t.ClosedAt != nil {
			values[10] = t.ClosedAt.Format("02.01.2006 15:04")
		}
		if t.Receipt != nil {
			values[11] = *t.Receipt
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}
