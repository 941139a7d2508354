package dto

type ManualReceiptRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,max=64"`
	Category      string `json:"category"       validate:"required,oneof=franchise contractor cash_prepayment"`
}

type ReceiptResponse struct {
	TransactionID string `json:"transaction_id"`
	ReceiptID     string `json:"receipt_id"`
}

// LifePayCallback is the `data` form field LifePay posts once a receipt is printed.
type LifePayCallback struct {
	UUID      string `json:"uuid"`
	OFDURL    string `json:"ofd_url"`
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
}
