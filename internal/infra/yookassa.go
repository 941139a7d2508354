package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"payhub/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// yooKassaPaymentRequest is the body of POST /payments.
type yooKassaPaymentRequest struct {
	Amount       yooKassaAmount       `json:"amount"`
	Confirmation yooKassaConfirmation `json:"confirmation"`
	Capture      bool                 `json:"capture"`
	Description  string               `json:"description,omitempty"`
	Metadata     map[string]string    `json:"metadata"`
}

type yooKassaAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type yooKassaConfirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type yooKassaPayment struct {
	ID           string               `json:"id"`
	Status       string               `json:"status"` // pending | waiting_for_capture | succeeded | canceled
	Confirmation yooKassaConfirmation `json:"confirmation"`
	Metadata     map[string]any       `json:"metadata"`
}

type yooKassaError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yooKassaNotification struct {
	Type   string          `json:"type"`
	Event  string          `json:"event"`
	Object yooKassaPayment `json:"object"`
}

// YooKassaClient talks to the YooKassa REST API v3. Credentials are per merchant
// (basic auth shop_id:secret_key).
type YooKassaClient struct {
	apiURL     string
	httpClient *http.Client
	trusted    trustedNetworks
}

func NewYooKassaClient(apiURL string, trustedCIDRs []string) (*YooKassaClient, error) {
	trusted, err := parseNetworks(trustedCIDRs)
	if err != nil {
		return nil, fmt.Errorf("yookassa: %w", err)
	}
	return &YooKassaClient{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		trusted:    trusted,
	}, nil
}

func (c *YooKassaClient) Name() string { return ProviderYooKassa }

// RegisterOrder creates a payment with redirect confirmation and returns its id
// and confirmation url.
func (c *YooKassaClient) RegisterOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(yooKassaPaymentRequest{
		Amount:       yooKassaAmount{Value: req.Amount.StringFixed(2), Currency: "RUB"},
		Confirmation: yooKassaConfirmation{Type: "redirect", ReturnURL: req.ReturnURL},
		Capture:      true,
		Description:  req.Description,
		Metadata: map[string]string{
			"transaction_id": req.TransactionID,
			"merchant":       req.Merchant.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("yookassa: marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("yookassa: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", uuid.NewString())
	httpReq.SetBasicAuth(req.Merchant.YooKassa.ShopID, req.Merchant.YooKassa.SecretKey)

	var payment yooKassaPayment
	if err := c.do(httpReq, &payment); err != nil {
		return nil, err
	}
	if payment.ID == "" || payment.Confirmation.ConfirmationURL == "" {
		return nil, fmt.Errorf("yookassa: payment without id or confirmation url")
	}
	return &Order{ID: payment.ID, URL: payment.Confirmation.ConfirmationURL}, nil
}

func (c *YooKassaClient) GetOrderStatus(ctx context.Context, merchant config.Merchant, orderID string) (*OrderStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/payments/"+orderID, nil)
	if err != nil {
		return nil, fmt.Errorf("yookassa: create request: %w", err)
	}
	httpReq.SetBasicAuth(merchant.YooKassa.ShopID, merchant.YooKassa.SecretKey)

	var payment yooKassaPayment
	if err := c.do(httpReq, &payment); err != nil {
		return nil, err
	}
	return &OrderStatus{OrderID: payment.ID, Status: yooKassaOrderStatus(payment.Status)}, nil
}

// yooKassaOrderStatus maps payment states onto the acquiring order status codes.
func yooKassaOrderStatus(s string) int {
	switch s {
	case "pending":
		return OrderStatusPending
	case "succeeded":
		return OrderStatusPaid
	case "canceled":
		return OrderStatusCancelled
	default:
		return OrderStatusUnknown
	}
}

// DecodeWebhook validates the sender and decodes a payment notification.
func (c *YooKassaClient) DecodeWebhook(_ context.Context, req WebhookRequest) (*Webhook, error) {
	if !c.trusted.Contains(req.RemoteIP) {
		return nil, fmt.Errorf("%w: %s", ErrUntrustedSource, req.RemoteIP)
	}

	var n yooKassaNotification
	if err := json.Unmarshal(req.Body, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if n.Event == "" || n.Object.ID == "" {
		return nil, fmt.Errorf("%w: missing event or payment id", ErrMalformedWebhook)
	}

	merchant := cast.ToString(n.Object.Metadata["merchant"])
	if merchant == "" {
		merchant = req.Merchant
	}
	return &Webhook{
		EventID:       n.Object.ID + ":" + n.Event,
		Event:         n.Event,
		TransactionID: cast.ToString(n.Object.Metadata["transaction_id"]),
		OrderID:       n.Object.ID,
		Merchant:      merchant,
	}, nil
}

func (c *YooKassaClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("yookassa: api unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr yooKassaError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("yookassa: api returned %d: %s %s", resp.StatusCode, apiErr.Code, apiErr.Description)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("yookassa: decode response: %w", err)
	}
	return nil
}
