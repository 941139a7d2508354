package infra

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"payhub/internal/config"

	"github.com/shopspring/decimal"
)

type sberRegisterResponse struct {
	OrderID      string `json:"orderId"`
	FormURL      string `json:"formUrl"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type sberStatusResponse struct {
	OrderStatus  *int   `json:"orderStatus"`
	OrderNumber  string `json:"orderNumber"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// SberClient talks to the Sber acquiring REST gateway (register.do,
// getOrderStatusExtended.do) and decodes its callback notifications.
type SberClient struct {
	apiURL     string
	httpClient *http.Client
	trusted    trustedNetworks
	merchants  config.Merchants
}

func NewSberClient(apiURL string, trustedCIDRs []string, merchants config.Merchants) (*SberClient, error) {
	trusted, err := parseNetworks(trustedCIDRs)
	if err != nil {
		return nil, fmt.Errorf("sber: %w", err)
	}
	return &SberClient{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		trusted:    trusted,
		merchants:  merchants,
	}, nil
}

func (c *SberClient) Name() string { return ProviderSber }

var kopecks = decimal.NewFromInt(100)

func (c *SberClient) RegisterOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	form := url.Values{}
	form.Set("userName", req.Merchant.Sber.UserName)
	form.Set("password", req.Merchant.Sber.Password)
	form.Set("orderNumber", req.TransactionID)
	form.Set("amount", req.Amount.Mul(kopecks).Round(0).String())
	form.Set("returnUrl", req.ReturnURL)
	if req.Description != "" {
		form.Set("description", req.Description)
	}

	var out sberRegisterResponse
	if err := c.post(ctx, "/register.do", form, &out); err != nil {
		return nil, err
	}
	if out.ErrorCode != "" && out.ErrorCode != "0" {
		return nil, fmt.Errorf("sber: register rejected %s: %s", out.ErrorCode, out.ErrorMessage)
	}
	if out.OrderID == "" || out.FormURL == "" {
		return nil, fmt.Errorf("sber: register returned no order")
	}
	return &Order{ID: out.OrderID, URL: out.FormURL}, nil
}

func (c *SberClient) GetOrderStatus(ctx context.Context, merchant config.Merchant, orderID string) (*OrderStatus, error) {
	form := url.Values{}
	form.Set("userName", merchant.Sber.UserName)
	form.Set("password", merchant.Sber.Password)
	form.Set("orderId", orderID)

	var out sberStatusResponse
	if err := c.post(ctx, "/getOrderStatusExtended.do", form, &out); err != nil {
		return nil, err
	}
	if out.ErrorCode != "" && out.ErrorCode != "0" {
		return nil, fmt.Errorf("sber: status rejected %s: %s", out.ErrorCode, out.ErrorMessage)
	}
	status := OrderStatusUnknown
	if out.OrderStatus != nil {
		status = sberOrderStatus(*out.OrderStatus)
	}
	return &OrderStatus{OrderID: orderID, Status: status}, nil
}

// sberOrderStatus: 0 registered, 2 deposited, 3 reversed and 6 declined; the
// rest (holds, refunds, 3DS) are reported as unknown.
func sberOrderStatus(s int) int {
	switch s {
	case 0:
		return OrderStatusPending
	case 2:
		return OrderStatusPaid
	case 3, 6:
		return OrderStatusCancelled
	default:
		return OrderStatusUnknown
	}
}

// DecodeWebhook validates the callback source and, when the merchant has a
// callback token, its checksum.
func (c *SberClient) DecodeWebhook(_ context.Context, req WebhookRequest) (*Webhook, error) {
	if !c.trusted.Contains(req.RemoteIP) {
		return nil, fmt.Errorf("%w: %s", ErrUntrustedSource, req.RemoteIP)
	}

	params := req.Form
	mdOrder := params.Get("mdOrder")
	operation := params.Get("operation")
	if mdOrder == "" || operation == "" || params.Get("orderNumber") == "" {
		return nil, fmt.Errorf("%w: missing mdOrder, orderNumber or operation", ErrMalformedWebhook)
	}

	if m, ok := c.merchants.ByName(req.Merchant); ok && m.Sber.CallbackToken != "" {
		if !VerifySberChecksum(params, m.Sber.CallbackToken) {
			return nil, fmt.Errorf("%w: bad checksum", ErrUntrustedSource)
		}
	}

	return &Webhook{
		EventID:       mdOrder + ":" + operation,
		Event:         sberEvent(operation, params.Get("status")),
		TransactionID: params.Get("orderNumber"),
		OrderID:       mdOrder,
		Merchant:      req.Merchant,
	}, nil
}

func sberEvent(operation, status string) string {
	switch {
	case operation == "deposited" && status == "1":
		return EventPaymentSucceeded
	case operation == "declinedByTimeout", operation == "reversed":
		return EventPaymentCanceled
	default:
		return "sber." + operation
	}
}

// SberChecksum signs every parameter but checksum, sorted by name, as "k;v;"
// pairs with HMAC-SHA256, upper-case hex.
func SberChecksum(params url.Values, token string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k != "checksum" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(';')
		b.WriteString(params.Get(k))
		b.WriteByte(';')
	}
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

func VerifySberChecksum(params url.Values, token string) bool {
	got := strings.ToUpper(params.Get("checksum"))
	if got == "" {
		return false
	}
	return hmac.Equal([]byte(got), []byte(SberChecksum(params, token)))
}

func (c *SberClient) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sber: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sber: gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sber: gateway returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sber: decode response: %w", err)
	}
	return nil
}
