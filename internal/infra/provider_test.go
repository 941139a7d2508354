package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"payhub/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrustedNetworks(t *testing.T) {
	nets, err := parseNetworks([]string{"185.71.76.0/27", "77.75.156.11", " ", "2a02:5180::/32"})
	require.NoError(t, err)

	assert.True(t, nets.Contains("185.71.76.5"))
	assert.True(t, nets.Contains("77.75.156.11"))
	assert.True(t, nets.Contains("::ffff:185.71.76.5"))
	assert.True(t, nets.Contains("2a02:5180::1"))
	assert.False(t, nets.Contains("185.71.76.40"))
	assert.False(t, nets.Contains("not-an-ip"))
	assert.False(t, trustedNetworks(nil).Contains("185.71.76.5"))

	_, err = parseNetworks([]string{"300.1.1.1/8"})
	assert.Error(t, err)
}

func yooKassaBody(t *testing.T, event string, metadata map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"type":  "notification",
		"event": event,
		"object": map[string]any{
			"id":       "2d5b8a3c-000f-5000-9000-1b3f3f1c0a11",
			"status":   "succeeded",
			"metadata": metadata,
		},
	})
	require.NoError(t, err)
	return b
}

func TestYooKassa_DecodeWebhook(t *testing.T) {
	c, err := NewYooKassaClient("https://api.example", config.DefaultYooKassaNetworks)
	require.NoError(t, err)
	ctx := context.Background()

	wh, err := c.DecodeWebhook(ctx, WebhookRequest{
		RemoteIP: "185.71.76.1",
		Merchant: "domeo_mart",
		Body:     yooKassaBody(t, EventPaymentSucceeded, map[string]any{"transaction_id": "t1"}),
	})
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, wh.Event)
	assert.Equal(t, "t1", wh.TransactionID)
	assert.Equal(t, "domeo_mart", wh.Merchant)
	assert.Equal(t, "2d5b8a3c-000f-5000-9000-1b3f3f1c0a11:payment.succeeded", wh.EventID)

	// metadata values may arrive as numbers
	wh, err = c.DecodeWebhook(ctx, WebhookRequest{
		RemoteIP: "185.71.76.1",
		Body:     yooKassaBody(t, EventPaymentSucceeded, map[string]any{"transaction_id": 1042, "merchant": "franchise_spb"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "1042", wh.TransactionID)
	assert.Equal(t, "franchise_spb", wh.Merchant)
}

func TestYooKassa_DecodeWebhookRejects(t *testing.T) {
	c, err := NewYooKassaClient("https://api.example", config.DefaultYooKassaNetworks)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.DecodeWebhook(ctx, WebhookRequest{RemoteIP: "10.0.0.1", Body: yooKassaBody(t, EventPaymentSucceeded, nil)})
	assert.ErrorIs(t, err, ErrUntrustedSource)

	_, err = c.DecodeWebhook(ctx, WebhookRequest{RemoteIP: "185.71.76.1", Body: []byte("{")})
	assert.ErrorIs(t, err, ErrMalformedWebhook)

	_, err = c.DecodeWebhook(ctx, WebhookRequest{RemoteIP: "185.71.76.1", Body: []byte(`{"event":""}`)})
	assert.ErrorIs(t, err, ErrMalformedWebhook)
}

func TestYooKassa_RegisterOrder(t *testing.T) {
	var got yooKassaPaymentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Idempotence-Key"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "1001", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           "pay-1",
			"status":       "pending",
			"confirmation": map[string]any{"type": "redirect", "confirmation_url": "https://yoomoney.example/checkout/pay-1"},
		})
	}))
	defer srv.Close()

	c, err := NewYooKassaClient(srv.URL, nil)
	require.NoError(t, err)

	m := config.Merchant{Name: "domeo_mart"}
	m.YooKassa.ShopID = "1001"
	m.YooKassa.SecretKey = "secret"

	order, err := c.RegisterOrder(context.Background(), OrderRequest{
		Merchant:      m,
		TransactionID: "t1",
		Amount:        decimal.RequireFromString("400.5"),
		Description:   "Payment for act No. 3",
		ReturnURL:     "https://domeo.example/",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay-1", order.ID)
	assert.Equal(t, "https://yoomoney.example/checkout/pay-1", order.URL)
	assert.Equal(t, "400.50", got.Amount.Value)
	assert.Equal(t, "t1", got.Metadata["transaction_id"])
	assert.True(t, got.Capture)
}

func TestYooKassa_ApiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","code":"invalid_credentials","description":"bad shop"}`))
	}))
	defer srv.Close()

	c, err := NewYooKassaClient(srv.URL, nil)
	require.NoError(t, err)
	_, err = c.GetOrderStatus(context.Background(), config.Merchant{}, "pay-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_credentials")
}

func TestOrderStatusMapping(t *testing.T) {
	assert.Equal(t, OrderStatusPending, yooKassaOrderStatus("pending"))
	assert.Equal(t, OrderStatusPaid, yooKassaOrderStatus("succeeded"))
	assert.Equal(t, OrderStatusCancelled, yooKassaOrderStatus("canceled"))
	assert.Equal(t, OrderStatusUnknown, yooKassaOrderStatus("waiting_for_capture"))

	assert.Equal(t, OrderStatusPaid, sberOrderStatus(2))
	assert.Equal(t, OrderStatusCancelled, sberOrderStatus(6))
	assert.Equal(t, OrderStatusUnknown, sberOrderStatus(1))
}

func sberMerchants() config.Merchants {
	m := config.Merchant{Name: "franchise_spb", FranchiseID: 42}
	m.Sber.CallbackToken = "token"
	return config.Merchants{m, {Name: "domeo_mart", FranchiseID: 1}}
}

func TestSber_DecodeWebhook(t *testing.T) {
	c, err := NewSberClient("https://sber.example", config.DefaultSberNetworks, sberMerchants())
	require.NoError(t, err)
	ctx := context.Background()

	form := url.Values{
		"mdOrder":     {"md-1"},
		"orderNumber": {"t1"},
		"operation":   {"deposited"},
		"status":      {"1"},
	}
	form.Set("checksum", SberChecksum(form, "token"))

	wh, err := c.DecodeWebhook(ctx, WebhookRequest{RemoteIP: "194.54.14.10", Merchant: "franchise_spb", Form: form})
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, wh.Event)
	assert.Equal(t, "t1", wh.TransactionID)
	assert.Equal(t, "md-1", wh.OrderID)
	assert.Equal(t, "md-1:deposited", wh.EventID)

	tampered := url.Values{}
	for k, v := range form {
		tampered[k] = v
	}
	tampered.Set("orderNumber", "t2")
	_, err = c.DecodeWebhook(ctx, WebhookRequest{RemoteIP: "194.54.14.10", Merchant: "franchise_spb", Form: tampered})
	assert.ErrorIs(t, err, ErrUntrustedSource)

	// merchants without a callback token are trusted on source address alone
	unsigned := url.Values{"mdOrder": {"md-2"}, "orderNumber": {"t3"}, "operation": {"reversed"}}
	wh, err = c.DecodeWebhook(ctx, WebhookRequest{RemoteIP: "194.54.14.10", Merchant: "domeo_mart", Form: unsigned})
	require.NoError(t, err)
	assert.Equal(t, EventPaymentCanceled, wh.Event)

	_, err = c.DecodeWebhook(ctx, WebhookRequest{RemoteIP: "8.8.8.8", Merchant: "domeo_mart", Form: unsigned})
	assert.ErrorIs(t, err, ErrUntrustedSource)

	_, err = c.DecodeWebhook(ctx, WebhookRequest{RemoteIP: "194.54.14.10", Merchant: "domeo_mart", Form: url.Values{"mdOrder": {"x"}}})
	assert.ErrorIs(t, err, ErrMalformedWebhook)
}

func TestSberChecksum_IsCaseInsensitive(t *testing.T) {
	form := url.Values{"mdOrder": {"md-1"}, "orderNumber": {"t1"}, "operation": {"approved"}}
	sum := SberChecksum(form, "token")
	assert.Len(t, sum, 64)
	assert.Equal(t, sum, SberChecksum(form, "token"))

	form.Set("checksum", sum)
	assert.True(t, VerifySberChecksum(form, "token"))
	assert.False(t, VerifySberChecksum(form, "other"))

	lower := url.Values{}
	for k, v := range form {
		lower[k] = v
	}
	lower.Set("checksum", "abc")
	assert.False(t, VerifySberChecksum(lower, "token"))
}

func TestProviders_Get(t *testing.T) {
	yk, err := NewYooKassaClient("https://api.example", nil)
	require.NoError(t, err)
	ps := NewProviders(yk)

	p, err := ps.Get(ProviderYooKassa)
	require.NoError(t, err)
	assert.Equal(t, ProviderYooKassa, p.Name())

	_, err = ps.Get(ProviderSber)
	assert.Error(t, err)
}
