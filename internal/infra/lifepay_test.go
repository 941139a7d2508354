package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"payhub/internal/apierror"
	"payhub/internal/config"
	"payhub/internal/receipt"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lifePayMerchants() config.Merchants {
	m := config.Merchant{Name: "domeo_mart", FranchiseID: 1}
	m.LifePay.Login = "79990000000"
	m.LifePay.APIKey = "key-1"
	return config.Merchants{m}
}

func testPayload() *receipt.Payload {
	return &receipt.Payload{
		Merchant:  "domeo_mart",
		OrderID:   "t1",
		Operation: receipt.OperationSell,
		Customer:  receipt.Customer{Name: "Petrov Ivan", Email: "ivan@example.com"},
		Lines: []receipt.Line{{
			Name:     "Advance under contract 11",
			Price:    decimal.NewFromInt(400),
			Quantity: 1,
			Supplier: &receipt.Supplier{INN: "7801234567", Name: "SPB Renovation"},
		}},
		WithAgent: true,
	}
}

func TestLifePay_SubmitReceipt(t *testing.T) {
	var got lifePayReceiptRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create-receipt", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"code":0,"message":"ok","data":{"uuid":"rcpt-1"}}`))
	}))
	defer srv.Close()

	c := NewLifePayClient(srv.URL+"/", "https://payhub.example/webhooks/lifepay", lifePayMerchants())
	id, err := c.SubmitReceipt(context.Background(), testPayload())
	require.NoError(t, err)
	assert.Equal(t, "rcpt-1", id)

	assert.Equal(t, "key-1", got.APIKey)
	assert.Equal(t, "79990000000", got.Login)
	assert.Equal(t, 1, got.Type)
	assert.Equal(t, "t1", got.ExtID)
	assert.Equal(t, "https://payhub.example/webhooks/lifepay/t1", got.CallbackURL)
	require.Len(t, got.Purchase.Products, 1)
	assert.Equal(t, "400.00", got.Purchase.Products[0].Price)
	assert.Equal(t, 6, got.Purchase.Products[0].AgentType)
	assert.Equal(t, "7801234567", got.Purchase.Products[0].Supplier.INN)
}

func TestLifePay_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusInternalServerError, `oops`},
		{"api error code", http.StatusOK, `{"code":12,"message":"bad apikey"}`},
		{"garbage body", http.StatusOK, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewLifePayClient(srv.URL+"/", "", lifePayMerchants())
			_, err := c.SubmitReceipt(context.Background(), testPayload())
			require.Error(t, err)
			assert.True(t, apierror.Is(err, apierror.KindProvider))
		})
	}
}

func TestLifePay_UnknownMerchant(t *testing.T) {
	c := NewLifePayClient("http://127.0.0.1:1/", "", nil)
	p := testPayload()
	_, err := c.SubmitReceipt(context.Background(), p)
	assert.True(t, apierror.Is(err, apierror.KindAttribution))
}

func TestLifePay_RefundType(t *testing.T) {
	c := NewLifePayClient("", "", lifePayMerchants())
	p := testPayload()
	p.Operation = receipt.OperationSellRefund
	p.WithAgent = false

	m, _ := lifePayMerchants().ByName("domeo_mart")
	r := c.buildRequest(m, p)
	assert.Equal(t, 2, r.Type)
	assert.Empty(t, r.CallbackURL)
	assert.Zero(t, r.Purchase.Products[0].AgentType)
}
