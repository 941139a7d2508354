package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payhub/internal/apierror"
	"payhub/internal/config"
	"payhub/internal/receipt"

	"github.com/valyala/fasthttp"
)

type lifePaySupplier struct {
	INN   string `json:"inn"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type lifePayProduct struct {
	Name      string           `json:"name"`
	Price     string           `json:"price"`
	Quantity  int              `json:"quantity"`
	Tax       string           `json:"tax"`
	Supplier  *lifePaySupplier `json:"supplier_info,omitempty"`
	AgentType int              `json:"agent_type,omitempty"` // 6: sold as agent
}

type lifePayReceiptRequest struct {
	APIKey        string `json:"apikey"`
	Login         string `json:"login"`
	Type          int    `json:"type"` // 1 sell, 2 sell refund
	Mode          string `json:"mode"`
	ExtID         string `json:"ext_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CallbackURL   string `json:"callback_url,omitempty"`
	Purchase      struct {
		Products []lifePayProduct `json:"products"`
	} `json:"purchase"`
}

type lifePayResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		UUID string `json:"uuid"`
	} `json:"data"`
}

// LifePayClient submits fiscal receipts to the LifePay cloud-print API.
type LifePayClient struct {
	apiURL      string
	callbackURL string // base url; the transaction id is appended
	merchants   config.Merchants
	client      *fasthttp.Client
	timeout     time.Duration
}

func NewLifePayClient(apiURL, callbackURL string, merchants config.Merchants) *LifePayClient {
	return &LifePayClient{
		apiURL:      apiURL,
		callbackURL: callbackURL,
		merchants:   merchants,
		client:      &fasthttp.Client{Name: "payhub"},
		timeout:     30 * time.Second,
	}
}

// SubmitReceipt implements receipt.Submitter.
func (c *LifePayClient) SubmitReceipt(ctx context.Context, p *receipt.Payload) (string, error) {
	merchant, ok := c.merchants.ByName(p.Merchant)
	if !ok {
		return "", apierror.Attribution("lifepay: merchant %q is not configured", p.Merchant)
	}

	body, err := json.Marshal(c.buildRequest(merchant, p))
	if err != nil {
		return "", fmt.Errorf("lifepay: marshal payload: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.apiURL + "create-receipt")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json; charset=utf-8")
	req.SetBody(body)

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return "", apierror.Provider(err, "lifepay: service unreachable")
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return "", apierror.Provider(nil, "lifepay: service returned %d", resp.StatusCode())
	}

	var out lifePayResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", apierror.Provider(err, "lifepay: decode response")
	}
	if out.Code != 0 {
		return "", apierror.Provider(nil, "lifepay: %d: %s", out.Code, out.Message)
	}
	return out.Data.UUID, nil
}

func (c *LifePayClient) buildRequest(m config.Merchant, p *receipt.Payload) lifePayReceiptRequest {
	r := lifePayReceiptRequest{
		APIKey:        m.LifePay.APIKey,
		Login:         m.LifePay.Login,
		Type:          1,
		Mode:          "email",
		ExtID:         p.OrderID,
		CustomerName:  p.Customer.Name,
		CustomerPhone: p.Customer.Phone,
		CustomerEmail: p.Customer.Email,
	}
	if p.Operation == receipt.OperationSellRefund {
		r.Type = 2
	}
	if c.callbackURL != "" {
		r.CallbackURL = c.callbackURL + "/" + p.OrderID
	}
	for _, l := range p.Lines {
		prod := lifePayProduct{
			Name:     l.Name,
			Price:    l.Price.StringFixed(2),
			Quantity: l.Quantity,
			Tax:      "none",
		}
		if l.Supplier != nil {
			prod.Supplier = &lifePaySupplier{INN: l.Supplier.INN, Name: l.Supplier.Name, Phone: l.Supplier.Phone}
		}
		if p.WithAgent {
			prod.AgentType = 6
		}
		r.Purchase.Products = append(r.Purchase.Products, prod)
	}
	return r
}
