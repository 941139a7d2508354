package infra

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"payhub/internal/config"

	"github.com/shopspring/decimal"
)

// Provider names as stored in Transaction.Provider.
const (
	ProviderYooKassa = "yookassa"
	ProviderSber     = "sber"
)

// Normalized webhook event kinds.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentCanceled  = "payment.canceled"
)

// Order status codes reported by GetOrderStatus.
const (
	OrderStatusUnknown   = -1
	OrderStatusPending   = 0
	OrderStatusPaid      = 2
	OrderStatusCancelled = 6
)

var (
	// ErrUntrustedSource is returned by DecodeWebhook for senders outside the provider's networks.
	ErrUntrustedSource = errors.New("webhook from untrusted source")
	// ErrMalformedWebhook is returned for bodies that cannot be decoded.
	ErrMalformedWebhook = errors.New("malformed webhook")
)

type OrderRequest struct {
	Merchant      config.Merchant
	TransactionID string // correlation id, echoed back by the provider
	Amount        decimal.Decimal
	Description   string
	ReturnURL     string
}

type Order struct {
	ID  string
	URL string
}

type OrderStatus struct {
	OrderID string
	Status  int
}

// WebhookRequest is the raw notification as received by the HTTP layer.
type WebhookRequest struct {
	RemoteIP string
	Merchant string // merchant name from the callback route
	Body     []byte
	Form     url.Values
}

// Webhook is a decoded provider notification.
type Webhook struct {
	EventID       string // unique per provider, used for deduplication
	Event         string
	TransactionID string
	OrderID       string
	Merchant      string
}

// PaymentProvider is implemented by each acquiring adapter.
type PaymentProvider interface {
	Name() string
	RegisterOrder(ctx context.Context, req OrderRequest) (*Order, error)
	GetOrderStatus(ctx context.Context, merchant config.Merchant, orderID string) (*OrderStatus, error)
	DecodeWebhook(ctx context.Context, req WebhookRequest) (*Webhook, error)
}

// Providers indexes adapters by name.
type Providers map[string]PaymentProvider

func NewProviders(ps ...PaymentProvider) Providers {
	out := make(Providers, len(ps))
	for _, p := range ps {
		out[p.Name()] = p
	}
	return out
}

func (p Providers) Get(name string) (PaymentProvider, error) {
	if pp, ok := p[name]; ok {
		return pp, nil
	}
	return nil, fmt.Errorf("unknown payment provider %q", name)
}

// ── Trusted networks ──────────────────────────────────────────────────────────

type trustedNetworks []netip.Prefix

func parseNetworks(cidrs []string) (trustedNetworks, error) {
	out := make(trustedNetworks, 0, len(cidrs))
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !strings.Contains(c, "/") {
			addr, err := netip.ParseAddr(c)
			if err != nil {
				return nil, fmt.Errorf("trusted network %q: %w", c, err)
			}
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(c)
		if err != nil {
			return nil, fmt.Errorf("trusted network %q: %w", c, err)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

// Contains reports whether ip lies in one of the networks. An empty list trusts nobody.
func (t trustedNetworks) Contains(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range t {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
