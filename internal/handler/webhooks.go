package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"payhub/internal/apierror"
	"payhub/internal/dto"
	"payhub/internal/infra"
	"payhub/internal/middleware"
	"payhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// WebhooksHandler receives provider notifications. Every notification is
// acknowledged with 200 except untrusted senders (400) and transient faults
// (500), which the provider redelivers.
type WebhooksHandler struct {
	providers  infra.Providers
	settlement service.SettlementService
	receipts   service.ReceiptService
}

func NewWebhooksHandler(providers infra.Providers, settlement service.SettlementService, receipts service.ReceiptService) *WebhooksHandler {
	return &WebhooksHandler{providers: providers, settlement: settlement, receipts: receipts}
}

// YooKassa godoc
// @Summary      YooKassa payment notification
// @Tags         webhooks
// @Accept       json
// @Param        merchant path string true "Merchant name"
// @Success      200
// @Failure      400 {object} apierror.APIError
// @Router       /webhooks/yookassa/{merchant} [post]
func (h *WebhooksHandler) YooKassa(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("cannot read body"))
		return
	}
	h.handle(c, infra.ProviderYooKassa, infra.WebhookRequest{
		RemoteIP: c.ClientIP(),
		Merchant: c.Param("merchant"),
		Body:     body,
	}, body)
}

// Sber godoc
// @Summary      Sber callback notification
// @Tags         webhooks
// @Param        merchant path string true "Merchant name"
// @Success      200
// @Failure      400 {object} apierror.APIError
// @Router       /webhooks/sber/{merchant} [get]
func (h *WebhooksHandler) Sber(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("malformed callback parameters"))
		return
	}
	form := c.Request.Form
	payload, _ := json.Marshal(form)
	h.handle(c, infra.ProviderSber, infra.WebhookRequest{
		RemoteIP: c.ClientIP(),
		Merchant: c.Param("merchant"),
		Form:     form,
	}, payload)
}

func (h *WebhooksHandler) handle(c *gin.Context, providerName string, req infra.WebhookRequest, payload []byte) {
	logger := log.With().
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("provider", providerName).
		Str("merchant", req.Merchant).
		Logger()

	provider, err := h.providers.Get(providerName)
	if err != nil {
		logger.Error().Err(err).Msg("webhook: provider not configured")
		c.Status(http.StatusOK)
		return
	}

	wh, err := provider.DecodeWebhook(c.Request.Context(), req)
	switch {
	case errors.Is(err, infra.ErrUntrustedSource):
		logger.Warn().Err(err).Str("remote_ip", req.RemoteIP).Msg("webhook: rejected untrusted sender")
		c.JSON(http.StatusBadRequest, apierror.New("untrusted source"))
		return
	case err != nil:
		logger.Warn().Err(err).Msg("webhook: malformed notification acknowledged")
		c.Status(http.StatusOK)
		return
	}

	res, err := h.settlement.ApplyPayment(c.Request.Context(), service.PaymentEvent{
		Provider:      providerName,
		EventID:       wh.EventID,
		Event:         wh.Event,
		TransactionID: wh.TransactionID,
		OrderID:       wh.OrderID,
		Merchant:      wh.Merchant,
		Payload:       payload,
	})
	if err != nil {
		kind := apierror.KindOf(err)
		logger.Error().Err(err).
			Str("kind", kind.String()).
			Str("transaction_id", wh.TransactionID).
			Msg("webhook: event not applied")
		if kind == apierror.KindInternal {
			c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
			return
		}
		c.Status(http.StatusOK)
		return
	}

	logger.Info().
		Str("transaction_id", wh.TransactionID).
		Str("event", wh.Event).
		Str("outcome", res.Outcome.String()).
		Msg("webhook: processed")
	c.Status(http.StatusOK)
}

// LifePay godoc
// @Summary      Receipt provider callback
// @Description  Attaches the OFD url of a printed receipt to its transaction.
// @Tags         webhooks
// @Param        transaction_id path string true "Transaction id"
// @Success      200
// @Router       /webhooks/lifepay/{transaction_id} [post]
func (h *WebhooksHandler) LifePay(c *gin.Context) {
	transactionID := c.Param("transaction_id")

	var cb dto.LifePayCallback
	raw := c.PostForm("data")
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &cb); err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("malformed data field"))
			return
		}
	} else if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("malformed callback body"))
		return
	}

	if err := h.receipts.AttachReceiptURL(c.Request.Context(), transactionID, cb); err != nil {
		log.Warn().Err(err).Str("transaction_id", transactionID).Msg("webhook: receipt callback not applied")
		if apierror.KindOf(err) == apierror.KindInternal {
			c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
			return
		}
	}
	c.Status(http.StatusOK)
}
