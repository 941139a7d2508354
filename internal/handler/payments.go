package handler

import (
	"net/http"

	"payhub/internal/apierror"
	"payhub/internal/dto"
	"payhub/internal/middleware"
	"payhub/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentsHandler struct{ svc service.PaymentService }

func NewPaymentsHandler(svc service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{svc: svc}
}

// Create godoc
// @Summary      Create a payment intent
// @Description  Creates an inactive transaction; the payment link is registered on first visit.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreatePaymentRequest true "Payment"
// @Success      201  {object} dto.TransactionResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/payments [post]
func (h *PaymentsHandler) Create(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	op := service.Operator{ID: claims.UserID, FranchiseID: claims.FranchiseID}

	resp, err := h.svc.Create(c.Request.Context(), op, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List transactions
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        entity_code query string false "Certificate or object code"
// @Param        object_id   query int    false "Object id"
// @Param        status      query string false "open | closed | cancelled | all"
// @Param        page        query int    false "Page (default 1)"
// @Param        limit       query int    false "Page size (default 50)"
// @Success      200 {object} dto.TransactionListResponse
// @Router       /v1/payments [get]
func (h *PaymentsHandler) List(c *gin.Context) {
	var filter dto.TransactionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	if err := validate.Struct(filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentsHandler) Get(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Deactivate godoc
// @Summary      Cancel an unpaid transaction
// @Tags         payments
// @Security     BearerAuth
// @Param        id path string true "Transaction id"
// @Success      204
// @Failure      409 {object} apierror.APIError
// @Router       /v1/payments/{id} [delete]
func (h *PaymentsHandler) Deactivate(c *gin.Context) {
	if err := h.svc.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// OrderStatus godoc
// @Summary      Provider order status
// @Description  0 pending, 2 paid, 6 cancelled, -1 anything else.
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Transaction id"
// @Success      200 {object} dto.OrderStatusResponse
// @Failure      502 {object} apierror.APIError
// @Router       /v1/payments/{id}/status [get]
func (h *PaymentsHandler) OrderStatus(c *gin.Context) {
	resp, err := h.svc.OrderStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegisterLink godoc
// @Summary      Payment link
// @Description  Registers the provider order on first call and returns its confirmation url.
// @Tags         payments
// @Produce      json
// @Param        id path string true "Transaction id"
// @Success      201 {object} dto.PaymentLinkResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/payments/{id}/link [get]
func (h *PaymentsHandler) RegisterLink(c *gin.Context) {
	resp, err := h.svc.RegisterLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Landing godoc
// @Summary      Payment landing state
// @Tags         payments
// @Produce      json
// @Param        id path string true "Transaction id"
// @Success      200 {object} dto.LandingResponse
// @Router       /order/{id} [get]
func (h *PaymentsHandler) Landing(c *gin.Context) {
	resp, err := h.svc.Landing(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
