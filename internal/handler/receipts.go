package handler

import (
	"net/http"

	"payhub/internal/dto"
	"payhub/internal/service"

	"github.com/gin-gonic/gin"
)

type ReceiptsHandler struct{ svc service.ReceiptService }

func NewReceiptsHandler(svc service.ReceiptService) *ReceiptsHandler {
	return &ReceiptsHandler{svc: svc}
}

// Issue godoc
// @Summary      Issue a receipt manually
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ManualReceiptRequest true "Receipt"
// @Success      201 {object} dto.ReceiptResponse
// @Failure      409 {object} apierror.APIError
// @Failure      502 {object} apierror.APIError
// @Router       /v1/receipts [post]
func (h *ReceiptsHandler) Issue(c *gin.Context) {
	var req dto.ManualReceiptRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Issue(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
