package handler

import (
	"bytes"
	"net/http"

	"payhub/internal/dto"
	"payhub/internal/middleware"
	"payhub/internal/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CertificatesHandler struct {
	certificates service.CertificateService
	settlement   service.SettlementService
}

func NewCertificatesHandler(certificates service.CertificateService, settlement service.SettlementService) *CertificatesHandler {
	return &CertificatesHandler{certificates: certificates, settlement: settlement}
}

// Summary godoc
// @Summary      Certificate settlement summary
// @Tags         certificates
// @Produce      json
// @Security     BearerAuth
// @Param        code path string true "Certificate code"
// @Success      200 {object} dto.CertificateSummaryResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/certificates/{code} [get]
func (h *CertificatesHandler) Summary(c *gin.Context) {
	resp, err := h.certificates.Summary(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CertificatesHandler) Current(c *gin.Context) {
	resp, err := h.certificates.Current(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CertificatesHandler) History(c *gin.Context) {
	resp, err := h.certificates.History(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Recompute godoc
// @Summary      Re-derive certificate status
// @Description  Reconciles the ledger and moves the status if it changed. Logged with the operator as actor.
// @Tags         certificates
// @Produce      json
// @Security     BearerAuth
// @Param        code path string true "Certificate code"
// @Success      200 {object} dto.RecomputeResponse
// @Router       /v1/certificates/{code}/recompute [post]
func (h *CertificatesHandler) Recompute(c *gin.Context) {
	claims := middleware.GetClaims(c)
	res, err := h.settlement.Recompute(c.Request.Context(), c.Param("code"), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RecomputeResponse{
		CertificateCode: res.CertificateCode,
		Status:          res.Status.String(),
		Changed:         res.Changed,
		LastPay:         res.LastPay,
	})
}

// Export godoc
// @Summary      Export certificate transactions
// @Tags         certificates
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        code path string true "Certificate code"
// @Success      200 {file} file
// @Router       /v1/certificates/{code}/export [get]
func (h *CertificatesHandler) Export(c *gin.Context) {
	code := c.Param("code")
	var buf bytes.Buffer
	if err := h.certificates.Export(c.Request.Context(), code, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="transactions_`+code+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
