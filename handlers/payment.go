package handlers

import (
	"net/http"

	"edufees/middleware"
	"edufees/models"
	"edufees/services/payment"
	"edufees/utils"

	"github.com/gin-gonic/gin"
)

// PaymentHandler serves the payment ledger.
type PaymentHandler struct {
	Service payment.PaymentService
}

func NewPaymentHandler(svc payment.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: svc}
}

// CollectHandler handles POST /payments.
func (h *PaymentHandler) CollectHandler(c *gin.Context) {
	var in payment.CollectInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.Service.Collect(c.Request.Context(), middleware.ScopeFrom(c), in)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListHandler handles GET /payments?invoiceId=.
func (h *PaymentHandler) ListHandler(c *gin.Context) {
	invoiceID := c.Query("invoiceId")
	if invoiceID == "" {
		utils.LedgerErrorJSON(c, utils.Validation("missing_invoice", "invoiceId", "invoiceId is required"))
		return
	}
	out, err := h.Service.ListByInvoice(c.Request.Context(), middleware.ScopeFrom(c), invoiceID)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetHandler handles GET /payments/:id.
func (h *PaymentHandler) GetHandler(c *gin.Context) {
	p, err := h.Service.Get(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"))
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateHandler handles PATCH /payments/:id. Only unconfirmed payments accept it.
func (h *PaymentHandler) UpdateHandler(c *gin.Context) {
	var patch models.PaymentPatch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := h.Service.Update(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"), patch)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ConfirmHandler handles POST /payments/:id/confirm.
func (h *PaymentHandler) ConfirmHandler(c *gin.Context) {
	p, err := h.Service.Confirm(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"))
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ReverseHandler handles POST /payments/:id/reverse.
func (h *PaymentHandler) ReverseHandler(c *gin.Context) {
	var in struct {
		Reason string `json:"reason" binding:"required"`
	}
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.Service.Reverse(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"), in.Reason)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ReceiptHandler handles GET /payments/:id/receipt.
func (h *PaymentHandler) ReceiptHandler(c *gin.Context) {
	b, err := h.Service.Receipt(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"))
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
