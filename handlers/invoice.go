package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"edufees/middleware"
	"edufees/models"
	"edufees/services/invoice"
	"edufees/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceHandler serves the invoice ledger.
type InvoiceHandler struct {
	Service invoice.InvoiceService
}

func NewInvoiceHandler(svc invoice.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{Service: svc}
}

// GenerateHandler handles POST /invoices.
func (h *InvoiceHandler) GenerateHandler(c *gin.Context) {
	var in invoice.GenerateInput
	if !bindJSON(c, &in) {
		return
	}
	inv, err := h.Service.Generate(c.Request.Context(), middleware.ScopeFrom(c), in)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// GenerateBulkHandler handles POST /invoices/bulk. Per-student failures are
// part of a 200 response.
func (h *InvoiceHandler) GenerateBulkHandler(c *gin.Context) {
	var in invoice.BulkInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.Service.GenerateBulk(c.Request.Context(), middleware.ScopeFrom(c), in)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	if res.Failed > 0 {
		getLogger(c).Warn("bulk generation had failures",
			zap.String("classId", in.Class),
			zap.Int("succeeded", res.Succeeded),
			zap.Int("failed", res.Failed),
		)
	}
	c.JSON(http.StatusOK, res)
}

// GetHandler handles GET /invoices/:id.
func (h *InvoiceHandler) GetHandler(c *gin.Context) {
	inv, err := h.Service.Get(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"))
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// ListHandler handles GET /invoices?studentId=&classId=&academicSession=&status=&limit=.
func (h *InvoiceHandler) ListHandler(c *gin.Context) {
	filter := invoice.ListFilter{
		StudentID:       c.Query("studentId"),
		ClassID:         c.Query("classId"),
		AcademicSession: c.Query("academicSession"),
	}
	if raw := c.Query("status"); raw != "" {
		st, ok := parseInvoiceStatus(raw)
		if !ok {
			utils.LedgerErrorJSON(c, utils.Validation("invalid_status", "status", "unknown invoice status "+raw))
			return
		}
		filter.Status = st
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.LedgerErrorJSON(c, utils.Validation("invalid_limit", "limit", "limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}
	out, err := h.Service.List(c.Request.Context(), middleware.ScopeFrom(c), filter)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// UpdateHandler handles PUT /invoices/:id.
func (h *InvoiceHandler) UpdateHandler(c *gin.Context) {
	var in invoice.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	inv, err := h.Service.Update(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"), in)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// DeleteHandler handles DELETE /invoices/:id.
func (h *InvoiceHandler) DeleteHandler(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id")); err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted"})
}

// CancelHandler handles POST /invoices/:id/cancel.
func (h *InvoiceHandler) CancelHandler(c *gin.Context) {
	inv, err := h.Service.Cancel(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"))
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// LateFeeHandler handles POST /invoices/:id/late-fee.
func (h *InvoiceHandler) LateFeeHandler(c *gin.Context) {
	var in struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if !bindJSON(c, &in) {
		return
	}
	inv, err := h.Service.ApplyLateFee(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"), in.Amount)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func parseInvoiceStatus(raw string) (models.InvoiceStatus, bool) {
	for _, st := range []models.InvoiceStatus{
		models.InvoiceStatusPending,
		models.InvoiceStatusPartial,
		models.InvoiceStatusPaid,
		models.InvoiceStatusOverdue,
		models.InvoiceStatusCancelled,
	} {
		if strings.EqualFold(raw, string(st)) {
			return st, true
		}
	}
	return "", false
}
