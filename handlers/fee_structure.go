package handlers

import (
	"net/http"

	feeStructureRepo "edufees/database/repository/feestructure"
	"edufees/middleware"
	"edufees/services/feestructure"
	"edufees/utils"

	"github.com/gin-gonic/gin"
)

// FeeStructureHandler serves the fee structure catalog.
type FeeStructureHandler struct {
	Service feestructure.FeeStructureService
}

func NewFeeStructureHandler(svc feestructure.FeeStructureService) *FeeStructureHandler {
	return &FeeStructureHandler{Service: svc}
}

// CreateHandler handles POST /structures.
func (h *FeeStructureHandler) CreateHandler(c *gin.Context) {
	var in feestructure.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	fs, err := h.Service.Create(c.Request.Context(), middleware.ScopeFrom(c), in)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusCreated, fs)
}

// UpdateHandler handles PUT /structures/:id.
func (h *FeeStructureHandler) UpdateHandler(c *gin.Context) {
	var in feestructure.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	fs, err := h.Service.Update(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"), in)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, fs)
}

// DeactivateHandler handles POST /structures/:id/deactivate.
func (h *FeeStructureHandler) DeactivateHandler(c *gin.Context) {
	fs, err := h.Service.Deactivate(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"))
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, fs)
}

// GetHandler handles GET /structures/:id.
func (h *FeeStructureHandler) GetHandler(c *gin.Context) {
	fs, err := h.Service.Get(c.Request.Context(), middleware.ScopeFrom(c), c.Param("id"))
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, fs)
}

// ListHandler handles GET /structures?classId=&sectionId=&academicSession=&active=true.
func (h *FeeStructureHandler) ListHandler(c *gin.Context) {
	filter := feeStructureRepo.Filter{
		ClassID:         c.Query("classId"),
		SectionID:       c.Query("sectionId"),
		AcademicSession: c.Query("academicSession"),
		ActiveOnly:      c.Query("active") == "true",
	}
	out, err := h.Service.List(c.Request.Context(), middleware.ScopeFrom(c), filter)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
