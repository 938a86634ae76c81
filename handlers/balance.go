package handlers

import (
	"net/http"

	"edufees/middleware"
	"edufees/services/balance"
	"edufees/utils"

	"github.com/gin-gonic/gin"
)

// BalanceHandler serves student balances.
type BalanceHandler struct {
	Service balance.BalanceService
}

func NewBalanceHandler(svc balance.BalanceService) *BalanceHandler {
	return &BalanceHandler{Service: svc}
}

func sessionQuery(c *gin.Context) (string, bool) {
	s := c.Query("academicSession")
	if s == "" {
		utils.LedgerErrorJSON(c, utils.Validation("missing_session", "academicSession", "academicSession is required"))
		return "", false
	}
	return s, true
}

// GetHandler handles GET /balances/:studentId?academicSession=.
func (h *BalanceHandler) GetHandler(c *gin.Context) {
	session, ok := sessionQuery(c)
	if !ok {
		return
	}
	b, err := h.Service.GetBalance(c.Request.Context(), middleware.ScopeFrom(c), c.Param("studentId"), session)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// RecomputeHandler handles POST /balances/:studentId/recompute?academicSession=.
func (h *BalanceHandler) RecomputeHandler(c *gin.Context) {
	session, ok := sessionQuery(c)
	if !ok {
		return
	}
	b, err := h.Service.Recompute(c.Request.Context(), middleware.ScopeFrom(c), c.Param("studentId"), session)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CarryForwardHandler handles POST /balances/:studentId/carry-forward.
func (h *BalanceHandler) CarryForwardHandler(c *gin.Context) {
	var in struct {
		FromSession string `json:"fromSession" binding:"required"`
		ToSession   string `json:"toSession" binding:"required"`
	}
	if !bindJSON(c, &in) {
		return
	}
	b, err := h.Service.CarryForward(c.Request.Context(), middleware.ScopeFrom(c), c.Param("studentId"), in.FromSession, in.ToSession)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
