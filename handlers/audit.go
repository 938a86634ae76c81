package handlers

import (
	"net/http"
	"strconv"
	"time"

	"edufees/middleware"
	"edufees/models"
	"edufees/services/audit"
	"edufees/utils"

	"github.com/gin-gonic/gin"
)

// AuditHandler serves audit trails.
type AuditHandler struct {
	Service audit.AuditService
}

func NewAuditHandler(svc audit.AuditService) *AuditHandler {
	return &AuditHandler{Service: svc}
}

// EntityTrailHandler handles GET /audit/:entityType/:entityId.
func (h *AuditHandler) EntityTrailHandler(c *gin.Context) {
	kind, ok := models.ParseEntityKind(c.Param("entityType"))
	if !ok {
		utils.LedgerErrorJSON(c, utils.Validation("invalid_entity_type", "entityType", "unknown entity type "+c.Param("entityType")))
		return
	}
	out, err := h.Service.GetEntityAuditTrail(c.Request.Context(), middleware.ScopeFrom(c),
		models.EntityRef{Kind: kind, ID: c.Param("entityId")})
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// UserActivityHandler handles GET /audit/users/:userId?startDate=&endDate=&action=&limit=.
// Dates are RFC 3339 or YYYY-MM-DD.
func (h *AuditHandler) UserActivityHandler(c *gin.Context) {
	var q models.AuditQuery
	var err error
	if q.StartDate, err = parseDate(c.Query("startDate")); err != nil {
		utils.LedgerErrorJSON(c, utils.Validation("invalid_date", "startDate", err.Error()))
		return
	}
	if q.EndDate, err = parseDate(c.Query("endDate")); err != nil {
		utils.LedgerErrorJSON(c, utils.Validation("invalid_date", "endDate", err.Error()))
		return
	}
	q.Action = models.AuditAction(c.Query("action"))
	if raw := c.Query("limit"); raw != "" {
		if q.Limit, err = strconv.Atoi(raw); err != nil {
			utils.LedgerErrorJSON(c, utils.Validation("invalid_limit", "limit", "limit must be an integer"))
			return
		}
	}
	out, err := h.Service.GetUserActivity(c.Request.Context(), middleware.ScopeFrom(c), c.Param("userId"), q)
	if err != nil {
		utils.LedgerErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
