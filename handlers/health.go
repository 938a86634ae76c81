package handlers

import (
	"net/http"

	"edufees/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the last dependency check made by the health monitor.
type HealthHandler struct {
	Status func() utils.HealthStatus
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{Status: utils.GetHealthStatus}
}

// HealthCheckHandler handles GET /health.
func (h *HealthHandler) HealthCheckHandler(c *gin.Context) {
	st := h.Status()
	code := http.StatusOK
	state := "ok"
	if !st.Mongo || !st.Redis {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(code, gin.H{"status": state, "checks": st})
}
