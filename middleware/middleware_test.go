package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"edufees/config"
	"edufees/models"
	"edufees/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func newRouter(captured *models.Scope, mws ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mws...)
	r.GET("/probe", func(c *gin.Context) {
		*captured = ScopeFrom(c)
		c.Status(http.StatusNoContent)
	})
	return r
}

func bearer(t *testing.T, c utils.ScopeClaims) string {
	t.Helper()
	tok, err := utils.GenerateToken(c, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestJWTScopeMiddleware(t *testing.T) {
	config.AppConfig.JWTSecret = "mw-secret"
	t.Cleanup(func() { config.AppConfig.JWTSecret = "" })

	var got models.Scope
	r := newRouter(&got, JWTScopeMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", bearer(t, utils.ScopeClaims{UserID: "u1", TenantID: "t1", Name: "Otieno", Role: "accountant"}))
	req.Header.Set("X-Forwarded-For", "10.1.2.3, 172.16.0.1")
	req.Header.Set("User-Agent", "fees-desk/1.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "t1", got.TenantID)
	assert.Equal(t, models.Actor{UserID: "u1", UserName: "Otieno", Role: "accountant"}, got.Actor)
	assert.Equal(t, "10.1.2.3", got.Meta.IPAddress)
	assert.Equal(t, "fees-desk/1.0", got.Meta.UserAgent)

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestRequireRole(t *testing.T) {
	var got models.Scope
	asRole := func(role string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(ScopeKey, models.Scope{TenantID: "t1", Actor: models.Actor{UserID: "u1", Role: role}})
		}
	}

	r := newRouter(&got, asRole("accountant"), RequireRole(LedgerWriters...))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	r = newRouter(&got, asRole("student"), RequireRole(LedgerWriters...))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	var got models.Scope
	r := newRouter(&got, RateLimitMiddleware(2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.RemoteAddr = "192.0.2.7:5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.RemoteAddr = "192.0.2.8:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
