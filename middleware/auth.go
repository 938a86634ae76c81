package middleware

import (
	"net/http"
	"strings"

	"edufees/models"
	"edufees/utils"

	"github.com/gin-gonic/gin"
)

// ScopeKey is the gin context key holding the caller's models.Scope.
const ScopeKey = "scope"

// JWTScopeMiddleware authenticates the bearer token and stores the caller's
// tenant scope on the context. Tenant checks are left to the ledger.
func JWTScopeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := utils.ExtractScopeClaims(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Invalid token"})
			return
		}

		c.Set(ScopeKey, models.Scope{
			TenantID: claims.TenantID,
			Actor: models.Actor{
				UserID:   claims.UserID,
				UserName: claims.Name,
				Role:     claims.Role,
			},
			Meta: models.RequestMeta{
				IPAddress: getClientIP(c),
				UserAgent: c.Request.UserAgent(),
			},
		})
		c.Next()
	}
}

// ScopeFrom returns the scope set by JWTScopeMiddleware, or an empty scope.
func ScopeFrom(c *gin.Context) models.Scope {
	if v, ok := c.Get(ScopeKey); ok {
		if s, ok := v.(models.Scope); ok {
			return s
		}
	}
	return models.Scope{}
}
