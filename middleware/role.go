package middleware

import (
	"slices"

	"edufees/utils"

	"github.com/gin-gonic/gin"
)

// LedgerWriters are the roles allowed to change the ledger and read audit trails.
var LedgerWriters = []string{"admin", "accountant", "super_admin"}

// RequireRole lets the request through only when the caller holds one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := ScopeFrom(c).Actor.Role
		if !slices.Contains(roles, role) {
			utils.LedgerErrorJSON(c, utils.Forbidden("insufficient_role", "role "+role+" may not perform this operation"))
			c.Abort()
			return
		}
		c.Next()
	}
}
