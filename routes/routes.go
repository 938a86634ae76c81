package routes

import (
	"time"

	"edufees/handlers"
	"edufees/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterFeeRoutes registers the ledger endpoints. Every route needs a
// scoped token; mutations additionally need a ledger-writer role.
func RegisterFeeRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/fees")
	api.Use(middleware.JWTScopeMiddleware())

	write := middleware.RequireRole(middleware.LedgerWriters...)

	structures := api.Group("/structures")
	{
		structures.GET("", hb.FeeStructures.ListHandler)
		structures.GET("/:id", hb.FeeStructures.GetHandler)
		structures.POST("", write, hb.FeeStructures.CreateHandler)
		structures.PUT("/:id", write, hb.FeeStructures.UpdateHandler)
		structures.POST("/:id/deactivate", write, hb.FeeStructures.DeactivateHandler)
	}

	invoices := api.Group("/invoices")
	{
		invoices.GET("", hb.Invoices.ListHandler)
		invoices.GET("/:id", hb.Invoices.GetHandler)
		invoices.POST("", write, hb.Invoices.GenerateHandler)
		invoices.POST("/bulk", write, hb.Invoices.GenerateBulkHandler)
		invoices.PUT("/:id", write, hb.Invoices.UpdateHandler)
		invoices.DELETE("/:id", write, hb.Invoices.DeleteHandler)
		invoices.POST("/:id/late-fee", write, hb.Invoices.LateFeeHandler)
		invoices.POST("/:id/cancel", write, hb.Invoices.CancelHandler)
	}

	payments := api.Group("/payments")
	{
		payments.GET("", hb.Payments.ListHandler)
		payments.GET("/:id", hb.Payments.GetHandler)
		payments.GET("/:id/receipt", hb.Payments.ReceiptHandler)
		payments.POST("", write, hb.Payments.CollectHandler)
		payments.PATCH("/:id", write, hb.Payments.UpdateHandler)
		payments.POST("/:id/confirm", write, hb.Payments.ConfirmHandler)
		payments.POST("/:id/reverse", write, hb.Payments.ReverseHandler)
	}

	balances := api.Group("/balances")
	{
		balances.GET("/:studentId", hb.Balances.GetHandler)
		balances.POST("/:studentId/recompute", write, hb.Balances.RecomputeHandler)
		balances.POST("/:studentId/carry-forward", write, hb.Balances.CarryForwardHandler)
	}

	audit := api.Group("/audit", write)
	{
		audit.GET("/users/:userId", hb.Audit.UserActivityHandler)
		audit.GET("/:entityType/:entityId", hb.Audit.EntityTrailHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health.HealthCheckHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterFeeRoutes(r, hb)
	RegisterHealthRoute(r, hb)
}
