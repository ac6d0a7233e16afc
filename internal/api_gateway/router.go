package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/balance-ledger/internal/api_gateway/handler"
	"github.com/balance-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application.
// The correlation id is assigned first so request logs and recovered panics carry it.
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	transactionHandler *handler.TransactionHandler,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/users", accountHandler.CreateUser)

		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.DELETE("", accountHandler.Delete)
			accounts.GET("", accountHandler.List)
			accounts.GET("/:accountNumber/transactions", transactionHandler.GetByAccountNumber)
		}

		transactions := v1.Group("/transactions")
		{
			transactions.POST("/use", transactionHandler.Use)
			transactions.POST("/cancel", transactionHandler.Cancel)
			transactions.GET("/:transactionId", transactionHandler.GetByID)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
