package handler

import (
	"github.com/dafibh/fortuna/fortuna-planner/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes. Every route is workspace scoped and
// rate limited per workspace.
func RegisterRoutes(e *echo.Echo, rateLimiter *middleware.RateLimiter, loanHandler *LoanHandler, summaryHandler *SummaryHandler, wsHandler *WebSocketHandler) {
	scoped := []echo.MiddlewareFunc{middleware.RequireWorkspace(), middleware.RateLimitMiddleware(rateLimiter)}

	// API version 1
	api := e.Group("/api/v1", scoped...)

	// Loan routes
	loans := api.Group("/loans")
	loans.POST("/preview", loanHandler.PreviewLoan)
	loans.POST("", loanHandler.CreateLoan)
	loans.GET("", loanHandler.GetLoans)
	loans.GET("/:id", loanHandler.GetLoan)
	loans.PUT("/:id", loanHandler.UpdateLoan)
	loans.DELETE("/:id", loanHandler.DeleteLoan)
	loans.PATCH("/:id/installments/:number/pay", loanHandler.PayInstallment)

	// Monthly summary routes
	summary := api.Group("/summary")
	summary.GET("", summaryHandler.GetSummary)
	summary.GET("/buckets", summaryHandler.GetBucketAvailability)
	summary.POST("/export", summaryHandler.ExportSummary)

	// Live events
	e.GET("/ws", wsHandler.HandleWS, middleware.RequireWorkspace())
}
