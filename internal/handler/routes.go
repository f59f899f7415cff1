package handler

import (
	"github.com/dafibh/coopbank/coopbank-backend/internal/middleware"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Handlers groups the HTTP handlers served by the API
type Handlers struct {
	Auth      *AuthHandler
	Account   *AccountHandler
	Closure   *ClosureHandler
	WebSocket *WebSocketHandler
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, closureLimiter *middleware.RateLimiter, h Handlers) {
	// API docs
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/openapi.json", ServeOpenAPI3Spec)

	// WebSocket authenticates with the token query parameter
	if h.WebSocket != nil {
		e.GET("/ws", h.WebSocket.HandleWS)
	}

	// API version 1
	api := e.Group("/api/v1")

	// Auth routes (protected)
	auth := api.Group("/auth")
	auth.Use(authMiddleware.Authenticate())
	auth.GET("/me", h.Auth.Me)

	// Account routes (protected)
	accounts := api.Group("/accounts")
	accounts.Use(authMiddleware.Authenticate())
	accounts.GET("", h.Account.GetAccounts)
	accounts.GET("/:id", h.Account.GetAccount)
	accounts.GET("/:id/payout-preview", h.Closure.GetPayoutPreview)
	accounts.GET("/:id/closures", h.Closure.GetClosures)

	// Closure routes are rate limited per operator
	limit := middleware.RateLimitMiddleware(closureLimiter)
	accounts.POST("/:id/pay-maturity", h.Closure.PayMaturity, limit)
	accounts.POST("/:id/pre-maturity-close", h.Closure.PreMaturityClose, limit)
}
