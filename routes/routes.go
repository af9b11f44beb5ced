package routes

import (
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/config"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/handlers"
	customMiddleware "github.com/Madhav-Gupta-28/cleen-tokens-backend-go/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stripe events are a few KB; anything larger is not from the gateway.
const webhookBodyLimit = "64K"

func SetupRoutes(e *echo.Echo, h *handlers.Handler, cfg *config.Config) {
	api := e.Group("/api")

	// Checkout and status polling (public)
	api.POST("/checkout", h.CreateCheckoutSession)
	api.GET("/transactions/session/:sessionId", h.GetTransactionBySession)
	api.GET("/transactions/:id", h.GetTransaction)

	// Stripe calls this directly; authenticity comes from the signature header.
	api.POST("/webhooks/stripe", h.StripeWebhook, middleware.BodyLimit(webhookBodyLimit))

	// Operator console
	api.POST("/admin/login", h.AdminLogin)
	admin := api.Group("/admin", customMiddleware.OperatorAuth(cfg.JWTSecret))
	admin.GET("/transactions", h.ListTransactions)
	admin.GET("/transactions/:id", h.GetTransaction)

	e.GET("/health", h.Ready)
	e.GET("/health/live", handlers.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
