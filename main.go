package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/config"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/database"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/handlers"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/routes"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/utils"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

func main() {
	// Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)

	// Load environment variables
	cfg, err := config.Load()
	if err != nil {
		e.Logger.Fatal("Invalid configuration: ", err)
	}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, handlers.SignatureHeader},
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect to the transaction store
	store, err := database.Open(ctx, cfg)
	if err != nil {
		e.Logger.Fatal("Failed to connect to database: ", err)
	}
	e.Logger.Infof("📦 Connected to %s store", cfg.StoreDriver)

	token, err := utils.DialTokenClient(ctx, cfg.RPCURL, cfg.TokenContract, cfg.OperatorPrivateKey, utils.TokenOptions{
		GasLimit:       cfg.GasLimit,
		CallTimeout:    cfg.ChainCallTimeout,
		ConfirmTimeout: cfg.ChainConfirmTimeout,
		Logger:         e.Logger,
	})
	if err != nil {
		e.Logger.Fatal("Failed to initialize token client: ", err)
	}
	e.Logger.Infof("🔗 Token %s, operator %s", token.Address().Hex(), token.Operator().Hex())

	gateway := utils.NewPaymentGateway(utils.PaymentGatewayConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		APIURL:        cfg.StripeAPIURL,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
		Timeout:       cfg.StripeTimeout,
	})
	if !gateway.WebhookConfigured() {
		e.Logger.Warn("⚠️ STRIPE_WEBHOOK_SECRET is empty, webhooks will be rejected")
	}

	h := handlers.NewHandler(cfg, store, gateway, token, e.Logger)

	// Setup routes
	routes.SetupRoutes(e, h, cfg)

	// Start the server
	go func() {
		e.Logger.Infof("🚀 Server starting on port %s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal("Server stopped: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Error(fmt.Sprintf("Shutdown error: %v", err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		e.Logger.Error(fmt.Sprintf("Failed to close store: %v", err))
	}
}
