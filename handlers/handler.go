package handlers

import (
	"context"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/config"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/database"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v76"
)

// PaymentGateway is the part of the Stripe integration the handlers use.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req utils.CheckoutRequest) (*utils.CheckoutSession, error)
	WebhookConfigured() bool
	VerifyEvent(payload []byte, signature string) (stripe.Event, error)
}

// TokenDelivery is the part of the token client the handlers use.
type TokenDelivery interface {
	PlanDelivery(ctx context.Context, recipient common.Address, tokens int64) (*utils.DeliveryPlan, error)
	Deliver(ctx context.Context, plan *utils.DeliveryPlan) (*types.Receipt, error)
	Health(ctx context.Context) utils.HealthStatus
}

type Handler struct {
	cfg     *config.Config
	store   database.TransactionStore
	gateway PaymentGateway
	token   TokenDelivery
	logger  echo.Logger
}

func NewHandler(cfg *config.Config, store database.TransactionStore, gateway PaymentGateway, token TokenDelivery, logger echo.Logger) *Handler {
	return &Handler{
		cfg:     cfg,
		store:   store,
		gateway: gateway,
		token:   token,
		logger:  logger,
	}
}

// storeTimeout bounds every record store call made by a handler.
const storeTimeout = 10 * time.Second

func storeContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, storeTimeout)
}
