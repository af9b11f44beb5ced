package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Metadata keys written on the checkout session and read back by the webhook.
const (
	MetadataTransactionID = "transactionId"
	MetadataWalletAddress = "walletAddress"
	MetadataTokenAmount   = "tokenAmount"
)

const EventCheckoutSessionCompleted = stripe.EventTypeCheckoutSessionCompleted

var ErrMissingMetadata = errors.New("checkout session metadata is incomplete")

type CheckoutRequest struct {
	TransactionID string
	WalletAddress string
	TokenAmount   int64
}

type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// CompletedCheckout is the metadata carried by a checkout.session.completed event.
type CompletedCheckout struct {
	SessionID     string
	TransactionID string
	WalletAddress string
	TokenAmount   int64
	PaymentStatus string
}

type PaymentGatewayConfig struct {
	SecretKey     string
	WebhookSecret string
	APIURL        string
	SuccessURL    string
	CancelURL     string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// PaymentGateway creates hosted checkout sessions and verifies webhook payloads.
type PaymentGateway struct {
	sessions      session.Client
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewPaymentGateway(cfg PaymentGatewayConfig) *PaymentGateway {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: withDefault(cfg.Timeout, 20*time.Second)}
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(1),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelWarn},
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}

	return &PaymentGateway{
		sessions: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

// CreateCheckoutSession opens a card payment for one token bundle. The
// transaction id doubles as the Stripe idempotency key.
func (g *PaymentGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(g.successURL),
		CancelURL:          stripe.String(g.cancelURL),
		ClientReferenceID:  stripe.String(req.TransactionID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("%d Cleen Tokens", req.TokenAmount)),
					},
					UnitAmount: stripe.Int64(models.UnitAmountCents(req.TokenAmount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String("checkout-" + req.TransactionID)
	params.AddMetadata(MetadataTransactionID, req.TransactionID)
	params.AddMetadata(MetadataWalletAddress, req.WalletAddress)
	params.AddMetadata(MetadataTokenAmount, strconv.FormatInt(req.TokenAmount, 10))

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *PaymentGateway) WebhookConfigured() bool {
	return g.webhookSecret != ""
}

// VerifyEvent checks the Stripe-Signature header against the raw body.
func (g *PaymentGateway) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// Paid reports whether Stripe has captured the funds for the session.
func (c *CompletedCheckout) Paid() bool {
	return c.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
}

// ParseCompletedCheckout extracts the purchase metadata from a
// checkout.session.completed event. Missing or malformed metadata is an error.
func ParseCompletedCheckout(event stripe.Event) (*CompletedCheckout, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: event has no data", ErrMissingMetadata)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}

	out := &CompletedCheckout{
		SessionID:     s.ID,
		TransactionID: s.Metadata[MetadataTransactionID],
		WalletAddress: s.Metadata[MetadataWalletAddress],
		PaymentStatus: string(s.PaymentStatus),
	}
	if out.TransactionID == "" || out.WalletAddress == "" || s.Metadata[MetadataTokenAmount] == "" {
		return nil, ErrMissingMetadata
	}
	amount, err := strconv.ParseInt(s.Metadata[MetadataTokenAmount], 10, 64)
	if err != nil || !models.IsAllowedTokenAmount(amount) {
		return nil, fmt.Errorf("%w: bad token amount %q", ErrMissingMetadata, s.Metadata[MetadataTokenAmount])
	}
	out.TokenAmount = amount
	return out, nil
}
