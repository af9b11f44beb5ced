package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/config"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/database"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	testWebhookSecret = "whsec_handler_test"
	testWallet        = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	testTxHash        = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
)

// fakeGateway verifies webhooks with the real Stripe code and stubs session creation.
type fakeGateway struct {
	*utils.PaymentGateway
	CreateFunc func(ctx context.Context, req utils.CheckoutRequest) (*utils.CheckoutSession, error)
	requests   []utils.CheckoutRequest
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req utils.CheckoutRequest) (*utils.CheckoutSession, error) {
	g.requests = append(g.requests, req)
	return g.CreateFunc(ctx, req)
}

type fakeToken struct {
	PlanFunc    func(ctx context.Context, recipient common.Address, tokens int64) (*utils.DeliveryPlan, error)
	DeliverFunc func(ctx context.Context, plan *utils.DeliveryPlan) (*types.Receipt, error)
	HealthFunc  func(ctx context.Context) utils.HealthStatus

	planCalls    int
	deliverCalls int
}

func (f *fakeToken) PlanDelivery(ctx context.Context, recipient common.Address, tokens int64) (*utils.DeliveryPlan, error) {
	f.planCalls++
	return f.PlanFunc(ctx, recipient, tokens)
}

func (f *fakeToken) Deliver(ctx context.Context, plan *utils.DeliveryPlan) (*types.Receipt, error) {
	f.deliverCalls++
	return f.DeliverFunc(ctx, plan)
}

func (f *fakeToken) Health(ctx context.Context) utils.HealthStatus {
	if f.HealthFunc != nil {
		return f.HealthFunc(ctx)
	}
	return utils.HealthStatus{IsHealthy: true}
}

// transferOK plans a transfer and confirms it with testTxHash.
func transferOK() *fakeToken {
	return &fakeToken{
		PlanFunc: func(_ context.Context, recipient common.Address, tokens int64) (*utils.DeliveryPlan, error) {
			return &utils.DeliveryPlan{
				Mode:      models.DeliveryModeTransfer,
				Recipient: recipient,
				Amount:    utils.ScaleAmount(tokens, 18),
				Decimals:  18,
			}, nil
		},
		DeliverFunc: func(context.Context, *utils.DeliveryPlan) (*types.Receipt, error) {
			return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: common.HexToHash(testTxHash)}, nil
		},
	}
}

type testEnv struct {
	handler *Handler
	store   *database.SQLStore
	gateway *fakeGateway
	token   *fakeToken
	cfg     *config.Config
}

func newTestEnv(t *testing.T, token *fakeToken) *testEnv {
	t.Helper()
	store, err := database.ConnectSQLite(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("ConnectSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close(context.Background()) })

	gateway := &fakeGateway{
		PaymentGateway: utils.NewPaymentGateway(utils.PaymentGatewayConfig{WebhookSecret: testWebhookSecret}),
		CreateFunc: func(_ context.Context, req utils.CheckoutRequest) (*utils.CheckoutSession, error) {
			return &utils.CheckoutSession{
				ID:  "cs_test_" + req.TransactionID,
				URL: "https://checkout.stripe.com/c/pay/cs_test_" + req.TransactionID,
			}, nil
		},
	}

	logger := log.New("test")
	logger.SetOutput(io.Discard)

	cfg := &config.Config{JWTSecret: "test-secret"}
	return &testEnv{
		handler: NewHandler(cfg, store, gateway, token, logger),
		store:   store,
		gateway: gateway,
		token:   token,
		cfg:     cfg,
	}
}

// seedPending inserts a pending row with a checkout session attached.
func (env *testEnv) seedPending(t *testing.T, id, wallet string, amount int64) *models.Transaction {
	t.Helper()
	ctx := context.Background()
	tx := models.NewTransaction(id, wallet, amount, time.Now())
	if err := env.store.Create(ctx, tx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := env.store.AttachSession(ctx, id, "cs_test_"+id); err != nil {
		t.Fatalf("AttachSession: %v", err)
	}
	return tx
}

func (env *testEnv) row(t *testing.T, id string) *models.Transaction {
	t.Helper()
	tx, err := env.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s): %v", id, err)
	}
	return tx
}

func newJSONContext(method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

// webhookContext builds a signed Stripe delivery for a paid checkout session.
func webhookContext(t *testing.T, secret, eventType string, metadata map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	return webhookContextWithStatus(t, secret, eventType, "paid", metadata)
}

func webhookContextWithStatus(t *testing.T, secret, eventType, paymentStatus string, metadata map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_" + metadata[utils.MetadataTransactionID],
		"object":      "event",
		"type":        eventType,
		"api_version": "2023-10-16",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":             "cs_test_" + metadata[utils.MetadataTransactionID],
				"object":         "checkout.session",
				"payment_status": paymentStatus,
				"metadata":       metadata,
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(SignatureHeader, signed.Header)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func checkoutMetadata(id, wallet, amount string) map[string]string {
	return map[string]string{
		utils.MetadataTransactionID: id,
		utils.MetadataWalletAddress: wallet,
		utils.MetadataTokenAmount:   amount,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}
