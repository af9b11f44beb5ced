package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/database"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/metrics"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/utils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type CreateCheckoutRequest struct {
	TokenAmount   int64  `json:"tokenAmount"`
	WalletAddress string `json:"walletAddress"`
	TransactionID string `json:"transactionId"`
}

type CreateCheckoutResponse struct {
	SessionID     string `json:"sessionId"`
	URL           string `json:"url"`
	TransactionID string `json:"transactionId"`
}

var errTransactionNotReusable = errors.New("transaction cannot be used for a new checkout")

// CreateCheckoutSession records a pending purchase and opens a Stripe
// checkout for it. The wallet address is only checked for presence here.
func (h *Handler) CreateCheckoutSession(c echo.Context) error {
	var req CreateCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)
	if req.WalletAddress == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Wallet address is required"})
	}
	if !models.IsAllowedTokenAmount(req.TokenAmount) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid token amount"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	tx, err := h.prepareTransaction(ctx, req)
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues("rejected").Inc()
		switch {
		case errors.Is(err, database.ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Transaction not found"})
		case errors.Is(err, errTransactionNotReusable):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		h.logger.Errorf("❌ Failed to create transaction: %v", err)
		return checkoutFailed(c)
	}

	session, err := h.gateway.CreateCheckoutSession(ctx, utils.CheckoutRequest{
		TransactionID: tx.ID,
		WalletAddress: tx.WalletAddress,
		TokenAmount:   tx.TokenAmount,
	})
	if err != nil {
		h.logger.Errorf("❌ Stripe session for %s failed: %v", tx.ID, err)
		metrics.CheckoutSessions.WithLabelValues("gateway_error").Inc()
		return checkoutFailed(c)
	}

	if err := h.store.AttachSession(ctx, tx.ID, session.ID); err != nil {
		h.logger.Errorf("❌ Failed to store session %s on %s: %v", session.ID, tx.ID, err)
		metrics.CheckoutSessions.WithLabelValues("store_error").Inc()
		return checkoutFailed(c)
	}

	metrics.CheckoutSessions.WithLabelValues("created").Inc()
	h.logger.Infof("🛒 Checkout %s opened for %d tokens (transaction %s)", session.ID, tx.TokenAmount, tx.ID)

	return c.JSON(http.StatusOK, CreateCheckoutResponse{
		SessionID:     session.ID,
		URL:           session.URL,
		TransactionID: tx.ID,
	})
}

// prepareTransaction inserts a new pending row, or reuses the caller's
// pending row when it has no checkout session yet.
func (h *Handler) prepareTransaction(ctx context.Context, req CreateCheckoutRequest) (*models.Transaction, error) {
	if req.TransactionID == "" {
		tx := models.NewTransaction(uuid.NewString(), req.WalletAddress, req.TokenAmount, time.Now())
		if err := h.store.Create(ctx, tx); err != nil {
			return nil, err
		}
		return tx, nil
	}

	tx, err := h.store.Get(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != models.TransactionStatusPending || tx.SessionID() != "" {
		return nil, errTransactionNotReusable
	}
	if tx.WalletAddress != req.WalletAddress || tx.TokenAmount != req.TokenAmount {
		return nil, errTransactionNotReusable
	}
	return tx, nil
}

func checkoutFailed(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create checkout session"})
}
