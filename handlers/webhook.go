package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/database"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/metrics"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/utils"
	"github.com/labstack/echo/v4"
)

const SignatureHeader = "Stripe-Signature"

// StripeWebhook turns a verified checkout.session.completed event into a
// single on-chain delivery. Once the row is claimed the gateway always gets
// 200, whatever the delivery outcome; failures live in the row only.
func (h *Handler) StripeWebhook(c echo.Context) error {
	signature := c.Request().Header.Get(SignatureHeader)
	if signature == "" {
		metrics.WebhookEvents.WithLabelValues("unknown", "unsigned").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No signature provided"})
	}

	if !h.gateway.WebhookConfigured() {
		h.logger.Error("❌ STRIPE_WEBHOOK_SECRET is not configured")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Webhook secret not configured"})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Failed to read request body"})
	}

	event, err := h.gateway.VerifyEvent(body, signature)
	if err != nil {
		h.logger.Warnf("⚠️ Webhook signature verification failed: %v", err)
		metrics.WebhookEvents.WithLabelValues("unknown", "bad_signature").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Webhook signature verification failed"})
	}

	eventType := string(event.Type)
	if event.Type != utils.EventCheckoutSessionCompleted {
		metrics.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	}

	checkout, err := utils.ParseCompletedCheckout(event)
	if err != nil {
		h.logger.Warnf("⚠️ Event %s rejected: %v", event.ID, err)
		metrics.WebhookEvents.WithLabelValues(eventType, "malformed").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid checkout metadata"})
	}

	// Delayed payment methods complete the session before the money arrives.
	if !checkout.Paid() {
		h.logger.Infof("⏳ Session %s completed with payment status %q, not delivering", checkout.SessionID, checkout.PaymentStatus)
		metrics.WebhookEvents.WithLabelValues(eventType, "unpaid").Inc()
		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	}

	// Outlive the gateway's request so a dropped connection cannot strand
	// the row in processing.
	ctx := context.WithoutCancel(c.Request().Context())

	claimCtx, cancel := storeContext(ctx)
	tx, err := h.store.ClaimForProcessing(claimCtx, checkout.TransactionID)
	cancel()
	switch {
	case errors.Is(err, database.ErrNotFound):
		h.logger.Warnf("⚠️ Event %s references unknown transaction %s", event.ID, checkout.TransactionID)
		metrics.WebhookEvents.WithLabelValues(eventType, "unknown_transaction").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown transaction"})
	case errors.Is(err, database.ErrStatusConflict):
		h.logger.Infof("🔁 Event %s for %s already handled, skipping", event.ID, checkout.TransactionID)
		metrics.WebhookEvents.WithLabelValues(eventType, "duplicate").Inc()
		return c.JSON(http.StatusOK, map[string]bool{"received": true, "duplicate": true})
	case err != nil:
		h.logger.Errorf("❌ Failed to claim %s: %v", checkout.TransactionID, err)
		metrics.WebhookEvents.WithLabelValues(eventType, "store_error").Inc()
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update transaction"})
	}

	metrics.WebhookEvents.WithLabelValues(eventType, "accepted").Inc()
	h.reconcile(ctx, tx, checkout)

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
