package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/metrics"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/utils"
)

var errMetadataMismatch = errors.New("checkout metadata does not match transaction")

// reconcile drives a claimed (processing) row to completed or failed.
func (h *Handler) reconcile(ctx context.Context, tx *models.Transaction, checkout *utils.CompletedCheckout) {
	start := time.Now()
	defer func() {
		metrics.TokenDeliverySeconds.Observe(time.Since(start).Seconds())
	}()

	mode, txHash, err := h.deliverTokens(ctx, tx, checkout)
	modeLabel := string(mode)
	if modeLabel == "" {
		modeLabel = "none"
	}

	if err != nil {
		h.logger.Errorf("❌ Delivery for %s failed: %v", tx.ID, err)
		metrics.TokenDeliveries.WithLabelValues(modeLabel, "failed").Inc()
		if serr := h.markFailed(ctx, tx.ID, err.Error()); serr != nil {
			h.logger.Errorf("❌ Failed to record failure for %s: %v", tx.ID, serr)
		}
		return
	}

	metrics.TokenDeliveries.WithLabelValues(modeLabel, "completed").Inc()
	h.logger.Infof("✅ Delivered %d tokens to %s (%s, tx %s)", tx.TokenAmount, tx.WalletAddress, mode, txHash)
	if serr := h.markCompleted(ctx, tx.ID, txHash); serr != nil {
		// Tokens are on chain; the row stays in processing for an operator.
		h.logger.Errorf("❌ Failed to record completion for %s (tx %s): %v", tx.ID, txHash, serr)
	}
}

func (h *Handler) deliverTokens(ctx context.Context, tx *models.Transaction, checkout *utils.CompletedCheckout) (models.DeliveryMode, string, error) {
	if checkout.WalletAddress != tx.WalletAddress || checkout.TokenAmount != tx.TokenAmount {
		return "", "", errMetadataMismatch
	}

	recipient, err := utils.ParseWalletAddress(checkout.WalletAddress)
	if err != nil {
		return "", "", err
	}

	plan, err := h.token.PlanDelivery(ctx, recipient, checkout.TokenAmount)
	if err != nil {
		return "", "", err
	}
	if err := h.setDeliveryMode(ctx, tx.ID, plan.Mode); err != nil {
		return plan.Mode, "", err
	}

	receipt, err := h.token.Deliver(ctx, plan)
	if err != nil {
		return plan.Mode, "", err
	}
	return plan.Mode, receipt.TxHash.Hex(), nil
}

func (h *Handler) setDeliveryMode(ctx context.Context, id string, mode models.DeliveryMode) error {
	ctx, cancel := storeContext(ctx)
	defer cancel()
	return h.store.SetDeliveryMode(ctx, id, mode)
}

func (h *Handler) markCompleted(ctx context.Context, id, txHash string) error {
	ctx, cancel := storeContext(ctx)
	defer cancel()
	return h.store.MarkCompleted(ctx, id, txHash)
}

func (h *Handler) markFailed(ctx context.Context, id, message string) error {
	ctx, cancel := storeContext(ctx)
	defer cancel()
	return h.store.MarkFailed(ctx, id, message)
}
