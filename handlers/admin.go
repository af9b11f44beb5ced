package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/utils"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const operatorTokenTTL = 24 * time.Hour

// AdminLogin exchanges the operator password for a bearer token.
func (h *Handler) AdminLogin(c echo.Context) error {
	if h.cfg.AdminPasswordHash == "" || h.cfg.JWTSecret == "" {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Operator console is disabled"})
	}

	var credentials struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&credentials); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	// Compare password
	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.AdminPasswordHash), []byte(credentials.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}

	token, err := utils.GenerateJWT(h.cfg.JWTSecret, utils.OperatorRole, operatorTokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate token"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token":     token,
		"expiresIn": int(operatorTokenTTL.Seconds()),
	})
}

// ListTransactions lets an operator find failed or stuck purchases.
func (h *Handler) ListTransactions(c echo.Context) error {
	status := models.TransactionStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid status"})
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
		}
		limit = n
	}

	ctx, cancel := storeContext(c.Request().Context())
	defer cancel()

	txs, err := h.store.List(ctx, status, limit)
	if err != nil {
		h.logger.Errorf("❌ Failed to list transactions: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch transactions"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}
