package handlers

import (
	"errors"
	"net/http"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/database"
	"github.com/labstack/echo/v4"
)

// GetTransactionBySession is polled by the success page until the row is terminal.
func (h *Handler) GetTransactionBySession(c echo.Context) error {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid session ID"})
	}

	ctx, cancel := storeContext(c.Request().Context())
	defer cancel()

	tx, err := h.store.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Transaction not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch transaction"})
	}

	return c.JSON(http.StatusOK, tx)
}

func (h *Handler) GetTransaction(c echo.Context) error {
	ctx, cancel := storeContext(c.Request().Context())
	defer cancel()

	tx, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Transaction not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch transaction"})
	}

	return c.JSON(http.StatusOK, tx)
}
