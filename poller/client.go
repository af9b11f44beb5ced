package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// Client reads transaction status from the service's public API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) TransactionBySession(ctx context.Context, sessionID string) (*models.Transaction, error) {
	endpoint := c.baseURL + "/api/transactions/session/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrTransactionNotFound
	default:
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("status API returned %d: %s", resp.StatusCode, body.Error)
	}

	var tx models.Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return &tx, nil
}

// WatchSession polls the status API for sessionID.
func (c *Client) WatchSession(ctx context.Context, sessionID string, opts Options) (*models.Transaction, error) {
	return Poll(ctx, func(ctx context.Context) (*models.Transaction, error) {
		return c.TransactionBySession(ctx, sessionID)
	}, opts)
}
