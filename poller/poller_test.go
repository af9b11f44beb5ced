package poller

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
	"github.com/jarcoal/httpmock"
)

func processing() *models.Transaction {
	return &models.Transaction{ID: "tx-1", Status: models.TransactionStatusProcessing}
}

func TestPollStopsOnCompletion(t *testing.T) {
	calls := 0
	fetch := func(context.Context) (*models.Transaction, error) {
		calls++
		if calls < 3 {
			return processing(), nil
		}
		return &models.Transaction{ID: "tx-1", Status: models.TransactionStatusCompleted, BlockchainTxHash: "0xabc"}, nil
	}

	tx, err := Poll(context.Background(), fetch, Options{Interval: time.Millisecond})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if tx.BlockchainTxHash != "0xabc" {
		t.Fatalf("expected completed row, got %+v", tx)
	}
	if calls != 3 {
		t.Fatalf("expected 3 fetches, got %d", calls)
	}
}

func TestPollStopsOnFailure(t *testing.T) {
	fetch := func(context.Context) (*models.Transaction, error) {
		return &models.Transaction{ID: "tx-1", Status: models.TransactionStatusFailed, ErrorMessage: "insufficient balance"}, nil
	}

	tx, err := Poll(context.Background(), fetch, Options{Interval: time.Millisecond})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if tx.ErrorMessage == "" {
		t.Fatalf("expected failed row, got %+v", tx)
	}
}

func TestPollMaxAttempts(t *testing.T) {
	calls := 0
	fetch := func(context.Context) (*models.Transaction, error) {
		calls++
		return processing(), nil
	}

	tx, err := Poll(context.Background(), fetch, Options{Interval: time.Millisecond, MaxAttempts: 5})
	if !errors.Is(err, ErrPollExhausted) {
		t.Fatalf("expected ErrPollExhausted, got %v", err)
	}
	if calls != 5 {
		t.Fatalf("expected 5 fetches, got %d", calls)
	}
	if tx == nil || tx.Status != models.TransactionStatusProcessing {
		t.Fatalf("expected last seen row, got %+v", tx)
	}
}

func TestPollTimeout(t *testing.T) {
	fetch := func(context.Context) (*models.Transaction, error) {
		return processing(), nil
	}

	_, err := Poll(context.Background(), fetch, Options{Interval: 10 * time.Millisecond, Timeout: 50 * time.Millisecond})
	if !errors.Is(err, ErrPollExhausted) {
		t.Fatalf("expected ErrPollExhausted, got %v", err)
	}
}

func TestPollKeepsGoingOnFetchErrors(t *testing.T) {
	calls := 0
	var seen []error
	fetch := func(context.Context) (*models.Transaction, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection refused")
		}
		return &models.Transaction{ID: "tx-1", Status: models.TransactionStatusCompleted, BlockchainTxHash: "0xabc"}, nil
	}

	_, err := Poll(context.Background(), fetch, Options{
		Interval: time.Millisecond,
		OnUpdate: func(_ int, _ *models.Transaction, err error) {
			seen = append(seen, err)
		},
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(seen) != 2 || seen[0] == nil || seen[1] != nil {
		t.Fatalf("unexpected updates %v", seen)
	}
}

func TestPollCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(context.Context) (*models.Transaction, error) {
		cancel()
		return processing(), nil
	}

	_, err := Poll(ctx, fetch, Options{Interval: time.Hour})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClientWatchSession(t *testing.T) {
	mockedHTTPClient := &http.Client{}
	httpmock.ActivateNonDefault(mockedHTTPClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	const url = "http://api.test/api/transactions/session/cs_test_123"
	calls := 0
	httpmock.RegisterResponder(http.MethodGet, url,
		func(req *http.Request) (*http.Response, error) {
			calls++
			body := map[string]interface{}{
				"id":           "tx-1",
				"status":       "processing",
				"token_amount": 50,
			}
			if calls > 1 {
				body["status"] = "completed"
				body["blockchain_tx_hash"] = "0xabc"
			}
			return httpmock.NewJsonResponse(http.StatusOK, body)
		},
	)

	client := NewClient("http://api.test/", mockedHTTPClient)
	tx, err := client.WatchSession(context.Background(), "cs_test_123", Options{Interval: time.Millisecond})
	if err != nil {
		t.Fatalf("WatchSession: %v", err)
	}
	if tx.Status != models.TransactionStatusCompleted || tx.BlockchainTxHash != "0xabc" || tx.TokenAmount != 50 {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if calls != 2 {
		t.Fatalf("expected 2 requests, got %d", calls)
	}
}

func TestClientNotFound(t *testing.T) {
	mockedHTTPClient := &http.Client{}
	httpmock.ActivateNonDefault(mockedHTTPClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodGet, "http://api.test/api/transactions/session/cs_missing",
		httpmock.NewStringResponder(http.StatusNotFound, `{"error":"Transaction not found"}`))

	client := NewClient("http://api.test", mockedHTTPClient)
	if _, err := client.TransactionBySession(context.Background(), "cs_missing"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestClientServerError(t *testing.T) {
	mockedHTTPClient := &http.Client{}
	httpmock.ActivateNonDefault(mockedHTTPClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodGet, "http://api.test/api/transactions/session/cs_1",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"error":"Failed to fetch transaction"}`))

	client := NewClient("http://api.test", mockedHTTPClient)
	_, err := client.TransactionBySession(context.Background(), "cs_1")
	if err == nil || errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected server error, got %v", err)
	}
}
