package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/config"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
)

var (
	ErrNotFound         = errors.New("transaction not found")
	ErrStatusConflict   = errors.New("transaction is not in the expected status")
	ErrDuplicateSession = errors.New("stripe session already attached")
)

// TransactionStore persists transaction rows. Every status change is a
// conditional write on the current status, so a row only ever moves forward.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	Get(ctx context.Context, id string) (*models.Transaction, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Transaction, error)
	// AttachSession sets the session id on a pending row that has none yet.
	AttachSession(ctx context.Context, id, sessionID string) error
	// ClaimForProcessing moves a row from pending to processing and returns it.
	ClaimForProcessing(ctx context.Context, id string) (*models.Transaction, error)
	SetDeliveryMode(ctx context.Context, id string, mode models.DeliveryMode) error
	MarkCompleted(ctx context.Context, id, txHash string) error
	MarkFailed(ctx context.Context, id, message string) error
	List(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

const DefaultListLimit = 50

// Open connects to the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (TransactionStore, error) {
	switch cfg.StoreDriver {
	case "mongo":
		return ConnectMongo(ctx, cfg.StoreURL, cfg.StoreCredential, cfg.StoreDatabase)
	case "postgres":
		return ConnectPostgres(cfg.StoreURL, cfg.StoreCredential)
	case "sqlite":
		return ConnectSQLite(cfg.StoreURL)
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return DefaultListLimit
	}
	return limit
}
