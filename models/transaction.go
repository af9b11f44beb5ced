package models

import (
	"errors"
	"time"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// CanTransitionTo enforces pending -> processing -> {completed|failed}.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionStatusPending:
		return next == TransactionStatusProcessing
	case TransactionStatusProcessing:
		return next == TransactionStatusCompleted || next == TransactionStatusFailed
	}
	return false
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusProcessing, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	}
	return false
}

type DeliveryMode string

const (
	DeliveryModeMint     DeliveryMode = "mint"
	DeliveryModeTransfer DeliveryMode = "transfer"
)

// Transaction tracks one purchase from checkout to on-chain settlement.
type Transaction struct {
	ID               string            `bson:"_id" gorm:"primaryKey;type:varchar(36)" json:"id"`
	WalletAddress    string            `bson:"wallet_address" gorm:"not null" json:"wallet_address"`
	TokenAmount      int64             `bson:"token_amount" gorm:"not null" json:"token_amount"`
	AmountUSD        float64           `bson:"amount_usd" gorm:"not null" json:"amount_usd"`
	Status           TransactionStatus `bson:"status" gorm:"type:varchar(20);not null;index" json:"status"`
	StripeSessionID  *string           `bson:"stripe_session_id,omitempty" gorm:"uniqueIndex" json:"stripe_session_id"`
	BlockchainTxHash string            `bson:"blockchain_tx_hash,omitempty" json:"blockchain_tx_hash,omitempty"`
	ErrorMessage     string            `bson:"error_message,omitempty" gorm:"type:text" json:"error_message,omitempty"`
	DeliveryMode     DeliveryMode      `bson:"delivery_mode,omitempty" gorm:"type:varchar(20)" json:"delivery_mode,omitempty"`
	CreatedAt        time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `bson:"updated_at" json:"updated_at"`
	CompletedAt      *time.Time        `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// NewTransaction builds a pending row priced at the fixed unit price.
func NewTransaction(id, walletAddress string, tokenAmount int64, now time.Time) *Transaction {
	return &Transaction{
		ID:            id,
		WalletAddress: walletAddress,
		TokenAmount:   tokenAmount,
		AmountUSD:     AmountUSD(tokenAmount).InexactFloat64(),
		Status:        TransactionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SessionID returns the Stripe session id or "" when none is attached yet.
func (t *Transaction) SessionID() string {
	if t.StripeSessionID == nil {
		return ""
	}
	return *t.StripeSessionID
}

var (
	ErrHashAndError        = errors.New("transaction has both tx hash and error message")
	ErrCompletedWithoutTx  = errors.New("completed transaction has no tx hash")
	ErrTxHashNotCompleted  = errors.New("tx hash set on a transaction that is not completed")
	ErrUnknownStatus       = errors.New("unknown transaction status")
	ErrTokenAmountNotAllow = errors.New("token amount is not allowed")
)

// Validate checks the row-level invariants between status, hash and error.
func (t *Transaction) Validate() error {
	if !t.Status.Valid() {
		return ErrUnknownStatus
	}
	if !IsAllowedTokenAmount(t.TokenAmount) {
		return ErrTokenAmountNotAllow
	}
	if t.BlockchainTxHash != "" && t.ErrorMessage != "" {
		return ErrHashAndError
	}
	if t.Status == TransactionStatusCompleted && t.BlockchainTxHash == "" {
		return ErrCompletedWithoutTx
	}
	if t.Status != TransactionStatusCompleted && t.BlockchainTxHash != "" {
		return ErrTxHashNotCompleted
	}
	return nil
}
