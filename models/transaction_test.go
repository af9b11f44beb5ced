package models

import (
	"errors"
	"testing"
	"time"
)

func TestAmountUSDForAllowedAmounts(t *testing.T) {
	for _, a := range AllowedTokenAmounts {
		got := AmountUSD(a)
		if got.IntPart() != a || !got.Equal(got.Truncate(0)) {
			t.Errorf("AmountUSD(%d) = %s, want %d", a, got, a)
		}
		if cents := UnitAmountCents(a); cents != a*100 {
			t.Errorf("UnitAmountCents(%d) = %d, want %d", a, cents, a*100)
		}
		tx := NewTransaction("id", "0xabc", a, time.Now())
		if tx.AmountUSD != float64(a) {
			t.Errorf("NewTransaction(%d).AmountUSD = %f", a, tx.AmountUSD)
		}
	}
}

func TestIsAllowedTokenAmount(t *testing.T) {
	cases := []struct {
		amount int64
		want   bool
	}{
		{10, true},
		{250, true},
		{0, false},
		{-10, false},
		{11, false},
		{300, false},
	}
	for _, c := range cases {
		if got := IsAllowedTokenAmount(c.amount); got != c.want {
			t.Errorf("IsAllowedTokenAmount(%d) = %v, want %v", c.amount, got, c.want)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	all := []TransactionStatus{
		TransactionStatusPending,
		TransactionStatusProcessing,
		TransactionStatusCompleted,
		TransactionStatusFailed,
	}
	allowed := map[[2]TransactionStatus]bool{
		{TransactionStatusPending, TransactionStatusProcessing}:   true,
		{TransactionStatusProcessing, TransactionStatusCompleted}: true,
		{TransactionStatusProcessing, TransactionStatusFailed}:    true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]TransactionStatus{from, to}]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
	if TransactionStatusPending.IsTerminal() || TransactionStatusProcessing.IsTerminal() {
		t.Error("pending/processing must not be terminal")
	}
	if !TransactionStatusCompleted.IsTerminal() || !TransactionStatusFailed.IsTerminal() {
		t.Error("completed/failed must be terminal")
	}
}

func TestTransactionValidate(t *testing.T) {
	base := func() *Transaction { return NewTransaction("id", "0xabc", 50, time.Now()) }

	cases := []struct {
		name string
		mod  func(*Transaction)
		want error
	}{
		{"pending", func(*Transaction) {}, nil},
		{"completed with hash", func(tx *Transaction) {
			tx.Status = TransactionStatusCompleted
			tx.BlockchainTxHash = "0x01"
		}, nil},
		{"failed with error", func(tx *Transaction) {
			tx.Status = TransactionStatusFailed
			tx.ErrorMessage = "boom"
		}, nil},
		{"hash and error", func(tx *Transaction) {
			tx.Status = TransactionStatusCompleted
			tx.BlockchainTxHash = "0x01"
			tx.ErrorMessage = "boom"
		}, ErrHashAndError},
		{"completed without hash", func(tx *Transaction) {
			tx.Status = TransactionStatusCompleted
		}, ErrCompletedWithoutTx},
		{"hash while processing", func(tx *Transaction) {
			tx.Status = TransactionStatusProcessing
			tx.BlockchainTxHash = "0x01"
		}, ErrTxHashNotCompleted},
		{"unknown status", func(tx *Transaction) {
			tx.Status = "PAID"
		}, ErrUnknownStatus},
		{"bad amount", func(tx *Transaction) {
			tx.TokenAmount = 7
		}, ErrTokenAmountNotAllow},
	}
	for _, c := range cases {
		tx := base()
		c.mod(tx)
		if err := tx.Validate(); !errors.Is(err, c.want) {
			t.Errorf("%s: got %v, want %v", c.name, err, c.want)
		}
	}
}

func TestSessionID(t *testing.T) {
	tx := base50()
	if tx.SessionID() != "" {
		t.Fatalf("expected empty session id, got %q", tx.SessionID())
	}
	s := "cs_test_1"
	tx.StripeSessionID = &s
	if tx.SessionID() != s {
		t.Fatalf("got %q", tx.SessionID())
	}
}

func base50() *Transaction {
	return NewTransaction("id", "0xabc", 50, time.Now())
}
