// Package poller follows a transaction until delivery reaches a terminal state.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
)

const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxAttempts = 100
	DefaultTimeout     = 5 * time.Minute
)

// ErrPollExhausted is returned when the attempt or time budget runs out
// before the transaction becomes terminal.
var ErrPollExhausted = errors.New("transaction did not reach a terminal state")

// FetchFunc loads the current state of the watched transaction.
type FetchFunc func(ctx context.Context) (*models.Transaction, error)

type Options struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration

	// OnUpdate, if set, sees every fetch result.
	OnUpdate func(attempt int, tx *models.Transaction, err error)
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Done reports whether polling can stop: a hash or an error message is present.
func Done(tx *models.Transaction) bool {
	if tx == nil {
		return false
	}
	return tx.BlockchainTxHash != "" || tx.ErrorMessage != "" || tx.Status.IsTerminal()
}

// Poll fetches once immediately and then once per interval until the
// transaction is terminal. Fetch errors count as attempts and do not stop the loop.
func Poll(ctx context.Context, fetch FetchFunc, opts Options) (*models.Transaction, error) {
	opts = opts.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var (
		last    *models.Transaction
		lastErr error
	)
	for attempt := 1; ; attempt++ {
		tx, err := fetch(ctx)
		if opts.OnUpdate != nil {
			opts.OnUpdate(attempt, tx, err)
		}
		if err == nil {
			last, lastErr = tx, nil
			if Done(tx) {
				return tx, nil
			}
		} else {
			lastErr = err
		}

		if attempt >= opts.MaxAttempts {
			return last, exhausted(fmt.Sprintf("%d attempts", attempt), lastErr)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return last, exhausted(opts.Timeout.String(), lastErr)
			}
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

func exhausted(bound string, lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("%w after %s: %v", ErrPollExhausted, bound, lastErr)
	}
	return fmt.Errorf("%w after %s", ErrPollExhausted, bound)
}
