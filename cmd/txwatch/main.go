// Command txwatch follows a checkout session until its tokens are delivered or fail.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/config"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/poller"
	"github.com/spf13/cobra"
)

var (
	apiURL      string
	interval    time.Duration
	maxAttempts int
	timeout     time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "txwatch",
		Short:         "Watch token purchases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", config.GetEnv("TXWATCH_API_URL", "http://localhost:3000"), "Base URL of the checkout service")
	rootCmd.AddCommand(newWatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <sessionId>",
		Short: "Poll a checkout session until delivery completes or fails",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "Time between polls")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", poller.DefaultMaxAttempts, "Give up after this many polls")
	cmd.Flags().DurationVar(&timeout, "timeout", poller.DefaultTimeout, "Give up after this long")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	client := poller.NewClient(apiURL, nil)
	tx, err := client.WatchSession(ctx, args[0], poller.Options{
		Interval:    interval,
		MaxAttempts: maxAttempts,
		Timeout:     timeout,
		OnUpdate: func(attempt int, tx *models.Transaction, err error) {
			if err != nil {
				fmt.Fprintf(out, "[%d] %v\n", attempt, err)
				return
			}
			fmt.Fprintf(out, "[%d] %s\n", attempt, tx.Status)
		},
	})
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil
		}
		return err
	}

	if tx.BlockchainTxHash == "" {
		return fmt.Errorf("delivery failed: %s", tx.ErrorMessage)
	}
	fmt.Fprintf(out, "Delivered %d tokens to %s\nTransaction: %s\n", tx.TokenAmount, tx.WalletAddress, tx.BlockchainTxHash)
	return nil
}
