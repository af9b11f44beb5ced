// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cleen"

var (
	CheckoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_sessions_total",
		Help:      "Checkout sessions requested, by result.",
	}, []string{"result"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Stripe webhook deliveries, by event type and result.",
	}, []string{"type", "result"})

	TokenDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_deliveries_total",
		Help:      "On-chain token deliveries, by mode and result.",
	}, []string{"mode", "result"})

	TokenDeliverySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "token_delivery_seconds",
		Help:      "Time from claiming a paid transaction to its terminal state.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
	})
)
