// Package monitoring exposes Prometheus counters for the ticket flow.
// The /metrics endpoint is mounted by the router.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "Checkout attempts by outcome",
		},
		[]string{"outcome"},
	)

	confirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_confirmations_total",
			Help: "Payment reconciliation attempts by outcome",
		},
		[]string{"outcome"},
	)

	outboxDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_deliveries_total",
			Help: "Outbox email delivery attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// CheckoutCreated records one checkout attempt.
func CheckoutCreated(outcome string) { checkoutsTotal.WithLabelValues(outcome).Inc() }

// PaymentConfirmed records one reconciliation attempt.
func PaymentConfirmed(outcome string) { confirmationsTotal.WithLabelValues(outcome).Inc() }

// OutboxDelivery records one email dispatch attempt.
func OutboxDelivery(outcome string) { outboxDeliveriesTotal.WithLabelValues(outcome).Inc() }
