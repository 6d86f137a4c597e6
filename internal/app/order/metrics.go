package order

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

var (
	admissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunchbox_order_admissions_total",
			Help: "Order creation requests by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)

	consistencyAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lunchbox_consistency_poll_attempts",
			Help:    "Reads needed before a dependent write became visible",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12},
		},
	)

	refundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunchbox_refunds_total",
			Help: "Refund attempts during cancellation by outcome",
		},
		[]string{"outcome"},
	)
)

func observeAdmission(flow string, res *interfaces.CreateOrderResult, err error) {
	admissionsTotal.WithLabelValues(flow, admissionOutcome(res, err)).Inc()
}

func admissionOutcome(res *interfaces.CreateOrderResult, err error) string {
	switch {
	case err != nil:
		return strings.ToLower(domain.KindOf(err).String())
	case res.Idempotent:
		return "idempotent"
	case res.Duplicate:
		return "duplicate"
	default:
		return "created"
	}
}
