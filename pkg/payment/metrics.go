package payment

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Outbound payment gateway calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	gatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Latency of outbound payment gateway calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(gatewayRequests, gatewayLatency)
}

func observe(operation, outcome string, start time.Time) {
	gatewayRequests.WithLabelValues(operation, outcome).Inc()
	gatewayLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
