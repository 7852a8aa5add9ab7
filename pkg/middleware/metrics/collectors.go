package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbound_response_time",
			Help:    "outbound http response time.",
			Buckets: []float64{0.005, 0.05, 0.5, 1, 5, 10, 30, 60},
		},
	)

	totalOutboundRequestsToOrigin = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_outbound_requests_to_origin", Help: "outbound http requests to origin"},
		[]string{"code", "origin", "method"},
	)

	totalOutboundRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_outbound_requests", Help: "outbound http requests by code, and method"},
		[]string{"code", "method"},
	)

	totalOutboundFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_outbound_failures", Help: "outbound requests that returned an error"},
		[]string{"origin", "reason"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalOutboundRequestsToOrigin,
		totalOutboundRequests,
		totalOutboundFailures,
	)
}
