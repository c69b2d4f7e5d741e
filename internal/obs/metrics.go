package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_upstream_requests_total",
			Help: "Total number of upstream HTTP attempts",
		},
		[]string{"upstream", "outcome"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregator_upstream_request_duration_seconds",
			Help:    "Time taken by a single upstream HTTP attempt",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_upstream_retries_total",
			Help: "Total number of retries scheduled after a failed upstream attempt",
		},
		[]string{"upstream"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aggregator_upstream_breaker_state",
			Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
		},
		[]string{"upstream"},
	)

	// Enrichment
	PriceLookupsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aggregator_price_lookups_in_flight",
			Help: "Current number of in-flight price lookups",
		},
	)

	EnrichmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregator_enrichment_duration_seconds",
			Help:    "Time taken to price a whole product list",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Endpoint
	ProductRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_product_requests_total",
			Help: "Total number of product requests by response status",
		},
		[]string{"status"},
	)
)
