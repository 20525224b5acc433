// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScoreUpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_score_upserts_total",
			Help: "Total number of evaluation score upserts",
		},
		[]string{"subject_type", "outcome"},
	)

	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_status_transitions_total",
			Help: "Total number of evaluation status transitions",
		},
		[]string{"to"},
	)

	WeightedPercentHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evaluation_weighted_percent",
			Help:    "Distribution of overall weighted percents at submit time",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
