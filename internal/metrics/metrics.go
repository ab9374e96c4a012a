// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movielens_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movielens_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RatingSubmissions counts rating workflow outcomes: created, not_found,
	// unauthorized, conflict, invalid, error.
	RatingSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movielens_rating_submissions_total",
			Help: "Rating submissions by outcome",
		},
		[]string{"outcome"},
	)

	BulkRowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movielens_bulk_rows_loaded_total",
			Help: "Rows committed by bulk load jobs",
		},
		[]string{"collection"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRatingSubmission records the outcome of one rating workflow run.
func RecordRatingSubmission(outcome string) {
	RatingSubmissions.WithLabelValues(outcome).Inc()
}

// RecordBulkLoad records the rows committed by a bulk job.
func RecordBulkLoad(collection string, rows int64) {
	BulkRowsLoaded.WithLabelValues(collection).Add(float64(rows))
}
