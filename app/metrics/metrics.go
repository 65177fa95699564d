// Package metrics provides the Prometheus metrics of the feed service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load-more outcomes.
const (
	LoadExtended  = "extended"
	LoadGenerated = "generated"
	LoadExhausted = "exhausted"
	LoadCancelled = "cancelled"
	LoadSkipped   = "skipped"
	LoadFailed    = "failed"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridgeus_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridgeus_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Feed metrics
var (
	// FeedLoadsTotal counts load-more requests by outcome.
	FeedLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridgeus_feed_loads_total",
			Help: "Load-more requests by outcome",
		},
		[]string{"outcome"},
	)

	GeneratedPostsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridgeus_feed_generated_posts_total",
			Help: "Posts manufactured by the feed generator",
		},
	)

	StorePosts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridgeus_store_posts",
			Help: "Number of posts in the source store",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridgeus_feed_active_sessions",
			Help: "Open infinite-scroll feed sessions",
		},
	)

	SessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridgeus_feed_sessions_swept_total",
			Help: "Feed sessions closed for being idle",
		},
	)
)

// RecordLoad counts one load-more outcome.
func RecordLoad(outcome string) {
	FeedLoadsTotal.WithLabelValues(outcome).Inc()
}

// RecordGenerated counts generated posts and updates the store size.
func RecordGenerated(count, storeSize int) {
	GeneratedPostsTotal.Add(float64(count))
	StorePosts.Set(float64(storeSize))
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
