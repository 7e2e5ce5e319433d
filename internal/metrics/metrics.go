// Package metrics exposes the Prometheus instruments of the analytics
// service. All collectors register on the default registry at init.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_api_request_duration_seconds",
			Help:    "Duration of analytics API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)

	DatasetLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_dataset_load_duration_seconds",
			Help:    "Duration of query adapter dataset loads in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"dataset", "outcome"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_cache_requests_total",
			Help: "Report cache lookups by report kind and result",
		},
		[]string{"report", "result"}, // "hit", "miss", "error"
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_published_total",
			Help: "Analytics events published to the message bus",
		},
		[]string{"event_type", "outcome"},
	)
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordDatasetLoad observes one query adapter load.
func RecordDatasetLoad(dataset string, duration time.Duration, err error) {
	DatasetLoadDuration.WithLabelValues(dataset, outcome(err)).Observe(duration.Seconds())
}

func RecordCacheHit(report string) {
	CacheRequests.WithLabelValues(report, "hit").Inc()
}

func RecordCacheMiss(report string) {
	CacheRequests.WithLabelValues(report, "miss").Inc()
}

func RecordCacheError(report string) {
	CacheRequests.WithLabelValues(report, "error").Inc()
}

func RecordEventPublished(eventType string, err error) {
	EventsPublished.WithLabelValues(eventType, outcome(err)).Inc()
}

// GinMiddleware times every request against its route template, so that
// assignment ids do not explode label cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		APIRequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
