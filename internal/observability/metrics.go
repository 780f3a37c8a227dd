package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bucketlist_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by key family and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bucketlist_cache_lookups_total",
		Help: "Cache lookups by key family and result (hit, miss, error, stale)",
	}, []string{"family", "result"})

	// AuthEvents counts authentication outcomes.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bucketlist_auth_events_total",
		Help: "Authentication events by kind and outcome",
	}, []string{"event", "outcome"})

	// BucketEvents counts bucket domain writes.
	BucketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bucketlist_bucket_events_total",
		Help: "Bucket writes by action",
	}, []string{"action"})

	// MediaUploadBytes records accepted image upload sizes.
	MediaUploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bucketlist_media_upload_bytes",
		Help:    "Size of accepted image uploads in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
	})
)

// RecordAuth increments the auth counter.
func RecordAuth(event, outcome string) {
	AuthEvents.WithLabelValues(event, outcome).Inc()
}

// RecordBucketEvent increments the bucket event counter.
func RecordBucketEvent(action string) {
	BucketEvents.WithLabelValues(action).Inc()
}
