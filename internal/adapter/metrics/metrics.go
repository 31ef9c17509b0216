package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "floor_sync"

// SyncMetrics holds all Prometheus metrics for the floor plan service.
type SyncMetrics struct {
	EditsTotal           *prometheus.CounterVec
	CommitRetries        prometheus.Counter
	CommitDuration       prometheus.Histogram
	CacheHits            prometheus.Counter
	CacheMisses          prometheus.Counter
	CacheErrors          prometheus.Counter
	CacheAvailable       prometheus.Gauge
	SnapshotWrites       *prometheus.CounterVec
	EventsPublished      *prometheus.CounterVec
	SideEffectQueueDepth prometheus.Gauge
	LiveFeedClients      prometheus.Gauge
	LiveFeedDelivered    prometheus.Counter
	LiveFeedDropped      prometheus.Counter
	RoleCacheHits        prometheus.Counter
	RoleCacheMisses      prometheus.Counter
}

// NewSyncMetrics initializes the metrics and registers them with reg.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	f := promauto.With(reg)
	return &SyncMetrics{
		EditsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "mutations_total",
			Help:      "Total number of floor plan mutations by operation and outcome.",
		}, []string{"operation", "outcome"}), // outcome: committed, conflict, validation, not_found, no_backup, error
		CommitRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "commit_retries_total",
			Help:      "Total number of transaction attempts retried after a transient store failure.",
		}),
		CommitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "commit_duration_seconds",
			Help:      "Time spent in the transactional step of a mutation, retries included.",
			Buckets:   prometheus.DefBuckets,
		}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits.",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses.",
		}),
		CacheErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Total number of cache operations that failed and were degraded.",
		}),
		CacheAvailable: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "available",
			Help:      "Indicates if the cache is reachable (1 for available, 0 for unavailable).",
		}),
		SnapshotWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "writes_total",
			Help:      "Total number of snapshot files written by status.",
		}, []string{"status"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "events_published_total",
			Help:      "Total number of live events published by status.",
		}, []string{"status"}),
		SideEffectQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "side_effect_queue_depth",
			Help:      "Number of post-commit jobs waiting for the worker.",
		}),
		LiveFeedClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live_feed",
			Name:      "clients",
			Help:      "Number of live feed subscribers connected to this process.",
		}),
		LiveFeedDelivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live_feed",
			Name:      "delivered_total",
			Help:      "Total number of events handed to live feed subscribers.",
		}),
		LiveFeedDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live_feed",
			Name:      "dropped_total",
			Help:      "Total number of events dropped because a subscriber was too slow.",
		}),
		RoleCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "committer_role_cache_hits_total",
			Help:      "Total number of committer role cache hits.",
		}),
		RoleCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "committer_role_cache_misses_total",
			Help:      "Total number of committer role cache misses.",
		}),
	}
}
